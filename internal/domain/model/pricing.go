package model

// CreditCosts is the price list in credits.
type CreditCosts struct {
	GenerateText          int `yaml:"generate_text"`
	GenerateImageStandard int `yaml:"generate_image_standard"`
	GenerateImageHigh     int `yaml:"generate_image_high"`
	ExportPDFClean        int `yaml:"export_pdf_clean"`
	NarratePerPage        int `yaml:"narrate_per_page"`
}

type FreeLimits struct {
	StoriesPerWeek    int      `yaml:"stories_per_week"`
	MaxLibraryStories int      `yaml:"max_library_stories"`
	AllowedLengths    []string `yaml:"allowed_lengths"`
	AllowedStyles     []string `yaml:"allowed_styles"`
}

// PremiumLimits carries no length or style list: premium may request anything
// the free plan cannot, and lengths are validated against PagesPerLength.
type PremiumLimits struct {
	MonthlyCredits  int `yaml:"monthly_credits"`
	StoriesPerDay   int `yaml:"stories_per_day"`
	StoriesPerMonth int `yaml:"stories_per_month"`
}

// Pricing is the monetization policy. Numbers are configuration.
type Pricing struct {
	Costs          CreditCosts    `yaml:"costs"`
	PagesPerLength map[string]int `yaml:"pages_per_length"`
	DefaultPages   int            `yaml:"default_pages"`
	Free           FreeLimits     `yaml:"free"`
	Premium        PremiumLimits  `yaml:"premium"`
}

// DefaultPricing mirrors the launch price list.
func DefaultPricing() Pricing {
	return Pricing{
		Costs: CreditCosts{
			GenerateText:          5,
			GenerateImageStandard: 8,
			GenerateImageHigh:     12,
			ExportPDFClean:        3,
			NarratePerPage:        2,
		},
		PagesPerLength: map[string]int{"corto": 4, "medio": 6, "largo": 8},
		DefaultPages:   4,
		Free: FreeLimits{
			StoriesPerWeek:    1,
			MaxLibraryStories: 10,
			AllowedLengths:    []string{"corto"},
			AllowedStyles:     []string{"watercolor", "cartoon"},
		},
		Premium: PremiumLimits{
			MonthlyCredits:  60,
			StoriesPerDay:   10,
			StoriesPerMonth: 60,
		},
	}
}

// Lengths lists every length any plan may request.
func (p Pricing) Lengths() []string {
	out := make([]string, 0, len(p.PagesPerLength))
	for l := range p.PagesPerLength {
		out = append(out, l)
	}
	return out
}

// KnownLength reports whether length has a page count.
func (p Pricing) KnownLength(length string) bool {
	_, ok := p.PagesPerLength[length]
	return ok
}

func (p Pricing) PagesFor(length string) int {
	if n, ok := p.PagesPerLength[length]; ok && n > 0 {
		return n
	}
	return p.DefaultPages
}

func (p Pricing) ImageCost(q ImageQuality) int {
	if q == ImageQualityHigh {
		return p.Costs.GenerateImageHigh
	}
	return p.Costs.GenerateImageStandard
}

// QualityFor fixes the image quality a plan gets at admission.
func (p Pricing) QualityFor(plan PlanType) ImageQuality {
	if plan == PlanPremium {
		return ImageQualityHigh
	}
	return ImageQualityStandard
}

// EstimateStoryCost = text + pages(length) * image(quality).
func (p Pricing) EstimateStoryCost(length string, q ImageQuality) int {
	return p.Costs.GenerateText + p.PagesFor(length)*p.ImageCost(q)
}

func (p Pricing) NarrationCost(pages int) int { return pages * p.Costs.NarratePerPage }

func (p Pricing) FreeAllowsLength(length string) bool { return contains(p.Free.AllowedLengths, length) }

// FreeAllowsStyle treats an empty style as the default, which every plan gets.
func (p Pricing) FreeAllowsStyle(style string) bool {
	return style == "" || contains(p.Free.AllowedStyles, style)
}
