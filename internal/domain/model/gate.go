package model

type Feature string

const (
	FeatureCreateStory     Feature = "create_story"
	FeatureNarrate         Feature = "narrate"
	FeatureExportCleanPDF  Feature = "export_clean_pdf"
	FeatureRegenerateImage Feature = "regenerate_image"
	FeatureSaveToLibrary   Feature = "save_to_library"
)

type DenialReason string

const (
	ReasonPremiumLength       DenialReason = "premium_length"
	ReasonPremiumStyle        DenialReason = "premium_style"
	ReasonPremiumFeature      DenialReason = "premium_feature"
	ReasonPremiumNarration    DenialReason = "premium_narration"
	ReasonWeeklyLimit         DenialReason = "weekly_limit"
	ReasonLibraryLimit        DenialReason = "library_limit"
	ReasonDailyLimit          DenialReason = "daily_limit"
	ReasonMonthlyLimit        DenialReason = "monthly_limit"
	ReasonInsufficientCredits DenialReason = "insufficient_credits"
)

type PaywallType string

const (
	PaywallUpgrade PaywallType = "upgrade"
	PaywallTopup   PaywallType = "topup"
	PaywallInfo    PaywallType = "info"
)

// GateRequest describes one privileged action.
type GateRequest struct {
	UserID    string
	Feature   Feature
	Length    string
	ArtStyle  string
	PageCount int
}

// GateResult is transient and never persisted.
type GateResult struct {
	Allowed       bool         `json:"allowed"`
	Reason        DenialReason `json:"reason,omitempty"`
	PaywallType   PaywallType  `json:"paywallType,omitempty"`
	Message       string       `json:"message,omitempty"`
	EstimatedCost int          `json:"estimatedCost"`
}

func Allow(cost int) GateResult { return GateResult{Allowed: true, EstimatedCost: cost} }

func Deny(reason DenialReason, paywall PaywallType, msg string, cost int) GateResult {
	return GateResult{Reason: reason, PaywallType: paywall, Message: msg, EstimatedCost: cost}
}

// CostEstimate is the breakdown shown before a premium user commits.
type CostEstimate struct {
	TotalCost    int          `json:"totalCost"`
	TextCost     int          `json:"text"`
	ImagesCost   int          `json:"images"`
	ImageQuality ImageQuality `json:"imageQuality"`
	CanAfford    bool         `json:"canAfford"`
}
