// File: internal/usecase/gate_uc.go
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/repository"
	ucport "storybook-platform/internal/domain/ports/usecase"
	"storybook-platform/internal/infra/metrics"
)

var _ ucport.Gatekeeper = (*GateUseCase)(nil)

// GateUseCase is the entitlement decision. It reads but never writes.
type GateUseCase struct {
	wallets ucport.WalletManager
	usage   repository.UsageCounter
	pricing model.Pricing
	log     *zerolog.Logger
	now     func() time.Time
}

func NewGateUseCase(wallets ucport.WalletManager, usage repository.UsageCounter, pricing model.Pricing, logger *zerolog.Logger) *GateUseCase {
	return &GateUseCase{wallets: wallets, usage: usage, pricing: pricing, log: logger, now: time.Now}
}

// Evaluate applies the checks in order; the first denial wins.
func (uc *GateUseCase) Evaluate(ctx context.Context, req model.GateRequest) (model.GateResult, error) {
	if req.UserID == "" {
		return model.GateResult{}, domain.ErrInvalidArgument
	}
	w, err := uc.wallets.GetOrCreate(ctx, req.UserID)
	if err != nil {
		return model.GateResult{}, err
	}

	var res model.GateResult
	switch req.Feature {
	case model.FeatureCreateStory:
		res, err = uc.createStory(ctx, w, req)
	case model.FeatureNarrate:
		res = uc.premiumSpend(w, model.ReasonPremiumNarration, uc.pricing.NarrationCost(req.PageCount))
	case model.FeatureExportCleanPDF:
		res = uc.premiumSpend(w, model.ReasonPremiumFeature, uc.pricing.Costs.ExportPDFClean)
	case model.FeatureRegenerateImage:
		res = uc.regenerateImage(w)
	case model.FeatureSaveToLibrary:
		res, err = uc.saveToLibrary(ctx, w)
	default:
		return model.GateResult{}, fmt.Errorf("%w: unknown feature %q", domain.ErrInvalidArgument, req.Feature)
	}
	if err != nil {
		return model.GateResult{}, err
	}

	metrics.IncGateDecision(string(req.Feature), string(res.Reason))
	if !res.Allowed {
		uc.log.Debug().
			Str("user_id", req.UserID).
			Str("feature", string(req.Feature)).
			Str("reason", string(res.Reason)).
			Msg("gate denied")
	}
	return res, nil
}

func (uc *GateUseCase) createStory(ctx context.Context, w *model.Wallet, req model.GateRequest) (model.GateResult, error) {
	cost := uc.pricing.EstimateStoryCost(req.Length, uc.pricing.QualityFor(w.Plan))

	if uc.wallets.IsExempt(w.UserID) {
		return model.Allow(cost), nil
	}

	if !w.IsPremium() {
		if !uc.pricing.FreeAllowsLength(req.Length) {
			return model.Deny(model.ReasonPremiumLength, model.PaywallUpgrade,
				"This story length is available on the premium plan.", cost), nil
		}
		if !uc.pricing.FreeAllowsStyle(req.ArtStyle) {
			return model.Deny(model.ReasonPremiumStyle, model.PaywallUpgrade,
				"This art style is available on the premium plan.", cost), nil
		}

		if limit := uc.pricing.Free.StoriesPerWeek; limit > 0 {
			n, err := uc.usage.CountStoriesSince(ctx, w.UserID, uc.now().AddDate(0, 0, -7))
			if err != nil {
				return model.GateResult{}, err
			}
			if n >= limit {
				return model.Deny(model.ReasonWeeklyLimit, model.PaywallUpgrade,
					fmt.Sprintf("The free plan includes %d stories per week.", limit), cost), nil
			}
		}
		if limit := uc.pricing.Free.MaxLibraryStories; limit > 0 {
			n, err := uc.usage.CountLibrary(ctx, w.UserID)
			if err != nil {
				return model.GateResult{}, err
			}
			if n >= limit {
				return model.Deny(model.ReasonLibraryLimit, model.PaywallUpgrade,
					fmt.Sprintf("The free library holds up to %d stories.", limit), cost), nil
			}
		}
		return model.Allow(cost), nil
	}

	now := uc.now().UTC()
	if limit := uc.pricing.Premium.StoriesPerDay; limit > 0 {
		n, err := uc.usage.CountStoriesSince(ctx, w.UserID, startOfDay(now))
		if err != nil {
			return model.GateResult{}, err
		}
		if n >= limit {
			return model.Deny(model.ReasonDailyLimit, model.PaywallInfo,
				"Daily story limit reached. Try again tomorrow.", cost), nil
		}
	}
	if limit := uc.pricing.Premium.StoriesPerMonth; limit > 0 {
		n, err := uc.usage.CountStoriesSince(ctx, w.UserID, startOfMonth(now))
		if err != nil {
			return model.GateResult{}, err
		}
		if n >= limit {
			return model.Deny(model.ReasonMonthlyLimit, model.PaywallInfo,
				"Monthly story limit reached.", cost), nil
		}
	}
	if !uc.wallets.CanAfford(w, cost) {
		return model.Deny(model.ReasonInsufficientCredits, model.PaywallTopup,
			fmt.Sprintf("This story costs %d credits and you have %d.", cost, w.TotalCredits()), cost), nil
	}
	return model.Allow(cost), nil
}

// premiumSpend gates premium-only actions priced at cost.
func (uc *GateUseCase) premiumSpend(w *model.Wallet, freeReason model.DenialReason, cost int) model.GateResult {
	if uc.wallets.IsExempt(w.UserID) {
		return model.Allow(cost)
	}
	if !w.IsPremium() {
		return model.Deny(freeReason, model.PaywallUpgrade, "This feature is available on the premium plan.", cost)
	}
	if !uc.wallets.CanAfford(w, cost) {
		return model.Deny(model.ReasonInsufficientCredits, model.PaywallTopup,
			fmt.Sprintf("This action costs %d credits and you have %d.", cost, w.TotalCredits()), cost)
	}
	return model.Allow(cost)
}

// regenerateImage is free on the free plan; premium pays for a high quality image.
func (uc *GateUseCase) regenerateImage(w *model.Wallet) model.GateResult {
	if !w.IsPremium() {
		return model.Allow(0)
	}
	return uc.premiumSpend(w, model.ReasonPremiumFeature, uc.pricing.Costs.GenerateImageHigh)
}

func (uc *GateUseCase) saveToLibrary(ctx context.Context, w *model.Wallet) (model.GateResult, error) {
	if uc.wallets.IsExempt(w.UserID) || w.IsPremium() {
		return model.Allow(0), nil
	}
	limit := uc.pricing.Free.MaxLibraryStories
	if limit <= 0 {
		return model.Allow(0), nil
	}
	n, err := uc.usage.CountLibrary(ctx, w.UserID)
	if err != nil {
		return model.GateResult{}, err
	}
	if n >= limit {
		return model.Deny(model.ReasonLibraryLimit, model.PaywallUpgrade,
			fmt.Sprintf("The free library holds up to %d stories.", limit), 0), nil
	}
	return model.Allow(0), nil
}

// Estimate is the cost breakdown shown before committing.
func (uc *GateUseCase) Estimate(ctx context.Context, userID, length string) (model.CostEstimate, error) {
	if !uc.pricing.KnownLength(length) {
		return model.CostEstimate{}, fmt.Errorf("%w: unknown length %q", domain.ErrInvalidArgument, length)
	}
	w, err := uc.wallets.GetOrCreate(ctx, userID)
	if err != nil {
		return model.CostEstimate{}, err
	}
	q := uc.pricing.QualityFor(w.Plan)
	total := uc.pricing.EstimateStoryCost(length, q)
	return model.CostEstimate{
		TotalCost:    total,
		TextCost:     uc.pricing.Costs.GenerateText,
		ImagesCost:   total - uc.pricing.Costs.GenerateText,
		ImageQuality: q,
		CanAfford:    uc.wallets.CanAfford(w, total),
	}, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
