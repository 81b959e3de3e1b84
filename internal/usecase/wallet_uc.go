// File: internal/usecase/wallet_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/repository"
	ucport "storybook-platform/internal/domain/ports/usecase"
	"storybook-platform/internal/infra/metrics"
)

const (
	defaultLedgerLimit = 10
	maxLedgerLimit     = 100
)

var _ ucport.WalletManager = (*WalletUseCase)(nil)

// WalletUseCase owns balances and the append-only ledger. Every mutation
// runs in one transaction holding a per-user advisory lock and a row lock,
// and writes the wallet row and its ledger entries together.
type WalletUseCase struct {
	wallets repository.WalletRepository
	ledger  repository.LedgerRepository
	locker  repository.WalletLocker
	tm      repository.TransactionManager
	pricing model.Pricing
	admins  map[string]struct{}
	log     *zerolog.Logger
	now     func() time.Time
}

func NewWalletUseCase(
	wallets repository.WalletRepository,
	ledger repository.LedgerRepository,
	locker repository.WalletLocker,
	tm repository.TransactionManager,
	pricing model.Pricing,
	adminUserIDs []string,
	logger *zerolog.Logger,
) *WalletUseCase {
	admins := make(map[string]struct{}, len(adminUserIDs))
	for _, id := range adminUserIDs {
		admins[id] = struct{}{}
	}
	return &WalletUseCase{
		wallets: wallets,
		ledger:  ledger,
		locker:  locker,
		tm:      tm,
		pricing: pricing,
		admins:  admins,
		log:     logger,
		now:     time.Now,
	}
}

// IsExempt reports whether userID bypasses charging and the gate.
func (uc *WalletUseCase) IsExempt(userID string) bool {
	_, ok := uc.admins[userID]
	return ok
}

// GetOrCreate is idempotent; a missing wallet is created free with zero balances.
func (uc *WalletUseCase) GetOrCreate(ctx context.Context, userID string) (*model.Wallet, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	w, err := uc.wallets.FindByUserID(ctx, repository.NoTX, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	fresh, err := model.NewWallet(userID)
	if err != nil {
		return nil, err
	}
	if err := uc.wallets.Insert(ctx, repository.NoTX, fresh); err != nil {
		return nil, err
	}
	// re-read: a concurrent caller may have won the insert
	return uc.wallets.FindByUserID(ctx, repository.NoTX, userID)
}

func (uc *WalletUseCase) CanAfford(w *model.Wallet, cost int) bool {
	if w == nil {
		return false
	}
	if uc.IsExempt(w.UserID) {
		return true
	}
	return w.CanAfford(cost)
}

// Deduct charges a premium wallet, monthly credits first. Free and exempt
// wallets are never charged: it returns true and records nothing.
func (uc *WalletUseCase) Deduct(ctx context.Context, userID string, amount int, source, referenceID, description string) (bool, error) {
	_, err := uc.Charge(ctx, userID, amount, source, referenceID, description)
	if errors.Is(err, domain.ErrInsufficientCredits) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Charge is Deduct reporting what was actually taken: 0 for free and exempt
// wallets, amount otherwise. A short premium wallet yields ErrInsufficientCredits.
func (uc *WalletUseCase) Charge(ctx context.Context, userID string, amount int, source, referenceID, description string) (int, error) {
	if amount < 0 {
		return 0, domain.ErrInvalidArgument
	}
	if uc.IsExempt(userID) || amount == 0 {
		return 0, nil
	}
	current, err := uc.GetOrCreate(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !current.IsPremium() {
		return 0, nil
	}

	charged := 0
	_, err = uc.mutate(ctx, userID, func(w *model.Wallet) ([]*model.LedgerEntry, error) {
		// plan may have changed since the unlocked read
		if !w.IsPremium() {
			return nil, nil
		}
		if !w.Debit(amount) {
			return nil, domain.ErrInsufficientCredits
		}
		charged = amount
		return []*model.LedgerEntry{{
			Amount:      -amount,
			Source:      source,
			ReferenceID: referenceID,
			Description: description,
		}}, nil
	})
	if errors.Is(err, domain.ErrInsufficientCredits) {
		metrics.IncCreditDenied(source)
		return 0, err
	}
	if err != nil {
		return 0, err
	}
	if charged > 0 {
		metrics.AddCreditsSpent(source, charged)
	}
	return charged, nil
}

// Outstanding is what a user has spent on referenceID and not yet had refunded.
func (uc *WalletUseCase) Outstanding(ctx context.Context, userID, referenceID string) (int, error) {
	net, err := uc.ledger.NetByReference(ctx, repository.NoTX, userID, referenceID)
	if err != nil {
		return 0, err
	}
	if net >= 0 {
		return 0, nil
	}
	return -net, nil
}

// GrantMonthly resets the monthly allotment. Leftover monthly credits are
// expired by their own entry so the ledger still replays to the total.
func (uc *WalletUseCase) GrantMonthly(ctx context.Context, userID string, credits int) (*model.Wallet, error) {
	if credits < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return uc.mutate(ctx, userID, func(w *model.Wallet) ([]*model.LedgerEntry, error) {
		entries := uc.resetMonthly(w, credits)
		if w.RenewalDate != nil {
			next := w.RenewalDate.AddDate(0, 1, 0)
			for !next.After(uc.now()) {
				next = next.AddDate(0, 1, 0)
			}
			w.RenewalDate = &next
		}
		return entries, nil
	})
}

func (uc *WalletUseCase) AddPurchased(ctx context.Context, userID string, credits int, referenceID string) (*model.Wallet, error) {
	if credits <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return uc.mutate(ctx, userID, func(w *model.Wallet) ([]*model.LedgerEntry, error) {
		w.CreditPurchased(credits)
		return []*model.LedgerEntry{{
			Amount:      credits,
			Source:      model.SourceTopup,
			ReferenceID: referenceID,
			Description: fmt.Sprintf("Top-up of %d credits", credits),
		}}, nil
	})
}

// Refund returns credits to the purchased bucket, never to the monthly one.
func (uc *WalletUseCase) Refund(ctx context.Context, userID string, credits int, referenceID string) (*model.Wallet, error) {
	if credits < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if credits == 0 {
		return uc.GetOrCreate(ctx, userID)
	}
	w, err := uc.mutate(ctx, userID, func(w *model.Wallet) ([]*model.LedgerEntry, error) {
		w.CreditPurchased(credits)
		return []*model.LedgerEntry{{
			Amount:      credits,
			Source:      model.RefundSource(referenceID),
			ReferenceID: referenceID,
			Description: fmt.Sprintf("Refund of %d credits for %s", credits, referenceID),
		}}, nil
	})
	if err == nil {
		metrics.AddCreditsRefunded(credits)
	}
	return w, err
}

func (uc *WalletUseCase) UpgradeToPremium(ctx context.Context, userID string) (*model.Wallet, error) {
	return uc.mutate(ctx, userID, func(w *model.Wallet) ([]*model.LedgerEntry, error) {
		w.Plan = model.PlanPremium
		w.SubscriptionStatus = model.SubscriptionActive
		renewal := uc.now().AddDate(0, 1, 0)
		w.RenewalDate = &renewal
		return uc.resetMonthly(w, uc.pricing.Premium.MonthlyCredits), nil
	})
}

// DowngradeToFree drops the monthly allotment; purchased credits are kept.
func (uc *WalletUseCase) DowngradeToFree(ctx context.Context, userID string) (*model.Wallet, error) {
	return uc.mutate(ctx, userID, func(w *model.Wallet) ([]*model.LedgerEntry, error) {
		leftover := w.MonthlyCreditsRemaining
		w.Plan = model.PlanFree
		w.SubscriptionStatus = model.SubscriptionCanceled
		w.RenewalDate = nil
		w.ResetMonthly(0)
		if leftover == 0 {
			return []*model.LedgerEntry{}, nil
		}
		return []*model.LedgerEntry{{
			Amount:      -leftover,
			Source:      model.SourcePlanChange,
			Description: "Monthly credits removed on downgrade",
		}}, nil
	})
}

func (uc *WalletUseCase) Ledger(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error) {
	if limit <= 0 {
		limit = defaultLedgerLimit
	}
	if limit > maxLedgerLimit {
		limit = maxLedgerLimit
	}
	return uc.ledger.ListByUser(ctx, repository.NoTX, userID, limit)
}

// RenewDue grants the monthly allotment to premium wallets whose renewal
// date has passed. It returns how many wallets were renewed.
func (uc *WalletUseCase) RenewDue(ctx context.Context, limit int) (int, error) {
	due, err := uc.wallets.ListDueForRenewal(ctx, repository.NoTX, uc.now(), limit)
	if err != nil {
		return 0, err
	}
	renewed := 0
	for _, w := range due {
		if _, err := uc.GrantMonthly(ctx, w.UserID, uc.pricing.Premium.MonthlyCredits); err != nil {
			uc.log.Error().Err(err).Str("user_id", w.UserID).Msg("monthly renewal failed")
			continue
		}
		renewed++
	}
	metrics.IncWalletRenewals(renewed)
	return renewed, nil
}

func (uc *WalletUseCase) resetMonthly(w *model.Wallet, credits int) []*model.LedgerEntry {
	var entries []*model.LedgerEntry
	if left := w.MonthlyCreditsRemaining; left > 0 {
		entries = append(entries, &model.LedgerEntry{
			Amount:      -left,
			Source:      model.SourceMonthlyExpiry,
			Description: "Unused monthly credits expired",
		})
	}
	w.ResetMonthly(credits)
	if credits > 0 {
		entries = append(entries, &model.LedgerEntry{
			Amount:      credits,
			Source:      model.SourceMonthlyGrant,
			Description: fmt.Sprintf("Monthly grant of %d credits", credits),
		})
	}
	if entries == nil {
		entries = []*model.LedgerEntry{}
	}
	return entries
}

// mutate loads the wallet under lock, applies fn and persists the wallet
// together with the entries fn returns. A nil slice from fn means nothing
// changed and nothing is written.
func (uc *WalletUseCase) mutate(ctx context.Context, userID string, fn func(w *model.Wallet) ([]*model.LedgerEntry, error)) (*model.Wallet, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	var out *model.Wallet
	err := uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.locker.LockWallet(ctx, tx, userID); err != nil {
			return err
		}
		w, err := uc.loadForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		before := w.TotalCredits()
		entries, err := fn(w)
		if err != nil {
			return err
		}
		out = w
		if entries == nil {
			return nil
		}

		running := before
		now := uc.now()
		for _, e := range entries {
			running += e.Amount
			e.ID = ulid.Make().String()
			e.UserID = userID
			e.BalanceAfter = running
			e.CreatedAt = now
		}
		if running != w.TotalCredits() {
			return fmt.Errorf("ledger drift for %s: entries reach %d, wallet holds %d", userID, running, w.TotalCredits())
		}
		if w.MonthlyCreditsRemaining < 0 || w.PurchasedCreditsBalance < 0 {
			return fmt.Errorf("%w: negative balance", domain.ErrInvalidArgument)
		}

		if err := uc.wallets.Save(ctx, tx, w); err != nil {
			return err
		}
		for _, e := range entries {
			if err := uc.ledger.Append(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrInsufficientCredits) {
			uc.log.Error().Err(err).Str("user_id", userID).Msg("wallet mutation failed")
		}
		return nil, err
	}
	return out, nil
}

func (uc *WalletUseCase) loadForUpdate(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	w, err := uc.wallets.FindByUserIDForUpdate(ctx, tx, userID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	fresh, err := model.NewWallet(userID)
	if err != nil {
		return nil, err
	}
	if err := uc.wallets.Insert(ctx, tx, fresh); err != nil {
		return nil, err
	}
	return uc.wallets.FindByUserIDForUpdate(ctx, tx, userID)
}
