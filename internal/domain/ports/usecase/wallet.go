package usecase

import (
	"context"

	"storybook-platform/internal/domain/model"
)

// WalletManager defines the credit operations needed by the gate, the
// generation worker and the HTTP layer.
type WalletManager interface {
	GetOrCreate(ctx context.Context, userID string) (*model.Wallet, error)
	CanAfford(w *model.Wallet, cost int) bool
	// Deduct reports false, with no state change, when a premium wallet is short.
	Deduct(ctx context.Context, userID string, amount int, source, referenceID, description string) (bool, error)
	// Charge is Deduct returning the credits actually taken (0 when exempt).
	Charge(ctx context.Context, userID string, amount int, source, referenceID, description string) (int, error)
	// Outstanding is the net spend recorded against referenceID.
	Outstanding(ctx context.Context, userID, referenceID string) (int, error)
	GrantMonthly(ctx context.Context, userID string, credits int) (*model.Wallet, error)
	AddPurchased(ctx context.Context, userID string, credits int, referenceID string) (*model.Wallet, error)
	Refund(ctx context.Context, userID string, credits int, referenceID string) (*model.Wallet, error)
	UpgradeToPremium(ctx context.Context, userID string) (*model.Wallet, error)
	DowngradeToFree(ctx context.Context, userID string) (*model.Wallet, error)
	Ledger(ctx context.Context, userID string, limit int) ([]*model.LedgerEntry, error)
	IsExempt(userID string) bool
}
