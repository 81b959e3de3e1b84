package repository

import (
	"context"
	"time"

	"storybook-platform/internal/domain/model"
)

type WalletRepository interface {
	FindByUserID(ctx context.Context, tx Tx, userID string) (*model.Wallet, error)
	// FindByUserIDForUpdate row-locks the wallet until tx ends.
	FindByUserIDForUpdate(ctx context.Context, tx Tx, userID string) (*model.Wallet, error)
	// Insert is a no-op when the user already has a wallet.
	Insert(ctx context.Context, tx Tx, w *model.Wallet) error
	Save(ctx context.Context, tx Tx, w *model.Wallet) error
	ListDueForRenewal(ctx context.Context, tx Tx, before time.Time, limit int) ([]*model.Wallet, error)
}

type LedgerRepository interface {
	Append(ctx context.Context, tx Tx, e *model.LedgerEntry) error
	// ListByUser returns newest entries first.
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.LedgerEntry, error)
	// NetByReference sums every entry of a user that references referenceID.
	NetByReference(ctx context.Context, tx Tx, userID, referenceID string) (int, error)
}
