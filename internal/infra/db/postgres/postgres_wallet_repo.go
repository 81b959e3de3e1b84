package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/repository"
)

var _ repository.WalletRepository = (*walletRepo)(nil)

type walletRepo struct{ pool *pgxpool.Pool }

func NewWalletRepo(pool *pgxpool.Pool) *walletRepo {
	return &walletRepo{pool: pool}
}

const walletColumns = `user_id, plan, monthly_credits_remaining, monthly_credits_total, purchased_credits_balance, renewal_date, subscription_status, created_at, updated_at`

func (r *walletRepo) FindByUserID(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	q := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id=$1;`
	return r.findOne(ctx, tx, q, userID)
}

func (r *walletRepo) FindByUserIDForUpdate(ctx context.Context, tx repository.Tx, userID string) (*model.Wallet, error) {
	q := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	return r.findOne(ctx, tx, q, userID)
}

func (r *walletRepo) findOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Wallet, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return w, nil
}

func (r *walletRepo) Insert(ctx context.Context, tx repository.Tx, w *model.Wallet) error {
	const q = `
INSERT INTO wallets (` + walletColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (user_id) DO NOTHING;`
	_, err := execSQL(ctx, r.pool, tx, q,
		w.UserID, w.Plan, w.MonthlyCreditsRemaining, w.MonthlyCreditsTotal, w.PurchasedCreditsBalance,
		w.RenewalDate, w.SubscriptionStatus, w.CreatedAt, w.UpdatedAt)
	return mapExecErr(err)
}

func (r *walletRepo) Save(ctx context.Context, tx repository.Tx, w *model.Wallet) error {
	const q = `
UPDATE wallets SET
  plan=$2, monthly_credits_remaining=$3, monthly_credits_total=$4, purchased_credits_balance=$5,
  renewal_date=$6, subscription_status=$7, updated_at=NOW()
WHERE user_id=$1;`
	tag, err := execSQL(ctx, r.pool, tx, q,
		w.UserID, w.Plan, w.MonthlyCreditsRemaining, w.MonthlyCreditsTotal, w.PurchasedCreditsBalance,
		w.RenewalDate, w.SubscriptionStatus)
	if err != nil {
		return mapExecErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *walletRepo) ListDueForRenewal(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Wallet, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT ` + walletColumns + ` FROM wallets
WHERE plan='premium' AND subscription_status='active' AND renewal_date IS NOT NULL AND renewal_date <= $1
ORDER BY renewal_date
LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, w)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanWallet(row pgx.Row) (*model.Wallet, error) {
	w := &model.Wallet{}
	err := row.Scan(&w.UserID, &w.Plan, &w.MonthlyCreditsRemaining, &w.MonthlyCreditsTotal, &w.PurchasedCreditsBalance,
		&w.RenewalDate, &w.SubscriptionStatus, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return w, nil
}
