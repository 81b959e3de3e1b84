package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*ledgerRepo)(nil)

type ledgerRepo struct{ pool *pgxpool.Pool }

func NewLedgerRepo(pool *pgxpool.Pool) *ledgerRepo {
	return &ledgerRepo{pool: pool}
}

func (r *ledgerRepo) Append(ctx context.Context, tx repository.Tx, e *model.LedgerEntry) error {
	const q = `
INSERT INTO credit_ledger (id, user_id, amount, balance_after, source, reference_id, description, created_at)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),NULLIF($7,''),$8);`
	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.UserID, e.Amount, e.BalanceAfter, e.Source, e.ReferenceID, e.Description, e.CreatedAt)
	return mapExecErr(err)
}

func (r *ledgerRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT id, user_id, amount, balance_after, source, COALESCE(reference_id,''), COALESCE(description,''), created_at
FROM credit_ledger WHERE user_id=$1
ORDER BY created_at DESC, seq DESC
LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.LedgerEntry
	for rows.Next() {
		e := &model.LedgerEntry{}
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.BalanceAfter, &e.Source, &e.ReferenceID, &e.Description, &e.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *ledgerRepo) NetByReference(ctx context.Context, tx repository.Tx, userID, referenceID string) (int, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM credit_ledger WHERE user_id=$1 AND reference_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, referenceID)
	if err != nil {
		return 0, err
	}
	var sum int
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}
