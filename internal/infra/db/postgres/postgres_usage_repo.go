package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/ports/repository"
)

var _ repository.UsageCounter = (*usageRepo)(nil)

type usageRepo struct{ pool *pgxpool.Pool }

func NewUsageRepo(pool *pgxpool.Pool) *usageRepo {
	return &usageRepo{pool: pool}
}

func (r *usageRepo) CountStoriesSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM stories WHERE user_id=$1 AND created_at >= $2;`
	return r.count(ctx, q, userID, since)
}

func (r *usageRepo) CountLibrary(ctx context.Context, userID string) (int, error) {
	const q = `SELECT COUNT(*) FROM stories WHERE user_id=$1 AND status='ready';`
	return r.count(ctx, q, userID)
}

func (r *usageRepo) count(ctx context.Context, q string, args ...interface{}) (int, error) {
	row, err := pickRow(ctx, r.pool, repository.NoTX, q, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
