package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/repository"
)

var _ repository.EventRepository = (*eventRepo)(nil)

type eventRepo struct{ pool *pgxpool.Pool }

func NewEventRepo(pool *pgxpool.Pool) *eventRepo {
	return &eventRepo{pool: pool}
}

func (r *eventRepo) Insert(ctx context.Context, e *model.Event) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	data, err := json.Marshal(e.Data)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `INSERT INTO events (id, user_id, type, data, created_at) VALUES ($1,NULLIF($2,''),$3,$4,$5);`
	_, err = execSQL(ctx, r.pool, repository.NoTX, q, e.ID, e.UserID, e.Type, data, e.CreatedAt)
	return mapExecErr(err)
}
