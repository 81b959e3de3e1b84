package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/repository"
)

var _ repository.StoryRepository = (*storyRepo)(nil)

type storyRepo struct{ pool *pgxpool.Pool }

func NewStoryRepo(pool *pgxpool.Pool) *storyRepo {
	return &storyRepo{pool: pool}
}

const storyColumns = `id, user_id, COALESCE(title,''), child_name, child_age_group, theme, tone, length, attributes,
  status, progress, credit_cost, image_quality, COALESCE(error_message,''), COALESCE(narration_voice,''), created_at, updated_at`

func (r *storyRepo) Create(ctx context.Context, tx repository.Tx, s *model.Story) error {
	attrs, err := json.Marshal(s.Attributes)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO stories (id, user_id, title, child_name, child_age_group, theme, tone, length, attributes,
  status, progress, credit_cost, image_quality, created_at, updated_at)
VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15);`
	_, err = execSQL(ctx, r.pool, tx, q, s.ID, s.UserID, s.Title, s.ChildName, s.AgeGroup, s.Theme, s.Tone, s.Length, attrs,
		s.Status, s.Progress, s.CreditCost, s.ImageQuality, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return mapExecErr(err)
	}
	return nil
}

func (r *storyRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Story, error) {
	q := `SELECT ` + storyColumns + ` FROM stories WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	s, err := scanStory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

// Save refuses to touch a story that already reached ready or failed, so a
// late writer can never resurrect it.
func (r *storyRepo) Save(ctx context.Context, tx repository.Tx, s *model.Story) error {
	attrs, err := json.Marshal(s.Attributes)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
UPDATE stories SET
  title=NULLIF($2,''), attributes=$3, status=$4, progress=GREATEST(progress, $5),
  error_message=NULLIF($6,''), updated_at=NOW()
WHERE id=$1 AND status NOT IN ('ready','failed');`
	tag, err := execSQL(ctx, r.pool, tx, q, s.ID, s.Title, attrs, s.Status, s.Progress, s.ErrorMessage)
	if err != nil {
		return mapExecErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *storyRepo) StartIfQueued(ctx context.Context, tx repository.Tx, id string, progress int) (bool, error) {
	const q = `
UPDATE stories SET status='generating_text', progress=GREATEST(progress, $2), updated_at=NOW()
WHERE id=$1 AND status='queued';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, progress)
	if err != nil {
		return false, mapExecErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *storyRepo) FindStatus(ctx context.Context, tx repository.Tx, id string) (*model.StoryStatusView, error) {
	const q = `SELECT user_id, status, progress, COALESCE(title,''), COALESCE(error_message,'') FROM stories WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	v := &model.StoryStatusView{}
	if err := row.Scan(&v.Owner, &v.Status, &v.Progress, &v.Title, &v.Error); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return v, nil
}

func (r *storyRepo) SetNarration(ctx context.Context, tx repository.Tx, id, voice string) (bool, error) {
	const q = `
UPDATE stories SET narration_voice=$2, updated_at=NOW()
WHERE id=$1 AND status='ready' AND COALESCE(narration_voice,'')='';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, voice)
	if err != nil {
		return false, mapExecErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *storyRepo) ListStale(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Story, error) {
	if limit <= 0 {
		limit = 50
	}
	const q = `
SELECT ` + storyColumns + ` FROM stories
WHERE status IN ('generating_text','generating_images') AND updated_at < $1
ORDER BY updated_at
LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Story
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanStory(row pgx.Row) (*model.Story, error) {
	s := &model.Story{}
	var attrs []byte
	if err := row.Scan(&s.ID, &s.UserID, &s.Title, &s.ChildName, &s.AgeGroup, &s.Theme, &s.Tone, &s.Length, &attrs,
		&s.Status, &s.Progress, &s.CreditCost, &s.ImageQuality, &s.ErrorMessage, &s.NarrationVoice, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &s.Attributes); err != nil {
			return nil, err
		}
	}
	return s, nil
}
