package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/repository"
)

var _ repository.PageRepository = (*pageRepo)(nil)

type pageRepo struct{ pool *pgxpool.Pool }

func NewPageRepo(pool *pgxpool.Pool) *pageRepo {
	return &pageRepo{pool: pool}
}

const insertPageSQL = `
INSERT INTO pages (id, story_id, page_number, text, image_url, image_prompt, audio_url, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NULLIF($6,''),$7,$8,$9);`

// InsertBatch writes all pages in one round trip. Inside a pgx.Tx the batch
// joins that transaction.
func (r *pageRepo) InsertBatch(ctx context.Context, tx repository.Tx, pages []*model.Page) error {
	if len(pages) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, p := range pages {
		b.Queue(insertPageSQL, p.ID, p.StoryID, p.PageNumber, p.Text, p.ImageURL, p.ImagePrompt, p.AudioURL, p.CreatedAt, p.UpdatedAt)
	}

	var br pgx.BatchResults
	switch v := tx.(type) {
	case pgx.Tx:
		br = v.SendBatch(ctx, b)
	case nil:
		if r.pool == nil {
			return domain.ErrInvalidArgument
		}
		br = r.pool.SendBatch(ctx, b)
	default:
		return domain.ErrInvalidExecContext
	}
	defer br.Close()

	for range pages {
		if _, err := br.Exec(); err != nil {
			return domain.ErrOperationFailed
		}
	}
	return nil
}

func (r *pageRepo) ListByStory(ctx context.Context, tx repository.Tx, storyID string) ([]*model.Page, error) {
	const q = `
SELECT id, story_id, page_number, text, image_url, COALESCE(image_prompt,''), audio_url, created_at, updated_at
FROM pages WHERE story_id=$1 ORDER BY page_number;`
	rows, err := queryRows(ctx, r.pool, tx, q, storyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Page
	for rows.Next() {
		p := &model.Page{}
		if err := rows.Scan(&p.ID, &p.StoryID, &p.PageNumber, &p.Text, &p.ImageURL, &p.ImagePrompt, &p.AudioURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *pageRepo) SetAudioURL(ctx context.Context, tx repository.Tx, storyID string, pageNumber int, url string) error {
	const q = `UPDATE pages SET audio_url=$3, updated_at=NOW() WHERE story_id=$1 AND page_number=$2;`
	tag, err := execSQL(ctx, r.pool, tx, q, storyID, pageNumber, url)
	if err != nil {
		return mapExecErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
