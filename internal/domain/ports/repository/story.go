package repository

import (
	"context"
	"time"

	"storybook-platform/internal/domain/model"
)

type StoryRepository interface {
	Create(ctx context.Context, tx Tx, s *model.Story) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Story, error)
	// Save writes every mutable column. Progress is clamped so it never decreases.
	Save(ctx context.Context, tx Tx, s *model.Story) error
	// StartIfQueued flips a queued story to generating_text. It returns false
	// when the story was not queued.
	StartIfQueued(ctx context.Context, tx Tx, id string, progress int) (bool, error)
	FindStatus(ctx context.Context, tx Tx, id string) (*model.StoryStatusView, error)
	// SetNarration records the narration voice on a ready story once. It
	// returns false when the story already has one.
	SetNarration(ctx context.Context, tx Tx, id, voice string) (bool, error)
	// ListStale returns active stories not updated since before.
	ListStale(ctx context.Context, tx Tx, before time.Time, limit int) ([]*model.Story, error)
}

type PageRepository interface {
	InsertBatch(ctx context.Context, tx Tx, pages []*model.Page) error
	ListByStory(ctx context.Context, tx Tx, storyID string) ([]*model.Page, error)
	SetAudioURL(ctx context.Context, tx Tx, storyID string, pageNumber int, url string) error
}

// UsageCounter answers the counting questions the entitlement gate asks.
type UsageCounter interface {
	// CountStoriesSince counts stories created at or after since, failed ones excluded.
	CountStoriesSince(ctx context.Context, userID string, since time.Time) (int, error)
	// CountLibrary counts ready stories.
	CountLibrary(ctx context.Context, userID string) (int, error)
}

type EventRepository interface {
	Insert(ctx context.Context, e *model.Event) error
}
