package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/repository"
	"storybook-platform/internal/infra/metrics"
	red "storybook-platform/internal/infra/redis"
)

var _ repository.StoryRepository = (*storyRepoCacheDecorator)(nil)

const defaultStatusTTL = 2 * time.Second

// storyRepoCacheDecorator caches the status poll. Entries are ranked by how
// far the story has moved (terminal above everything, then progress) and a
// lower ranked view never replaces a higher one, so a poll that read the row
// just before a write cannot put an older status back in front of clients.
type storyRepoCacheDecorator struct {
	repository.StoryRepository
	cache red.RedisClient
	ttl   time.Duration
}

// statusEntry keeps the owner, which the public view hides from JSON.
type statusEntry struct {
	Owner string                `json:"owner"`
	View  model.StoryStatusView `json:"view"`
}

func NewStoryRepoCacheDecorator(inner repository.StoryRepository, cache red.RedisClient, ttl time.Duration) repository.StoryRepository {
	if ttl <= 0 {
		ttl = defaultStatusTTL
	}
	return &storyRepoCacheDecorator{StoryRepository: inner, cache: cache, ttl: ttl}
}

func statusKey(id string) string { return fmt.Sprintf("story_status:%s", id) }

// statusRank orders views along the story lifecycle.
func statusRank(v *model.StoryStatusView) int64 {
	rank := int64(v.Progress)
	if v.Status.Terminal() {
		rank += 1000
	}
	return rank
}

func (d *storyRepoCacheDecorator) FindStatus(ctx context.Context, tx repository.Tx, id string) (*model.StoryStatusView, error) {
	key := statusKey(id)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var e statusEntry
		_, payload, ok := red.SplitRanked(val)
		switch {
		case ok && payload == "":
			metrics.IncStatusCache("pending")
		case ok && json.Unmarshal([]byte(payload), &e) == nil:
			metrics.IncStatusCache("hit")
			v := e.View
			v.Owner = e.Owner
			return &v, nil
		default:
			metrics.IncStatusCache("corrupt")
		}
	} else {
		metrics.IncStatusCache("miss")
	}

	v, err := d.StoryRepository.FindStatus(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.store(ctx, id, v)
	return v, nil
}

func (d *storyRepoCacheDecorator) store(ctx context.Context, id string, v *model.StoryStatusView) {
	b, err := json.Marshal(statusEntry{Owner: v.Owner, View: *v})
	if err != nil {
		return
	}
	if _, err := d.cache.SetRanked(ctx, statusKey(id), statusRank(v), string(b), d.ttl); err != nil {
		_ = d.cache.Del(ctx, statusKey(id))
	}
}

// Save writes the new view through when the row is already committed. Inside
// a transaction only the rank is reserved with an empty payload: polls treat
// it as a miss and reload from the database, but cannot store anything ranked
// below the pending write.
func (d *storyRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, s *model.Story) error {
	if err := d.StoryRepository.Save(ctx, tx, s); err != nil {
		return err
	}
	v := s.StatusView()
	if tx != repository.NoTX {
		if _, err := d.cache.SetRanked(ctx, statusKey(s.ID), statusRank(&v), "", d.ttl); err != nil {
			_ = d.cache.Del(ctx, statusKey(s.ID))
		}
		return nil
	}
	d.store(ctx, s.ID, &v)
	return nil
}

func (d *storyRepoCacheDecorator) StartIfQueued(ctx context.Context, tx repository.Tx, id string, progress int) (bool, error) {
	ok, err := d.StoryRepository.StartIfQueued(ctx, tx, id, progress)
	if err != nil || !ok {
		return ok, err
	}
	if v, err := d.StoryRepository.FindStatus(ctx, tx, id); err == nil {
		d.store(ctx, id, v)
	} else {
		_ = d.cache.Del(ctx, statusKey(id))
	}
	return true, nil
}
