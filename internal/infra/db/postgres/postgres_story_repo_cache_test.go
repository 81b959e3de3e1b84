//go:build !integration

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/repository"
	red "storybook-platform/internal/infra/redis"
)

// rankedCache is a map-backed mockRedisClient honouring SetRanked semantics.
type rankedCache struct {
	mu      sync.Mutex
	values  map[string]string
	deleted []string
}

func newRankedCache() *rankedCache { return &rankedCache{values: map[string]string{}} }

func (c *rankedCache) client() *mockRedisClient {
	return &mockRedisClient{
		GetFunc: func(ctx context.Context, key string) (string, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			v, ok := c.values[key]
			if !ok {
				return "", red.Nil
			}
			return v, nil
		},
		SetRankedFunc: func(ctx context.Context, key string, rank int64, value string, expiration time.Duration) (bool, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			if cur, ok := c.values[key]; ok {
				if r, _, ok := red.SplitRanked(cur); ok && r > rank {
					return false, nil
				}
			}
			c.values[key] = strconv.FormatInt(rank, 10) + "|" + value
			return true, nil
		},
		DelFunc: func(ctx context.Context, keys ...string) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			for _, k := range keys {
				delete(c.values, k)
				c.deleted = append(c.deleted, k)
			}
			return nil
		},
	}
}

func TestStoryRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()

	t.Run("FindStatus should return from cache on hit with the owner", func(t *testing.T) {
		// Arrange
		cached, _ := json.Marshal(statusEntry{Owner: "u1", View: model.StoryStatusView{Status: model.StoryStatusGeneratingImages, Progress: 40}})
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				if key != "story_status:s1" {
					t.Errorf("unexpected cache key %q", key)
				}
				return "40|" + string(cached), nil
			},
		}
		innerCalled := false
		inner := &mockInnerStoryRepo{
			FindStatusFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.StoryStatusView, error) {
				innerCalled = true
				return nil, nil
			},
		}
		decorator := NewStoryRepoCacheDecorator(inner, mockRedis, time.Second)

		// Act
		v, err := decorator.FindStatus(ctx, nil, "s1")

		// Assert
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if innerCalled {
			t.Error("inner repository should not be called on a cache hit")
		}
		if v.Owner != "u1" || v.Progress != 40 {
			t.Errorf("unexpected view %+v", v)
		}
	})

	t.Run("FindStatus should load and store a ranked entry on miss", func(t *testing.T) {
		var stored string
		var rank int64
		var ttl time.Duration
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) { return "", red.Nil },
			SetRankedFunc: func(ctx context.Context, key string, r int64, value string, expiration time.Duration) (bool, error) {
				stored, rank, ttl = value, r, expiration
				return true, nil
			},
		}
		inner := &mockInnerStoryRepo{
			FindStatusFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.StoryStatusView, error) {
				return &model.StoryStatusView{Owner: "u1", Status: model.StoryStatusGeneratingText, Progress: 10}, nil
			},
		}
		decorator := NewStoryRepoCacheDecorator(inner, mockRedis, 3*time.Second)

		v, err := decorator.FindStatus(ctx, nil, "s1")

		if err != nil || v.Owner != "u1" {
			t.Fatalf("unexpected result %+v %v", v, err)
		}
		var e statusEntry
		if err := json.Unmarshal([]byte(stored), &e); err != nil || e.Owner != "u1" {
			t.Errorf("expected the owner to be cached, got %q", stored)
		}
		if rank != 10 || ttl != 3*time.Second {
			t.Errorf("expected rank 10 for 3s, got %d for %v", rank, ttl)
		}
	})

	t.Run("a poll that read the row before a save should not bring the old status back", func(t *testing.T) {
		// Arrange
		cache := newRankedCache()
		var mu sync.Mutex
		row := model.StoryStatusView{Owner: "u1", Status: model.StoryStatusGeneratingImages, Progress: model.ProgressImagesDone}
		readStarted := make(chan struct{})
		release := make(chan struct{})
		var calls int
		inner := &mockInnerStoryRepo{
			FindStatusFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.StoryStatusView, error) {
				mu.Lock()
				calls++
				first := calls == 1
				v := row
				mu.Unlock()
				if first {
					close(readStarted)
					<-release
				}
				return &v, nil
			},
			SaveFunc: func(ctx context.Context, tx repository.Tx, s *model.Story) error {
				mu.Lock()
				row = s.StatusView()
				mu.Unlock()
				return nil
			},
		}
		decorator := NewStoryRepoCacheDecorator(inner, cache.client(), time.Minute)

		// Act
		stale := make(chan *model.StoryStatusView, 1)
		go func() {
			v, _ := decorator.FindStatus(ctx, nil, "s1")
			stale <- v
		}()
		<-readStarted
		ready := &model.Story{ID: "s1", UserID: "u1", Status: model.StoryStatusReady, Progress: model.ProgressReady, Title: "Luna"}
		if err := decorator.Save(ctx, repository.NoTX, ready); err != nil {
			t.Fatalf("save: %v", err)
		}
		fresh, _ := decorator.FindStatus(ctx, nil, "s1")
		close(release)
		old := <-stale
		after, err := decorator.FindStatus(ctx, nil, "s1")

		// Assert
		if old.Progress != model.ProgressImagesDone {
			t.Fatalf("expected the stalled read to see the old row, got %+v", old)
		}
		if fresh.Status != model.StoryStatusReady {
			t.Errorf("expected ready right after the save, got %+v", fresh)
		}
		if err != nil || after.Status != model.StoryStatusReady || after.Progress != model.ProgressReady {
			t.Errorf("expected ready/100 to stay cached, got %+v %v", after, err)
		}
	})

	t.Run("a save inside a transaction should reserve its rank until a poll reloads the row", func(t *testing.T) {
		// Arrange
		cache := newRankedCache()
		var mu sync.Mutex
		row := model.StoryStatusView{Owner: "u1", Status: model.StoryStatusGeneratingImages, Progress: model.ProgressImagesDone}
		inner := &mockInnerStoryRepo{
			FindStatusFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.StoryStatusView, error) {
				mu.Lock()
				defer mu.Unlock()
				v := row
				return &v, nil
			},
			SaveFunc: func(ctx context.Context, tx repository.Tx, s *model.Story) error { return nil },
		}
		decorator := NewStoryRepoCacheDecorator(inner, cache.client(), time.Minute)
		ready := &model.Story{ID: "s1", UserID: "u1", Status: model.StoryStatusReady, Progress: model.ProgressReady}

		// Act
		if err := decorator.Save(ctx, struct{}{}, ready); err != nil {
			t.Fatalf("save: %v", err)
		}
		beforeCommit, _ := decorator.FindStatus(ctx, nil, "s1")
		mu.Lock()
		row = ready.StatusView()
		mu.Unlock()
		afterCommit, _ := decorator.FindStatus(ctx, nil, "s1")
		cached, _ := decorator.FindStatus(ctx, nil, "s1")

		// Assert
		if beforeCommit.Progress != model.ProgressImagesDone {
			t.Errorf("expected the uncommitted row to stay invisible, got %+v", beforeCommit)
		}
		if afterCommit.Status != model.StoryStatusReady || cached.Status != model.StoryStatusReady {
			t.Errorf("expected ready once committed, got %+v then %+v", afterCommit, cached)
		}
		rank, payload, _ := red.SplitRanked(cache.values["story_status:s1"])
		if rank != 1100 || payload == "" {
			t.Errorf("expected the committed view at rank 1100, got %d %q", rank, payload)
		}
	})

	t.Run("StartIfQueued should cache the started view", func(t *testing.T) {
		cache := newRankedCache()
		inner := &mockInnerStoryRepo{
			StartIfQueuedFunc: func(ctx context.Context, tx repository.Tx, id string, progress int) (bool, error) { return true, nil },
			FindStatusFunc: func(ctx context.Context, tx repository.Tx, id string) (*model.StoryStatusView, error) {
				return &model.StoryStatusView{Owner: "u1", Status: model.StoryStatusGeneratingText, Progress: model.ProgressStarted}, nil
			},
		}
		decorator := NewStoryRepoCacheDecorator(inner, cache.client(), time.Minute)

		ok, err := decorator.StartIfQueued(ctx, repository.NoTX, "s2", model.ProgressStarted)

		if !ok || err != nil {
			t.Fatalf("unexpected start result %v %v", ok, err)
		}
		rank, _, _ := red.SplitRanked(cache.values["story_status:s2"])
		if rank != int64(model.ProgressStarted) {
			t.Errorf("expected rank %d, got %d", model.ProgressStarted, rank)
		}
	})

	t.Run("a failed write should leave the cache alone", func(t *testing.T) {
		cache := newRankedCache()
		inner := &mockInnerStoryRepo{
			SaveFunc: func(ctx context.Context, tx repository.Tx, s *model.Story) error { return errors.New("db down") },
		}
		decorator := NewStoryRepoCacheDecorator(inner, cache.client(), time.Minute)

		if err := decorator.Save(ctx, repository.NoTX, &model.Story{ID: "s1", Status: model.StoryStatusReady}); err == nil {
			t.Fatal("expected the inner error")
		}
		if len(cache.values) != 0 || len(cache.deleted) != 0 {
			t.Errorf("expected no cache traffic, got %v %v", cache.values, cache.deleted)
		}
	})
}
