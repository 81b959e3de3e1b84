//go:build !integration

package postgres

import (
	"context"
	"time"

	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/repository"
	red "storybook-platform/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerStoryRepo mocks the database repository that the story decorator wraps.
type mockInnerStoryRepo struct {
	CreateFunc        func(ctx context.Context, tx repository.Tx, s *model.Story) error
	FindByIDFunc      func(ctx context.Context, tx repository.Tx, id string) (*model.Story, error)
	SaveFunc          func(ctx context.Context, tx repository.Tx, s *model.Story) error
	StartIfQueuedFunc func(ctx context.Context, tx repository.Tx, id string, progress int) (bool, error)
	FindStatusFunc    func(ctx context.Context, tx repository.Tx, id string) (*model.StoryStatusView, error)
	SetNarrationFunc  func(ctx context.Context, tx repository.Tx, id, voice string) (bool, error)
	ListStaleFunc     func(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Story, error)
}

func (m *mockInnerStoryRepo) Create(ctx context.Context, tx repository.Tx, s *model.Story) error {
	return m.CreateFunc(ctx, tx, s)
}
func (m *mockInnerStoryRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Story, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerStoryRepo) Save(ctx context.Context, tx repository.Tx, s *model.Story) error {
	return m.SaveFunc(ctx, tx, s)
}
func (m *mockInnerStoryRepo) StartIfQueued(ctx context.Context, tx repository.Tx, id string, progress int) (bool, error) {
	return m.StartIfQueuedFunc(ctx, tx, id, progress)
}
func (m *mockInnerStoryRepo) FindStatus(ctx context.Context, tx repository.Tx, id string) (*model.StoryStatusView, error) {
	return m.FindStatusFunc(ctx, tx, id)
}
func (m *mockInnerStoryRepo) SetNarration(ctx context.Context, tx repository.Tx, id, voice string) (bool, error) {
	return m.SetNarrationFunc(ctx, tx, id, voice)
}
func (m *mockInnerStoryRepo) ListStale(ctx context.Context, tx repository.Tx, before time.Time, limit int) ([]*model.Story, error) {
	return m.ListStaleFunc(ctx, tx, before, limit)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc         func(ctx context.Context, key string) (string, error)
	SetFunc         func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNXFunc       func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	DelFunc         func(ctx context.Context, keys ...string) error
	DelIfEqualsFunc func(ctx context.Context, key, value string) (bool, error)
	SetRankedFunc   func(ctx context.Context, key string, rank int64, value string, expiration time.Duration) (bool, error)
	PingFunc        func(ctx context.Context) error
	IncrFunc        func(ctx context.Context, key string) (int64, error)
	ExpireFunc      func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc       func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return m.SetNXFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	return m.DelIfEqualsFunc(ctx, key, value)
}
func (m *mockRedisClient) SetRanked(ctx context.Context, key string, rank int64, value string, expiration time.Duration) (bool, error) {
	return m.SetRankedFunc(ctx, key, rank, value, expiration)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
