package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/ports/usecase"
	"storybook-platform/internal/infra/logging"
)

var _ usecase.JobDispatcher = (*StoryDispatcher)(nil)

// StoryDispatcher runs started stories on the pool with a per-job deadline.
type StoryDispatcher struct {
	pool    *Pool
	runner  usecase.StoryRunner
	timeout time.Duration
	log     *zerolog.Logger
}

func NewStoryDispatcher(pool *Pool, runner usecase.StoryRunner, timeout time.Duration, logger *zerolog.Logger) *StoryDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &StoryDispatcher{pool: pool, runner: runner, timeout: timeout, log: logger}
}

func (d *StoryDispatcher) Dispatch(ctx context.Context, storyID string) error {
	ids := logging.WithJobID(logging.Detach(ctx), storyID)
	err := d.pool.Submit(func(poolCtx context.Context) error {
		jobCtx, cancel := context.WithTimeout(logging.Carry(poolCtx, ids), d.timeout)
		defer cancel()
		return d.runner.Run(jobCtx, storyID)
	})
	if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrPoolClosed) {
		logging.With(ids, d.log).Warn().Err(err).Msg("story not dispatched")
		return domain.ErrQueueFull
	}
	return err
}
