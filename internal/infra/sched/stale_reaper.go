package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const reapBatch = 100

type Reaper interface {
	ReapStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// StaleReaper fails stories left mid-generation, for example after a crash,
// so their spend is refunded exactly once.
type StaleReaper struct {
	interval   time.Duration
	staleAfter time.Duration
	reaper     Reaper
	log        *zerolog.Logger
}

func NewStaleReaper(interval, staleAfter time.Duration, reaper Reaper, logger *zerolog.Logger) *StaleReaper {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	l := logger.With().Str("component", "StaleReaper").Logger()
	return &StaleReaper{interval: interval, staleAfter: staleAfter, reaper: reaper, log: &l}
}

// Run reaps once at startup, which catches jobs orphaned by the previous
// process, then on every tick.
func (r *StaleReaper) Run(ctx context.Context) error {
	r.log.Info().Dur("interval", r.interval).Dur("stale_after", r.staleAfter).Msg("starting stale reaper")
	r.tick(ctx)
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("stopping stale reaper")
			return ctx.Err()
		case <-t.C:
			r.tick(ctx)
		}
	}
}

func (r *StaleReaper) tick(ctx context.Context) {
	n, err := r.reaper.ReapStale(ctx, r.staleAfter, reapBatch)
	if err != nil {
		r.log.Error().Err(err).Msg("reap pass failed")
		return
	}
	if n > 0 {
		r.log.Warn().Int("count", n).Msg("stale stories failed")
	}
}
