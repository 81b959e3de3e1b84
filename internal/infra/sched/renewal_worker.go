package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const renewalBatch = 200

type Renewer interface {
	RenewDue(ctx context.Context, limit int) (int, error)
}

// RenewalWorker periodically grants the monthly allotment to premium
// wallets whose renewal date has passed.
type RenewalWorker struct {
	interval time.Duration
	renewer  Renewer
	log      *zerolog.Logger
}

func NewRenewalWorker(interval time.Duration, renewer Renewer, logger *zerolog.Logger) *RenewalWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	l := logger.With().Str("component", "RenewalWorker").Logger()
	return &RenewalWorker{interval: interval, renewer: renewer, log: &l}
}

func (w *RenewalWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting renewal worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping renewal worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

// tick drains every due wallet, one batch at a time.
func (w *RenewalWorker) tick(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.renewer.RenewDue(ctx, renewalBatch)
		if err != nil {
			w.log.Error().Err(err).Msg("renewal pass failed")
			return
		}
		if n > 0 {
			w.log.Info().Int("count", n).Msg("wallets renewed")
		}
		if n < renewalBatch {
			return
		}
	}
}
