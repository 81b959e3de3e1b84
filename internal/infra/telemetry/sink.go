package telemetry

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"storybook-platform/internal/domain/model"
	"storybook-platform/internal/domain/ports/adapter"
	"storybook-platform/internal/domain/ports/repository"
	"storybook-platform/internal/infra/logging"
)

var _ adapter.TelemetrySink = (*EventSink)(nil)

const writeTimeout = 3 * time.Second

// EventSink records events through the event repository. Write errors are
// logged and dropped.
type EventSink struct {
	events repository.EventRepository
	log    *zerolog.Logger
}

func NewEventSink(events repository.EventRepository, logger *zerolog.Logger) *EventSink {
	return &EventSink{events: events, log: logger}
}

func (s *EventSink) Track(ctx context.Context, userID string, event model.EventType, data map[string]any) {
	ctx, cancel := context.WithTimeout(logging.Detach(ctx), writeTimeout)
	defer cancel()
	e := &model.Event{
		ID:        ulid.Make().String(),
		UserID:    userID,
		Type:      event,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.events.Insert(ctx, e); err != nil {
		logging.With(ctx, s.log).Warn().Err(err).Str("event", string(event)).Msg("telemetry write failed")
		return
	}
	logging.With(ctx, s.log).Debug().Str("event", string(event)).Msg("event tracked")
}
