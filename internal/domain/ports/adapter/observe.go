package adapter

import (
	"context"

	"storybook-platform/internal/domain/model"
)

// TelemetrySink records lifecycle events. Implementations swallow their own
// errors; callers never branch on telemetry.
type TelemetrySink interface {
	Track(ctx context.Context, userID string, event model.EventType, data map[string]any)
}

type ModerationResult struct {
	Safe         bool
	FlaggedTerms []string
}

// ContentModerator screens free text for unsafe content.
type ContentModerator interface {
	Check(text string) ModerationResult
}
