package model

import "time"

type EventType string

const (
	EventStoryGenerateStarted   EventType = "story_generate_started"
	EventStoryGenerateCompleted EventType = "story_generate_completed"
	EventStoryGenerateFailed    EventType = "story_generate_failed"
	EventCreditsSpent           EventType = "credits_spent"
	EventCreditsRefunded        EventType = "credits_refunded"
	EventPaywallViewed          EventType = "paywall_viewed"
	EventNarrationGenerated     EventType = "narration_generated"
	EventTopupPurchased         EventType = "topup_purchased"
	EventSubscribed             EventType = "subscribed"
)

// Event is a lifecycle notification recorded for analytics.
type Event struct {
	ID        string
	UserID    string
	Type      EventType
	Data      map[string]any
	CreatedAt time.Time
}
