package interfaces

import (
	"time"

	"stickybot/events"
)

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(event events.Event) error
}

// RepostMetrics receives engine measurements
type RepostMetrics interface {
	// RecordRepost counts a finished trigger by outcome status
	RecordRepost(status string, duration time.Duration)

	// UpdateDebouncing moves the pending timer gauge by delta
	UpdateDebouncing(delta int64)
}
