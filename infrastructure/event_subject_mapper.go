package infrastructure

import (
	"fmt"

	"stickybot/events"
)

// StickyEventStream is the JetStream stream holding sticky events
const StickyEventStream = "sticky_events"

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeStickyReposted:
		return "stickies.reposted"
	case events.EventTypeStickyDebounceArmed:
		return "stickies.debounce_armed"
	case events.EventTypeStickyDeleted:
		return "stickies.deleted"
	default:
		return fmt.Sprintf("stickies.unknown.%s", event.Type())
	}
}

// GetAllSubjects returns all subjects that this service publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{"stickies.>"}
}
