package events

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeStickyReposted      EventType = "sticky_reposted"
	EventTypeStickyDebounceArmed EventType = "sticky_debounce_armed"
	EventTypeStickyDeleted       EventType = "sticky_deleted"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// StickyRepostedEvent is emitted after a sticky was sent to its channel
type StickyRepostedEvent struct {
	GuildID           string `json:"guildId"`
	ChannelID         string `json:"channelId"`
	MessageID         string `json:"messageId"`
	PreviousMessageID string `json:"previousMessageId,omitempty"`
	Debounced         bool   `json:"debounced"`
}

func (e StickyRepostedEvent) Type() EventType {
	return EventTypeStickyReposted
}

// StickyDebounceArmedEvent is emitted when a debounce timer is (re)armed
type StickyDebounceArmedEvent struct {
	GuildID    string `json:"guildId"`
	ChannelID  string `json:"channelId"`
	DebounceMs int64  `json:"debounceMs"`
	Revived    bool   `json:"revived"`
}

func (e StickyDebounceArmedEvent) Type() EventType {
	return EventTypeStickyDebounceArmed
}

// StickyDeletedEvent is emitted when a sticky configuration is removed
type StickyDeletedEvent struct {
	GuildID        string `json:"guildId"`
	ChannelID      string `json:"channelId"`
	DeletedBy      string `json:"deletedBy"`
	WebhookRemoved bool   `json:"webhookRemoved"`
}

func (e StickyDeletedEvent) Type() EventType {
	return EventTypeStickyDeleted
}
