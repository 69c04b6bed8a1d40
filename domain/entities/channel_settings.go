package entities

import (
	"time"

	"stickybot/storage"

	"github.com/bwmarrin/discordgo"
)

// ChannelRef identifies a channel. Name is a denormalized display value.
type ChannelRef struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	GuildID string `json:"guildId,omitempty"`
}

// MessageRef identifies the message a sticky mirrors
type MessageRef struct {
	ID      string     `json:"id"`
	Channel ChannelRef `json:"channel"`
}

// ChannelSettings is the sticky configuration and runtime state of one
// channel, keyed by ChannelID
type ChannelSettings struct {
	GuildID     string `json:"guildId"`
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`

	// Template source. Older records only carry TemplateID.
	TemplateID string      `json:"templateId"`
	Template   *MessageRef `json:"template,omitempty"`

	// Delivery target. WebhookID is kept for records written before the URL
	// was stored.
	WebhookID  string `json:"webhookId"`
	WebhookURL string `json:"webhookUrl"`

	IgnoreBots     bool                `json:"ignoreBots"`
	Silent         bool                `json:"silent"`
	Debounce       int64               `json:"debounce"` // milliseconds
	IgnoredUserIDs storage.Set[string] `json:"ignoredUserIds,omitempty"`

	LastMessageID *string `json:"lastMessageId"`
	IsDebouncing  bool    `json:"isDebouncing"`

	// Snapshot of the template message body
	Content string                    `json:"content"`
	Embeds  []*discordgo.MessageEmbed `json:"embeds"`

	CreatorID string `json:"creatorId,omitempty"`

	storage.Timestamps
}

// NewDefaultChannelSettings returns the settings a channel starts with
func NewDefaultChannelSettings(channel ChannelRef) *ChannelSettings {
	return &ChannelSettings{
		GuildID:     channel.GuildID,
		ChannelID:   channel.ID,
		ChannelName: channel.Name,
		Silent:      true,
		IgnoreBots:  true,
		Debounce:    0,
		Embeds:      []*discordgo.MessageEmbed{},
	}
}

// Ref returns the channel this record belongs to
func (s *ChannelSettings) Ref() ChannelRef {
	return ChannelRef{ID: s.ChannelID, Name: s.ChannelName, GuildID: s.GuildID}
}

// HasTemplate reports whether a sticky is configured
func (s *ChannelSettings) HasTemplate() bool {
	return s.TemplateMessageID() != ""
}

// TemplateMessageID returns the template message ID from whichever field is set
func (s *ChannelSettings) TemplateMessageID() string {
	if s.Template != nil && s.Template.ID != "" {
		return s.Template.ID
	}
	return s.TemplateID
}

// TemplateChannelID returns the channel holding the template message. Legacy
// records keep templates in the sticky channel itself.
func (s *ChannelSettings) TemplateChannelID() string {
	if s.Template != nil && s.Template.Channel.ID != "" {
		return s.Template.Channel.ID
	}
	return s.ChannelID
}

// SetTemplate points the sticky at template and snapshots its body
func (s *ChannelSettings) SetTemplate(template MessageRef, content string, embeds []*discordgo.MessageEmbed) {
	s.TemplateID = template.ID
	s.Template = &template
	s.Content = content
	s.Embeds = embeds
	if s.Embeds == nil {
		s.Embeds = []*discordgo.MessageEmbed{}
	}
	if template.Channel.GuildID != "" {
		s.GuildID = template.Channel.GuildID
	}
}

// HasWebhook reports whether any delivery target is recorded
func (s *ChannelSettings) HasWebhook() bool {
	return s.WebhookURL != "" || s.WebhookID != ""
}

// DebounceDuration returns the debounce window, zero when disabled
func (s *ChannelSettings) DebounceDuration() time.Duration {
	if s.Debounce <= 0 {
		return 0
	}
	return time.Duration(s.Debounce) * time.Millisecond
}

// IsUserIgnored reports whether messages from userID never trigger a repost
func (s *ChannelSettings) IsUserIgnored(userID string) bool {
	return s.IgnoredUserIDs.Has(userID)
}

// SetLastMessage records the currently posted sticky
func (s *ChannelSettings) SetLastMessage(messageID string) {
	s.LastMessageID = &messageID
}

// LastMessage returns the posted sticky ID or an empty string
func (s *ChannelSettings) LastMessage() string {
	if s.LastMessageID == nil {
		return ""
	}
	return *s.LastMessageID
}

// IgnoreUser stops userID from triggering reposts
func (s *ChannelSettings) IgnoreUser(userID string) {
	if s.IgnoredUserIDs == nil {
		s.IgnoredUserIDs = storage.NewSet[string]()
	}
	s.IgnoredUserIDs.Add(userID)
}

// UnignoreUser lets userID trigger reposts again
func (s *ChannelSettings) UnignoreUser(userID string) {
	s.IgnoredUserIDs.Remove(userID)
}
