package interfaces

import (
	"context"

	"stickybot/domain/entities"

	"github.com/bwmarrin/discordgo"
)

// Webhook is a send-as identity bound to one channel
type Webhook struct {
	ID    string
	Token string
	URL   string
}

// OutgoingMessage is the body sent through a webhook
type OutgoingMessage struct {
	Content              string
	Embeds               []*discordgo.MessageEmbed
	SuppressNotification bool
}

// FetchedMessage is a message read back from a channel
type FetchedMessage struct {
	ID          string
	GuildID     string
	ChannelID   string
	Content     string
	Embeds      []*discordgo.MessageEmbed
	AuthorID    string
	AuthorIsBot bool
}

// MessagingGateway is the chat surface the sticky engine talks to. Every
// method may fail with a transport error.
type MessagingGateway interface {
	// FetchWebhooks lists the webhooks of a channel
	FetchWebhooks(ctx context.Context, channel entities.ChannelRef) ([]*Webhook, error)

	// CreateWebhook creates a webhook in a channel
	CreateWebhook(ctx context.Context, channel entities.ChannelRef, name, avatar string) (*Webhook, error)

	// DeleteWebhook removes a webhook, recording reason in the audit log
	DeleteWebhook(ctx context.Context, webhook *Webhook, reason string) error

	// SendVia posts a message through a webhook and returns the new message ID
	SendVia(ctx context.Context, webhook *Webhook, msg *OutgoingMessage) (string, error)

	// DeleteVia deletes a message previously posted through a webhook
	DeleteVia(ctx context.Context, webhook *Webhook, messageID string) error

	// FetchMessage reads a single message from a channel
	FetchMessage(ctx context.Context, channel entities.ChannelRef, messageID string) (*FetchedMessage, error)
}
