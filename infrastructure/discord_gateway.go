package infrastructure

import (
	"context"
	"fmt"

	"stickybot/domain/entities"
	"stickybot/domain/interfaces"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DiscordSession is the subset of *discordgo.Session used by DiscordGateway
type DiscordSession interface {
	ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookDelete(webhookID string, options ...discordgo.RequestOption) error
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookMessageDelete(webhookID, token, messageID string, options ...discordgo.RequestOption) error
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordGateway implements MessagingGateway over the Discord REST API.
// Outgoing calls share one token bucket on top of discordgo's own
// per-route rate limiting.
type DiscordGateway struct {
	session DiscordSession
	limiter *rate.Limiter
}

// NewDiscordGateway creates a gateway allowing ratePerSec REST calls per second
func NewDiscordGateway(session DiscordSession, ratePerSec float64) *DiscordGateway {
	burst := int(ratePerSec)
	if burst < 1 {
		burst = 1
	}
	return &DiscordGateway{
		session: session,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
	}
}

// FetchWebhooks lists the webhooks of a channel
func (g *DiscordGateway) FetchWebhooks(ctx context.Context, channel entities.ChannelRef) ([]*interfaces.Webhook, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	hooks, err := g.session.ChannelWebhooks(channel.ID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	out := make([]*interfaces.Webhook, 0, len(hooks))
	for _, hook := range hooks {
		out = append(out, toWebhook(hook))
	}
	return out, nil
}

// CreateWebhook creates a webhook in a channel
func (g *DiscordGateway) CreateWebhook(ctx context.Context, channel entities.ChannelRef, name, avatar string) (*interfaces.Webhook, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	hook, err := g.session.WebhookCreate(channel.ID, name, avatar, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook: %w", err)
	}
	if hook.Token == "" {
		return nil, fmt.Errorf("created webhook %s has no token", hook.ID)
	}
	return toWebhook(hook), nil
}

// DeleteWebhook removes a webhook, recording reason in the audit log
func (g *DiscordGateway) DeleteWebhook(ctx context.Context, webhook *interfaces.Webhook, reason string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	if err := g.session.WebhookDelete(webhook.ID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason)); err != nil {
		return fmt.Errorf("failed to delete webhook %s: %w", webhook.ID, err)
	}
	return nil
}

// SendVia posts a message through a webhook and returns the new message ID
func (g *DiscordGateway) SendVia(ctx context.Context, webhook *interfaces.Webhook, msg *interfaces.OutgoingMessage) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	params := &discordgo.WebhookParams{
		Content: msg.Content,
		Embeds:  msg.Embeds,
		// Stickies repeat forever; never re-ping anyone
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if msg.SuppressNotification {
		params.Flags = discordgo.MessageFlagsSuppressNotifications
	}

	sent, err := g.session.WebhookExecute(webhook.ID, webhook.Token, true, params, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to execute webhook %s: %w", webhook.ID, err)
	}
	if sent == nil || sent.ID == "" {
		return "", fmt.Errorf("webhook %s returned no message", webhook.ID)
	}
	return sent.ID, nil
}

// DeleteVia deletes a message previously posted through a webhook
func (g *DiscordGateway) DeleteVia(ctx context.Context, webhook *interfaces.Webhook, messageID string) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	if err := g.session.WebhookMessageDelete(webhook.ID, webhook.Token, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, err)
	}
	return nil
}

// FetchMessage reads a single message from a channel
func (g *DiscordGateway) FetchMessage(ctx context.Context, channel entities.ChannelRef, messageID string) (*interfaces.FetchedMessage, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	msg, err := g.session.ChannelMessage(channel.ID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message %s: %w", messageID, err)
	}

	fetched := &interfaces.FetchedMessage{
		ID:        msg.ID,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		Content:   msg.Content,
		Embeds:    msg.Embeds,
	}
	// REST responses omit guild_id
	if fetched.GuildID == "" {
		fetched.GuildID = channel.GuildID
	}
	if fetched.ChannelID == "" {
		fetched.ChannelID = channel.ID
	}
	if msg.Author != nil {
		fetched.AuthorID = msg.Author.ID
		fetched.AuthorIsBot = msg.Author.Bot
	}

	log.WithFields(log.Fields{
		"channel_id": channel.ID,
		"message_id": messageID,
		"embeds":     len(msg.Embeds),
	}).Debug("Fetched template message")
	return fetched, nil
}

func toWebhook(hook *discordgo.Webhook) *interfaces.Webhook {
	webhook := &interfaces.Webhook{ID: hook.ID, Token: hook.Token}
	if hook.Token != "" {
		webhook.URL = discordgo.EndpointWebhookToken(hook.ID, hook.Token)
	}
	return webhook
}
