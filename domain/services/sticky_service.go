package services

import (
	"context"
	"errors"
	"fmt"

	"stickybot/domain/entities"
	"stickybot/domain/interfaces"
	"stickybot/events"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrStickyExists is returned when creating over a configured sticky without override
	ErrStickyExists = errors.New("a sticky already exists in this channel")
	// ErrTemplateNotFound is returned when the template message cannot be fetched
	ErrTemplateNotFound = errors.New("template message not found")
	// ErrWebhookUnavailable is returned when no webhook can be resolved or created
	ErrWebhookUnavailable = errors.New("webhook unavailable")
	// ErrNoSticky is returned when a channel has no sticky configured
	ErrNoSticky = errors.New("no sticky exists in this channel")
	// ErrInvalidDebounce is returned for a negative debounce
	ErrInvalidDebounce = errors.New("debounce must not be negative")
)

// CreateStickyRequest describes a sticky to create. Nil options keep the
// current (or default) value.
type CreateStickyRequest struct {
	Channel    entities.ChannelRef
	MessageID  string
	IgnoreBots *bool
	Silent     *bool
	Debounce   *int64
	Override   bool
	CreatorID  string
}

// DeleteStickyResult reports what was removed alongside the settings
type DeleteStickyResult struct {
	Settings       *entities.ChannelSettings
	WebhookRemoved bool
	TimerCancelled bool
}

// StickyService implements the create, check and delete flows behind the
// sticky commands
type StickyService struct {
	repo      interfaces.ChannelSettingsRepository
	gateway   interfaces.MessagingGateway
	engine    *RepostEngine
	publisher interfaces.EventPublisher
}

// NewStickyService creates a new sticky service
func NewStickyService(repo interfaces.ChannelSettingsRepository, gateway interfaces.MessagingGateway, engine *RepostEngine, publisher interfaces.EventPublisher) *StickyService {
	return &StickyService{
		repo:      repo,
		gateway:   gateway,
		engine:    engine,
		publisher: publisher,
	}
}

// CreateSticky configures the sticky of req.Channel from an existing message
func (s *StickyService) CreateSticky(ctx context.Context, req CreateStickyRequest) (*entities.ChannelSettings, error) {
	if req.Debounce != nil && *req.Debounce < 0 {
		return nil, ErrInvalidDebounce
	}

	message, err := s.gateway.FetchMessage(ctx, req.Channel, req.MessageID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrTemplateNotFound, req.MessageID, err)
	}

	existing, err := s.repo.Get(ctx, req.Channel.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sticky settings: %w", err)
	}
	snapshot := existing
	if snapshot == nil {
		snapshot = entities.NewDefaultChannelSettings(req.Channel)
	}
	if snapshot.HasTemplate() && !req.Override {
		return nil, ErrStickyExists
	}

	webhook, err := s.engine.EnsureWebhook(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebhookUnavailable, err)
	}

	templateChannel := req.Channel
	if message.ChannelID != "" {
		templateChannel.ID = message.ChannelID
	}
	if message.GuildID != "" {
		templateChannel.GuildID = message.GuildID
	}

	configure := func(settings *entities.ChannelSettings) {
		settings.WebhookID = webhook.ID
		settings.WebhookURL = webhook.URL
		if req.IgnoreBots != nil {
			settings.IgnoreBots = *req.IgnoreBots
		}
		if req.Silent != nil {
			settings.Silent = *req.Silent
		}
		if req.Debounce != nil {
			settings.Debounce = *req.Debounce
		}
		settings.SetTemplate(entities.MessageRef{ID: message.ID, Channel: templateChannel}, message.Content, message.Embeds)
		if req.Channel.Name != "" {
			settings.ChannelName = req.Channel.Name
		}
		settings.CreatorID = req.CreatorID
		// A (re)created sticky starts a new lifetime
		settings.CreatedAt = nil
	}

	// Runtime state (lastMessageId, isDebouncing) of an existing record may
	// change while the webhook is resolved, so only configuration is patched
	var settings *entities.ChannelSettings
	if existing != nil {
		settings, err = s.repo.Update(ctx, req.Channel.ID, configure)
		if err != nil {
			return nil, fmt.Errorf("failed to save sticky settings: %w", err)
		}
	}
	if settings == nil {
		settings = entities.NewDefaultChannelSettings(req.Channel)
		configure(settings)
		if err := s.repo.Write(ctx, settings); err != nil {
			return nil, fmt.Errorf("failed to save sticky settings: %w", err)
		}
	}

	log.WithFields(log.Fields{
		"channel_id":  settings.ChannelID,
		"guild_id":    settings.GuildID,
		"template_id": message.ID,
		"creator_id":  req.CreatorID,
	}).Info("Created sticky")
	return settings, nil
}

// CheckSticky returns the sticky settings of a channel
func (s *StickyService) CheckSticky(ctx context.Context, channelID string) (*entities.ChannelSettings, error) {
	settings, err := s.repo.Get(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sticky settings: %w", err)
	}
	if settings == nil {
		return nil, ErrNoSticky
	}
	return settings, nil
}

// DeleteSticky removes the sticky of channel together with its pending
// timer, its posted message and its webhook
func (s *StickyService) DeleteSticky(ctx context.Context, channel entities.ChannelRef, deletedBy string) (*DeleteStickyResult, error) {
	settings, err := s.repo.Get(ctx, channel.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sticky settings: %w", err)
	}
	if settings == nil {
		return nil, ErrNoSticky
	}

	result := &DeleteStickyResult{
		Settings:       settings,
		TimerCancelled: s.engine.Cancel(channel.ID),
	}

	webhook, resolveErr := s.engine.ResolveWebhook(ctx, settings)

	if err := s.repo.Delete(ctx, channel.ID); err != nil {
		return nil, fmt.Errorf("failed to delete sticky settings: %w", err)
	}

	if resolveErr != nil {
		log.WithFields(log.Fields{
			"channel_id": channel.ID,
			"error":      resolveErr,
		}).Warn("Failed to resolve webhook while deleting sticky")
	}

	if webhook != nil {
		if last := settings.LastMessage(); last != "" {
			if err := s.gateway.DeleteVia(ctx, webhook, last); err != nil {
				log.WithFields(log.Fields{
					"channel_id": channel.ID,
					"message_id": last,
					"error":      err,
				}).Warn("Failed to delete posted sticky")
			}
		}

		if err := s.gateway.DeleteWebhook(ctx, webhook, "Sticky deleted by "+deletedBy); err != nil {
			return result, fmt.Errorf("sticky settings deleted but failed to delete webhook: %w", err)
		}
		result.WebhookRemoved = true
	}

	s.publish(events.StickyDeletedEvent{
		GuildID:        settings.GuildID,
		ChannelID:      settings.ChannelID,
		DeletedBy:      deletedBy,
		WebhookRemoved: result.WebhookRemoved,
	})

	log.WithFields(log.Fields{
		"channel_id":      channel.ID,
		"deleted_by":      deletedBy,
		"webhook_removed": result.WebhookRemoved,
	}).Info("Deleted sticky")
	return result, nil
}

// SetUserIgnored adds or removes userID from the channel's ignore list
func (s *StickyService) SetUserIgnored(ctx context.Context, channelID, userID string, ignored bool) (*entities.ChannelSettings, error) {
	settings, err := s.repo.Update(ctx, channelID, func(settings *entities.ChannelSettings) {
		if ignored {
			settings.IgnoreUser(userID)
		} else {
			settings.UnignoreUser(userID)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update ignored users: %w", err)
	}
	if settings == nil {
		return nil, ErrNoSticky
	}
	return settings, nil
}

func (s *StickyService) publish(event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Warn("Failed to publish sticky event")
	}
}
