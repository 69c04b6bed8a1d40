package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"stickybot/domain/entities"
	"stickybot/domain/interfaces"
	"stickybot/events"

	log "github.com/sirupsen/logrus"
)

// RepostStatus is the outcome of a repost attempt
type RepostStatus int

const (
	// RepostStatusNotApplicable means the channel has no sticky settings
	RepostStatusNotApplicable RepostStatus = iota
	// RepostStatusBusy means another repost decision for the channel is in flight
	RepostStatusBusy
	// RepostStatusNoDeliveryTarget means no webhook could be resolved
	RepostStatusNoDeliveryTarget
	// RepostStatusIgnored means the trigger was filtered out
	RepostStatusIgnored
	// RepostStatusDebounceArmed means a debounce timer was (re)armed
	RepostStatusDebounceArmed
	// RepostStatusNoTemplate means settings exist but no template is configured
	RepostStatusNoTemplate
	// RepostStatusReposted means a new sticky was sent
	RepostStatusReposted
	// RepostStatusFailed means a transport or storage error aborted the repost
	RepostStatusFailed
)

func (s RepostStatus) String() string {
	switch s {
	case RepostStatusNotApplicable:
		return "not_applicable"
	case RepostStatusBusy:
		return "busy"
	case RepostStatusNoDeliveryTarget:
		return "no_delivery_target"
	case RepostStatusIgnored:
		return "ignored"
	case RepostStatusDebounceArmed:
		return "debounce_armed"
	case RepostStatusNoTemplate:
		return "no_template"
	case RepostStatusReposted:
		return "reposted"
	case RepostStatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// TriggerMessage is the message whose arrival prompted a repost check
type TriggerMessage struct {
	ID          string
	AuthorID    string
	AuthorIsBot bool
	WebhookID   string
}

const (
	defaultBusyRetryDelay = 100 * time.Millisecond
	defaultFireTimeout    = 30 * time.Second
)

// EngineOption configures a RepostEngine
type EngineOption func(*RepostEngine)

// WithMetrics attaches a metrics sink
func WithMetrics(metrics interfaces.RepostMetrics) EngineOption {
	return func(e *RepostEngine) {
		e.metrics = metrics
	}
}

// WithWebhookIdentity sets the name and avatar of webhooks created by EnsureWebhook
func WithWebhookIdentity(name, avatar string) EngineOption {
	return func(e *RepostEngine) {
		e.webhookName = name
		e.webhookAvatar = avatar
	}
}

// WithBusyRetryDelay sets how long a debounce fire waits when the channel is busy
func WithBusyRetryDelay(d time.Duration) EngineOption {
	return func(e *RepostEngine) {
		e.busyRetryDelay = d
	}
}

// RepostEngine keeps each configured channel's sticky as its latest message.
// Per channel at most one repost decision runs at a time, and debounce timers
// coalesce bursts of triggers into a single repost.
type RepostEngine struct {
	repo      interfaces.ChannelSettingsRepository
	gateway   interfaces.MessagingGateway
	publisher interfaces.EventPublisher
	metrics   interfaces.RepostMetrics

	webhookName    string
	webhookAvatar  string
	busyRetryDelay time.Duration
	fireTimeout    time.Duration

	mu         sync.Mutex
	inFlight   map[string]struct{}
	timers     map[string]*debounceTimer
	generation uint64
	closed     bool
}

// debounceTimer is the pending fire for one channel. generation identifies
// the arm that created it so a stale fire can tell it was superseded.
type debounceTimer struct {
	timer      *time.Timer
	generation uint64
	channel    entities.ChannelRef
}

// NewRepostEngine creates a new repost engine
func NewRepostEngine(repo interfaces.ChannelSettingsRepository, gateway interfaces.MessagingGateway, publisher interfaces.EventPublisher, opts ...EngineOption) *RepostEngine {
	e := &RepostEngine{
		repo:           repo,
		gateway:        gateway,
		publisher:      publisher,
		webhookName:    "Sticky",
		busyRetryDelay: defaultBusyRetryDelay,
		fireTimeout:    defaultFireTimeout,
		inFlight:       make(map[string]struct{}),
		timers:         make(map[string]*debounceTimer),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaybeRepost checks whether the sticky of channel needs reposting after
// trigger and does so, either immediately or by arming the debounce timer.
// trigger may be nil for explicit reposts.
func (e *RepostEngine) MaybeRepost(ctx context.Context, channel entities.ChannelRef, trigger *TriggerMessage) (status RepostStatus, err error) {
	start := time.Now()
	defer func() {
		e.recordRepost(status, time.Since(start))
	}()

	logger := log.WithFields(log.Fields{
		"channel_id": channel.ID,
		"guild_id":   channel.GuildID,
	})

	settings, err := e.repo.Get(ctx, channel.ID)
	if err != nil {
		return RepostStatusFailed, fmt.Errorf("failed to load sticky settings: %w", err)
	}
	if settings == nil {
		return RepostStatusNotApplicable, nil
	}

	if !e.acquire(channel.ID) {
		logger.Debug("Repost already in flight, collapsing trigger")
		return RepostStatusBusy, nil
	}
	defer e.release(channel.ID)

	// The previous holder of the guard may have posted a new sticky since
	// the first read
	settings, err = e.repo.Get(ctx, channel.ID)
	if err != nil {
		return RepostStatusFailed, fmt.Errorf("failed to load sticky settings: %w", err)
	}
	if settings == nil {
		return RepostStatusNotApplicable, nil
	}

	webhook, err := e.ResolveWebhook(ctx, settings)
	if err != nil {
		logger.WithError(err).Error("Failed to resolve sticky webhook")
		return RepostStatusFailed, err
	}
	if webhook == nil {
		logger.Warn("No webhook for sticky channel")
		return RepostStatusNoDeliveryTarget, nil
	}

	if trigger != nil {
		if reason := ignoreReason(settings, webhook, trigger); reason != "" {
			logger.WithFields(log.Fields{
				"author_id": trigger.AuthorID,
				"reason":    reason,
			}).Debug("Ignoring trigger message")
			return RepostStatusIgnored, nil
		}
	}

	if debounce := settings.DebounceDuration(); debounce > 0 {
		marked, err := e.markDebouncing(ctx, channel.ID)
		if err != nil {
			logger.WithError(err).Error("Failed to persist debounce state")
			return RepostStatusFailed, err
		}
		if marked == nil {
			logger.Debug("Sticky deleted before debounce was armed")
			return RepostStatusNotApplicable, nil
		}
		e.arm(settings.Ref(), debounce)
		e.publish(events.StickyDebounceArmedEvent{
			GuildID:    settings.GuildID,
			ChannelID:  settings.ChannelID,
			DebounceMs: settings.Debounce,
		})
		logger.WithField("debounce_ms", settings.Debounce).Debug("Armed sticky debounce timer")
		return RepostStatusDebounceArmed, nil
	}

	return e.repost(ctx, settings, webhook, false)
}

// Revive re-arms debounce timers for every sticky in guildID that was
// persisted as debouncing without a live timer in this process. The full
// debounce window restarts; elapsed time before a restart is not recovered.
func (e *RepostEngine) Revive(ctx context.Context, guildID string) (int, error) {
	all, err := e.repo.GetByGuild(ctx, guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to load stickies for guild %s: %w", guildID, err)
	}

	revived := 0
	for _, settings := range all {
		if !settings.IsDebouncing || e.Pending(settings.ChannelID) {
			continue
		}

		debounce := settings.DebounceDuration()
		if debounce <= 0 {
			// Debounce was switched off while a timer was pending; fire now
			debounce = time.Millisecond
		}
		e.arm(settings.Ref(), debounce)
		e.publish(events.StickyDebounceArmedEvent{
			GuildID:    settings.GuildID,
			ChannelID:  settings.ChannelID,
			DebounceMs: settings.Debounce,
			Revived:    true,
		})
		revived++
	}

	if revived > 0 {
		log.WithFields(log.Fields{
			"guild_id": guildID,
			"count":    revived,
		}).Info("Revived sticky debounce timers")
	}
	return revived, nil
}

// Cancel stops the pending debounce timer of a channel. It reports whether
// a timer was pending.
func (e *RepostEngine) Cancel(channelID string) bool {
	e.mu.Lock()
	pending, ok := e.timers[channelID]
	if ok {
		pending.timer.Stop()
		delete(e.timers, channelID)
	}
	e.mu.Unlock()

	if ok {
		e.updateDebouncing(-1)
	}
	return ok
}

// Pending reports whether a debounce timer is armed for channelID
func (e *RepostEngine) Pending(channelID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.timers[channelID]
	return ok
}

// Close stops every pending timer. Persisted debounce state is left in place
// so the next process revives it.
func (e *RepostEngine) Close() {
	e.mu.Lock()
	e.closed = true
	stopped := int64(len(e.timers))
	for id, pending := range e.timers {
		pending.timer.Stop()
		delete(e.timers, id)
	}
	e.mu.Unlock()

	if stopped > 0 {
		e.updateDebouncing(-stopped)
		log.WithField("count", stopped).Info("Stopped pending sticky timers")
	}
}

// ResolveWebhook returns the delivery target recorded in settings, or nil if
// none can be found. A webhook looked up by its legacy ID has its URL
// memoized on the stored record; no record is ever created here.
func (e *RepostEngine) ResolveWebhook(ctx context.Context, settings *entities.ChannelSettings) (*interfaces.Webhook, error) {
	if settings.WebhookURL != "" {
		webhook, err := ParseWebhookURL(settings.WebhookURL)
		if err == nil {
			return webhook, nil
		}
		log.WithFields(log.Fields{
			"channel_id": settings.ChannelID,
			"error":      err,
		}).Warn("Stored webhook URL is invalid, falling back to webhook ID")
	}

	if settings.WebhookID == "" {
		return nil, nil
	}

	webhooks, err := e.gateway.FetchWebhooks(ctx, settings.Ref())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch webhooks for channel %s: %w", settings.ChannelID, err)
	}

	for _, webhook := range webhooks {
		if webhook.ID != settings.WebhookID || webhook.URL == "" {
			continue
		}

		settings.WebhookURL = webhook.URL
		if _, err := e.repo.Update(ctx, settings.ChannelID, func(s *entities.ChannelSettings) {
			s.WebhookURL = webhook.URL
		}); err != nil {
			log.WithFields(log.Fields{
				"channel_id": settings.ChannelID,
				"error":      err,
			}).Warn("Failed to memoize webhook URL")
		}
		return webhook, nil
	}
	return nil, nil
}

// EnsureWebhook resolves the delivery target for settings, creating a new
// webhook when none exists. The new identity is stored on settings; the
// caller persists it.
func (e *RepostEngine) EnsureWebhook(ctx context.Context, settings *entities.ChannelSettings) (*interfaces.Webhook, error) {
	webhook, err := e.ResolveWebhook(ctx, settings)
	if err != nil || webhook != nil {
		return webhook, err
	}

	webhook, err = e.gateway.CreateWebhook(ctx, settings.Ref(), e.webhookName, e.webhookAvatar)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook for channel %s: %w", settings.ChannelID, err)
	}

	settings.WebhookID = webhook.ID
	settings.WebhookURL = webhook.URL

	log.WithFields(log.Fields{
		"channel_id": settings.ChannelID,
		"webhook_id": webhook.ID,
	}).Info("Created sticky webhook")
	return webhook, nil
}

// repost deletes the previous sticky and sends a fresh one. debounced marks
// a timer fire, which also clears the persisted debounce flag.
func (e *RepostEngine) repost(ctx context.Context, settings *entities.ChannelSettings, webhook *interfaces.Webhook, debounced bool) (RepostStatus, error) {
	logger := log.WithFields(log.Fields{
		"channel_id": settings.ChannelID,
		"guild_id":   settings.GuildID,
	})

	previous := settings.LastMessage()
	if previous != "" {
		if err := e.gateway.DeleteVia(ctx, webhook, previous); err != nil {
			logger.WithFields(log.Fields{
				"message_id": previous,
				"error":      err,
			}).Warn("Failed to delete previous sticky")
		}
	}

	if !settings.HasTemplate() {
		logger.Debug("No sticky template configured")
		if previous != "" || debounced {
			if _, err := e.repo.Update(ctx, settings.ChannelID, func(s *entities.ChannelSettings) {
				s.LastMessageID = nil
				if debounced {
					s.IsDebouncing = false
				}
			}); err != nil {
				return RepostStatusFailed, fmt.Errorf("failed to clear sticky state: %w", err)
			}
		}
		return RepostStatusNoTemplate, nil
	}

	messageID, err := e.gateway.SendVia(ctx, webhook, &interfaces.OutgoingMessage{
		Content:              settings.Content,
		Embeds:               settings.Embeds,
		SuppressNotification: settings.Silent,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to send sticky")
		return RepostStatusFailed, fmt.Errorf("failed to send sticky: %w", err)
	}

	updated, err := e.repo.Update(ctx, settings.ChannelID, func(s *entities.ChannelSettings) {
		s.SetLastMessage(messageID)
		if debounced {
			s.IsDebouncing = false
		}
	})
	if err != nil {
		logger.WithError(err).Error("Failed to persist sticky message ID")
		return RepostStatusFailed, fmt.Errorf("failed to persist sticky state: %w", err)
	}
	if updated == nil {
		// Sticky was deleted while the send was in flight
		if err := e.gateway.DeleteVia(ctx, webhook, messageID); err != nil {
			logger.WithError(err).Warn("Failed to delete sticky posted after removal")
		}
		return RepostStatusNotApplicable, nil
	}

	e.publish(events.StickyRepostedEvent{
		GuildID:           settings.GuildID,
		ChannelID:         settings.ChannelID,
		MessageID:         messageID,
		PreviousMessageID: previous,
		Debounced:         debounced,
	})
	logger.WithField("message_id", messageID).Info("Reposted sticky")
	return RepostStatusReposted, nil
}

// arm installs a debounce timer for channel, replacing any pending one
func (e *RepostEngine) arm(channel entities.ChannelRef, d time.Duration) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	previous, replaced := e.timers[channel.ID]
	if replaced {
		previous.timer.Stop()
	}

	e.generation++
	generation := e.generation
	pending := &debounceTimer{generation: generation, channel: channel}
	pending.timer = time.AfterFunc(d, func() {
		e.fire(channel.ID, generation)
	})
	e.timers[channel.ID] = pending
	e.mu.Unlock()

	if !replaced {
		e.updateDebouncing(1)
	}
}

// fire runs a debounced repost. A superseded generation is dropped; a busy
// channel reschedules the same generation.
func (e *RepostEngine) fire(channelID string, generation uint64) {
	e.mu.Lock()
	pending, ok := e.timers[channelID]
	if e.closed || !ok || pending.generation != generation {
		e.mu.Unlock()
		return
	}
	if _, busy := e.inFlight[channelID]; busy {
		pending.timer = time.AfterFunc(e.busyRetryDelay, func() {
			e.fire(channelID, generation)
		})
		e.mu.Unlock()
		log.WithField("channel_id", channelID).Debug("Channel busy, delaying debounced repost")
		return
	}
	delete(e.timers, channelID)
	e.inFlight[channelID] = struct{}{}
	e.mu.Unlock()

	e.updateDebouncing(-1)
	defer e.release(channelID)

	ctx, cancel := context.WithTimeout(context.Background(), e.fireTimeout)
	defer cancel()

	start := time.Now()
	status, err := e.runDebounced(ctx, pending.channel)
	e.recordRepost(status, time.Since(start))
	if err != nil {
		log.WithFields(log.Fields{
			"channel_id": channelID,
			"status":     status.String(),
			"error":      err,
		}).Error("Debounced sticky repost failed")
	}
}

func (e *RepostEngine) runDebounced(ctx context.Context, channel entities.ChannelRef) (status RepostStatus, err error) {
	settings, err := e.repo.Get(ctx, channel.ID)
	if err != nil {
		return RepostStatusFailed, fmt.Errorf("failed to load sticky settings: %w", err)
	}
	if settings == nil {
		return RepostStatusNotApplicable, nil
	}

	defer func() {
		// Reposted and NoTemplate clear the flag themselves
		if status == RepostStatusReposted || status == RepostStatusNoTemplate || status == RepostStatusNotApplicable {
			return
		}
		if clearErr := e.clearDebouncing(ctx, channel.ID); clearErr != nil {
			err = errors.Join(err, clearErr)
		}
	}()

	webhook, err := e.ResolveWebhook(ctx, settings)
	if err != nil {
		return RepostStatusFailed, err
	}
	if webhook == nil {
		log.WithField("channel_id", channel.ID).Warn("No webhook for sticky channel")
		return RepostStatusNoDeliveryTarget, nil
	}

	return e.repost(ctx, settings, webhook, true)
}

// markDebouncing persists the debounce flag. It returns nil settings when the
// record no longer exists.
func (e *RepostEngine) markDebouncing(ctx context.Context, channelID string) (*entities.ChannelSettings, error) {
	return e.repo.Update(ctx, channelID, func(s *entities.ChannelSettings) {
		s.IsDebouncing = true
	})
}

func (e *RepostEngine) clearDebouncing(ctx context.Context, channelID string) error {
	_, err := e.repo.Update(ctx, channelID, func(s *entities.ChannelSettings) {
		s.IsDebouncing = false
	})
	if err != nil {
		return fmt.Errorf("failed to clear debounce state: %w", err)
	}
	return nil
}

// acquire enters the single-flight guard for channelID
func (e *RepostEngine) acquire(channelID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inFlight[channelID]; busy {
		return false
	}
	e.inFlight[channelID] = struct{}{}
	return true
}

func (e *RepostEngine) release(channelID string) {
	e.mu.Lock()
	delete(e.inFlight, channelID)
	e.mu.Unlock()
}

func (e *RepostEngine) publish(event events.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(event); err != nil {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"error":     err,
		}).Warn("Failed to publish sticky event")
	}
}

func (e *RepostEngine) recordRepost(status RepostStatus, d time.Duration) {
	if e.metrics != nil {
		e.metrics.RecordRepost(status.String(), d)
	}
}

func (e *RepostEngine) updateDebouncing(delta int64) {
	if e.metrics != nil {
		e.metrics.UpdateDebouncing(delta)
	}
}

// ignoreReason returns why trigger must not cause a repost, or "" if it may
func ignoreReason(settings *entities.ChannelSettings, webhook *interfaces.Webhook, trigger *TriggerMessage) string {
	switch {
	case trigger.AuthorID == webhook.ID || (trigger.WebhookID != "" && trigger.WebhookID == webhook.ID):
		return "own webhook"
	case settings.IgnoreBots && trigger.AuthorIsBot:
		return "bot author"
	case settings.IsUserIgnored(trigger.AuthorID):
		return "ignored user"
	default:
		return ""
	}
}

// ParseWebhookURL extracts the webhook ID and token from a URL of the form
// .../api/webhooks/{id}/{token}
func ParseWebhookURL(raw string) (*interfaces.Webhook, error) {
	const marker = "/webhooks/"
	idx := strings.Index(raw, marker)
	if idx < 0 {
		return nil, fmt.Errorf("not a webhook URL: missing %q", marker)
	}

	parts := strings.Split(strings.Trim(raw[idx+len(marker):], "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("not a webhook URL: expected id and token")
	}

	token, _, _ := strings.Cut(parts[1], "?")
	return &interfaces.Webhook{ID: parts[0], Token: token, URL: raw}, nil
}
