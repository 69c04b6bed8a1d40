package testhelpers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"stickybot/domain/entities"
	"stickybot/domain/interfaces"
	"stickybot/events"

	"github.com/stretchr/testify/mock"
)

// MockChannelSettingsRepository is a mock implementation of ChannelSettingsRepository
type MockChannelSettingsRepository struct {
	mock.Mock
}

func (m *MockChannelSettingsRepository) Get(ctx context.Context, channelID string) (*entities.ChannelSettings, error) {
	args := m.Called(ctx, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ChannelSettings), args.Error(1)
}

func (m *MockChannelSettingsRepository) GetAll(ctx context.Context) ([]*entities.ChannelSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ChannelSettings), args.Error(1)
}

func (m *MockChannelSettingsRepository) GetByGuild(ctx context.Context, guildID string) ([]*entities.ChannelSettings, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.ChannelSettings), args.Error(1)
}

func (m *MockChannelSettingsRepository) Write(ctx context.Context, settings *entities.ChannelSettings) error {
	args := m.Called(ctx, settings)
	return args.Error(0)
}

func (m *MockChannelSettingsRepository) Update(ctx context.Context, channelID string, mutate func(*entities.ChannelSettings)) (*entities.ChannelSettings, error) {
	args := m.Called(ctx, channelID, mutate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	settings := args.Get(0).(*entities.ChannelSettings)
	mutate(settings)
	return settings, args.Error(1)
}

func (m *MockChannelSettingsRepository) Delete(ctx context.Context, channelID string) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

// MockMessagingGateway is a mock implementation of MessagingGateway
type MockMessagingGateway struct {
	mock.Mock
	sends atomic.Int32
}

// SendCount returns how many times SendVia was called
func (m *MockMessagingGateway) SendCount() int {
	return int(m.sends.Load())
}

func (m *MockMessagingGateway) FetchWebhooks(ctx context.Context, channel entities.ChannelRef) ([]*interfaces.Webhook, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*interfaces.Webhook), args.Error(1)
}

func (m *MockMessagingGateway) CreateWebhook(ctx context.Context, channel entities.ChannelRef, name, avatar string) (*interfaces.Webhook, error) {
	args := m.Called(ctx, channel, name, avatar)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Webhook), args.Error(1)
}

func (m *MockMessagingGateway) DeleteWebhook(ctx context.Context, webhook *interfaces.Webhook, reason string) error {
	args := m.Called(ctx, webhook, reason)
	return args.Error(0)
}

func (m *MockMessagingGateway) SendVia(ctx context.Context, webhook *interfaces.Webhook, msg *interfaces.OutgoingMessage) (string, error) {
	m.sends.Add(1)
	args := m.Called(ctx, webhook, msg)
	return args.String(0), args.Error(1)
}

func (m *MockMessagingGateway) DeleteVia(ctx context.Context, webhook *interfaces.Webhook, messageID string) error {
	args := m.Called(ctx, webhook, messageID)
	return args.Error(0)
}

func (m *MockMessagingGateway) FetchMessage(ctx context.Context, channel entities.ChannelRef, messageID string) (*interfaces.FetchedMessage, error) {
	args := m.Called(ctx, channel, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.FetchedMessage), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// RecordingPublisher keeps every published event in order
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *RecordingPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of the published events
func (p *RecordingPublisher) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

// OfType returns the published events of one type
func (p *RecordingPublisher) OfType(eventType events.EventType) []events.Event {
	var out []events.Event
	for _, ev := range p.Events() {
		if ev.Type() == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// MockRepostMetrics is a mock implementation of RepostMetrics
type MockRepostMetrics struct {
	mock.Mock
}

func (m *MockRepostMetrics) RecordRepost(status string, duration time.Duration) {
	m.Called(status, duration)
}

func (m *MockRepostMetrics) UpdateDebouncing(delta int64) {
	m.Called(delta)
}
