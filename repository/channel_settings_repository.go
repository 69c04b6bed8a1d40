package repository

import (
	"context"
	"fmt"
	"sync"

	"stickybot/domain/entities"
	"stickybot/storage"
)

// ChannelsTable is the storage table holding sticky settings
const ChannelsTable = "channels"

// ChannelSettingsRepository implements the ChannelSettingsRepository interface
// on top of a typed storage table
type ChannelSettingsRepository struct {
	table *storage.Table[entities.ChannelSettings]

	// Per-channel locks serialize read-modify-write cycles
	locks sync.Map
}

// NewChannelSettingsRepository registers the channels table on store
func NewChannelSettingsRepository(ctx context.Context, store *storage.Store) (*ChannelSettingsRepository, error) {
	table, err := storage.Register[entities.ChannelSettings](ctx, store, ChannelsTable)
	if err != nil {
		return nil, fmt.Errorf("failed to register %s table: %w", ChannelsTable, err)
	}
	return &ChannelSettingsRepository{table: table}, nil
}

// Get returns the settings for a channel or nil if none exist
func (r *ChannelSettingsRepository) Get(ctx context.Context, channelID string) (*entities.ChannelSettings, error) {
	settings, err := r.table.Get(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings for channel %s: %w", channelID, err)
	}
	return settings, nil
}

// GetAll returns every stored channel configuration
func (r *ChannelSettingsRepository) GetAll(ctx context.Context) ([]*entities.ChannelSettings, error) {
	all, err := r.table.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list channel settings: %w", err)
	}
	return all, nil
}

// GetByGuild returns the configurations belonging to guildID
func (r *ChannelSettingsRepository) GetByGuild(ctx context.Context, guildID string) ([]*entities.ChannelSettings, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*entities.ChannelSettings
	for _, settings := range all {
		if settings.GuildID == guildID {
			matched = append(matched, settings)
		}
	}
	return matched, nil
}

// Write persists settings under its channel ID
func (r *ChannelSettingsRepository) Write(ctx context.Context, settings *entities.ChannelSettings) error {
	mu := r.lock(settings.ChannelID)
	mu.Lock()
	defer mu.Unlock()

	return r.write(ctx, settings)
}

// Update applies mutate to the latest stored settings and persists them
func (r *ChannelSettingsRepository) Update(ctx context.Context, channelID string, mutate func(*entities.ChannelSettings)) (*entities.ChannelSettings, error) {
	mu := r.lock(channelID)
	mu.Lock()
	defer mu.Unlock()

	settings, err := r.Get(ctx, channelID)
	if err != nil || settings == nil {
		return nil, err
	}

	mutate(settings)
	settings.ChannelID = channelID

	if err := r.write(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// Delete removes the settings for a channel
func (r *ChannelSettingsRepository) Delete(ctx context.Context, channelID string) error {
	mu := r.lock(channelID)
	mu.Lock()
	defer mu.Unlock()

	if err := r.table.Delete(ctx, channelID); err != nil {
		return fmt.Errorf("failed to delete settings for channel %s: %w", channelID, err)
	}
	return nil
}

func (r *ChannelSettingsRepository) write(ctx context.Context, settings *entities.ChannelSettings) error {
	if err := r.table.Write(ctx, settings.ChannelID, settings); err != nil {
		return fmt.Errorf("failed to write settings for channel %s: %w", settings.ChannelID, err)
	}
	return nil
}

func (r *ChannelSettingsRepository) lock(channelID string) *sync.Mutex {
	mu, _ := r.locks.LoadOrStore(channelID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
