package interfaces

import (
	"context"

	"stickybot/domain/entities"
)

// ChannelSettingsRepository defines the interface for sticky settings access
type ChannelSettingsRepository interface {
	// Get returns the settings for a channel, or nil if none are stored
	Get(ctx context.Context, channelID string) (*entities.ChannelSettings, error)

	// GetAll returns every stored channel configuration
	GetAll(ctx context.Context) ([]*entities.ChannelSettings, error)

	// GetByGuild returns the configurations belonging to one guild
	GetByGuild(ctx context.Context, guildID string) ([]*entities.ChannelSettings, error)

	// Write creates or replaces the settings for settings.ChannelID
	Write(ctx context.Context, settings *entities.ChannelSettings) error

	// Update re-reads the stored settings, applies mutate and writes the
	// result. It returns nil, nil if the record no longer exists.
	Update(ctx context.Context, channelID string, mutate func(*entities.ChannelSettings)) (*entities.ChannelSettings, error)

	// Delete removes the settings for a channel. Deleting a missing record is
	// not an error.
	Delete(ctx context.Context, channelID string) error
}
