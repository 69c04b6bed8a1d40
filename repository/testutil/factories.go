package testutil

import (
	"stickybot/domain/entities"

	"github.com/bwmarrin/discordgo"
)

// CreateTestChannelSettings creates default settings for a channel in guild "1"
func CreateTestChannelSettings(channelID string) *entities.ChannelSettings {
	return entities.NewDefaultChannelSettings(entities.ChannelRef{
		ID:      channelID,
		Name:    "channel-" + channelID,
		GuildID: "1",
	})
}

// CreateTestSticky creates settings with a configured template and webhook
func CreateTestSticky(channelID, templateID, content string) *entities.ChannelSettings {
	settings := CreateTestChannelSettings(channelID)
	settings.SetTemplate(entities.MessageRef{ID: templateID, Channel: settings.Ref()}, content, []*discordgo.MessageEmbed{})
	settings.WebhookID = "wh-" + channelID
	settings.WebhookURL = "https://discord.com/api/webhooks/wh-" + channelID + "/token-" + channelID
	return settings
}

// CreateTestStickyWithDebounce creates a configured sticky with a debounce window
func CreateTestStickyWithDebounce(channelID string, debounceMs int64) *entities.ChannelSettings {
	settings := CreateTestSticky(channelID, "T-"+channelID, "hello")
	settings.Debounce = debounceMs
	return settings
}
