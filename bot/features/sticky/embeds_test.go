package sticky

import (
	"strings"
	"testing"

	"stickybot/domain/entities"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldValue(t *testing.T, embed *discordgo.MessageEmbed, name string) string {
	t.Helper()
	for _, field := range embed.Fields {
		if field.Name == name {
			return field.Value
		}
	}
	require.Failf(t, "missing field", "field %q not found", name)
	return ""
}

func TestBuildSettingsEmbed(t *testing.T) {
	settings := entities.NewDefaultChannelSettings(entities.ChannelRef{ID: "100", Name: "general", GuildID: "1"})
	settings.SetTemplate(entities.MessageRef{ID: "T1", Channel: settings.Ref()}, "read the rules", []*discordgo.MessageEmbed{{Title: "Rules"}})
	settings.WebhookID = "wh"
	settings.WebhookURL = "https://discord.com/api/webhooks/wh/" + strings.Repeat("x", 80)
	settings.Silent = false

	embed := BuildSettingsEmbed(settings)

	assert.Equal(t, "general", embed.Title)
	assert.True(t, strings.HasPrefix(embed.Description, "> These are the settings for <#100>:\n```json\n"))
	assert.Contains(t, embed.Description, `"content": "read the rules"`)
	assert.Contains(t, embed.Description, `"title": "Rules"`)

	assert.Equal(t, "`100`", fieldValue(t, embed, "Channel ID"))
	assert.Equal(t, "`general`", fieldValue(t, embed, "Channel Name"))
	assert.Equal(t, "Yes", fieldValue(t, embed, "Ignore bots?"))
	assert.Equal(t, "No", fieldValue(t, embed, "Silent?"))
	assert.Equal(t, "`T1`", fieldValue(t, embed, "Template ID"))
	assert.Equal(t, "`wh`", fieldValue(t, embed, "Webhook (ID)"))
	assert.True(t, strings.HasSuffix(fieldValue(t, embed, "Webhook (URL)"), " […]`"))

	for _, field := range embed.Fields {
		assert.NotEqual(t, "Ignored users", field.Name)
	}
}

func TestBuildSettingsEmbed_LegacyRecord(t *testing.T) {
	settings := &entities.ChannelSettings{ChannelID: "100", TemplateID: "T0"}
	settings.IgnoreUser("u2")
	settings.IgnoreUser("u1")

	embed := BuildSettingsEmbed(settings)

	assert.Equal(t, "100", embed.Title)
	assert.Equal(t, "`-`", fieldValue(t, embed, "Webhook (URL)"))
	assert.Equal(t, "`T0`", fieldValue(t, embed, "Template ID"))
	assert.Equal(t, "<@u1>, <@u2>", fieldValue(t, embed, "Ignored users"))
}
