package entities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultChannelSettings(t *testing.T) {
	s := NewDefaultChannelSettings(ChannelRef{ID: "100", Name: "general", GuildID: "1"})

	assert.Equal(t, "100", s.ChannelID)
	assert.Equal(t, "general", s.ChannelName)
	assert.Equal(t, "1", s.GuildID)
	assert.True(t, s.Silent)
	assert.True(t, s.IgnoreBots)
	assert.Equal(t, int64(0), s.Debounce)
	assert.False(t, s.IsDebouncing)
	assert.Nil(t, s.LastMessageID)
	assert.False(t, s.HasTemplate())
	assert.False(t, s.HasWebhook())
}

func TestChannelSettings_TemplateResolution(t *testing.T) {
	tests := []struct {
		name        string
		settings    ChannelSettings
		wantMessage string
		wantChannel string
	}{
		{
			name:        "legacy template id",
			settings:    ChannelSettings{ChannelID: "100", TemplateID: "T1"},
			wantMessage: "T1",
			wantChannel: "100",
		},
		{
			name: "structured template wins",
			settings: ChannelSettings{
				ChannelID:  "100",
				TemplateID: "old",
				Template:   &MessageRef{ID: "T2", Channel: ChannelRef{ID: "200"}},
			},
			wantMessage: "T2",
			wantChannel: "200",
		},
		{
			name:        "nothing configured",
			settings:    ChannelSettings{ChannelID: "100"},
			wantMessage: "",
			wantChannel: "100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.settings.TemplateMessageID())
			assert.Equal(t, tt.wantChannel, tt.settings.TemplateChannelID())
			assert.Equal(t, tt.wantMessage != "", tt.settings.HasTemplate())
		})
	}
}

func TestChannelSettings_SetTemplate(t *testing.T) {
	s := NewDefaultChannelSettings(ChannelRef{ID: "100"})

	s.SetTemplate(
		MessageRef{ID: "T1", Channel: ChannelRef{ID: "100", Name: "general", GuildID: "9"}},
		"hello",
		[]*discordgo.MessageEmbed{{Title: "rules"}},
	)

	assert.Equal(t, "T1", s.TemplateID)
	require.NotNil(t, s.Template)
	assert.Equal(t, "general", s.Template.Channel.Name)
	assert.Equal(t, "hello", s.Content)
	assert.Equal(t, "rules", s.Embeds[0].Title)
	assert.Equal(t, "9", s.GuildID)

	s.SetTemplate(MessageRef{ID: "T2", Channel: ChannelRef{ID: "100"}}, "bye", nil)
	assert.Equal(t, "T2", s.TemplateMessageID())
	assert.NotNil(t, s.Embeds)
	assert.Equal(t, "9", s.GuildID)
}

func TestChannelSettings_DebounceDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), (&ChannelSettings{Debounce: -5}).DebounceDuration())
	assert.Equal(t, time.Duration(0), (&ChannelSettings{}).DebounceDuration())
	assert.Equal(t, 250*time.Millisecond, (&ChannelSettings{Debounce: 250}).DebounceDuration())
}

func TestChannelSettings_IgnoredUsers(t *testing.T) {
	s := &ChannelSettings{}
	assert.False(t, s.IsUserIgnored("u1"))

	s.IgnoreUser("u1")
	assert.True(t, s.IsUserIgnored("u1"))

	s.UnignoreUser("u1")
	assert.False(t, s.IsUserIgnored("u1"))
}

func TestChannelSettings_JSONShape(t *testing.T) {
	s := NewDefaultChannelSettings(ChannelRef{ID: "100", Name: "general", GuildID: "1"})
	s.TemplateID = "T1"
	s.SetLastMessage("M1")
	s.IgnoreUser("u2")

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "100", doc["channelId"])
	assert.Equal(t, "M1", doc["lastMessageId"])
	assert.Equal(t, false, doc["isDebouncing"])
	assert.Equal(t, float64(0), doc["debounce"])
	assert.Equal(t, map[string]any{"$set": []any{"u2"}}, doc["ignoredUserIds"])

	var decoded ChannelSettings
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "M1", decoded.LastMessage())
	assert.True(t, decoded.IsUserIgnored("u2"))
}

func TestChannelSettings_LegacyRecordDecodes(t *testing.T) {
	legacy := `{
		"channelId": "100",
		"channelName": "general",
		"silent": true,
		"ignoreBots": true,
		"lastMessageId": null,
		"templateId": "T1",
		"webhookId": "W1",
		"content": "hi",
		"embeds": []
	}`

	var s ChannelSettings
	require.NoError(t, json.Unmarshal([]byte(legacy), &s))
	assert.Equal(t, "T1", s.TemplateMessageID())
	assert.Equal(t, "", s.LastMessage())
	assert.True(t, s.HasWebhook())
	assert.Empty(t, s.GuildID)
}
