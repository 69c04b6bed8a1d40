package sticky

import (
	"testing"

	"stickybot/bot/common"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testGuildID   = "900000000000000001"
	testChannelID = "900000000000000100"
	otherChannel  = "900000000000000200"
	testMessageID = "900000000000005000"
)

func commandInteraction(name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   testGuildID,
			ChannelID: testChannelID,
			Channel:   &discordgo.Channel{ID: testChannelID, Name: "general"},
			Member:    &discordgo.Member{User: &discordgo.User{ID: "u1", Username: "mod"}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
				Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
					Channels: map[string]*discordgo.Channel{
						otherChannel: {ID: otherChannel, Name: "announcements"},
					},
				},
			},
		},
	}
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func boolOpt(name string, value bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: value}
}

func intOpt(name string, value float64) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: value}
}

func channelOpt(id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: "channel", Type: discordgo.ApplicationCommandOptionChannel, Value: id}
}

func TestResolveChannel(t *testing.T) {
	t.Run("defaults to current channel", func(t *testing.T) {
		channel := resolveChannel(commandInteraction(CommandCheck))
		assert.Equal(t, testChannelID, channel.ID)
		assert.Equal(t, "general", channel.Name)
		assert.Equal(t, testGuildID, channel.GuildID)
	})

	t.Run("uses resolved option", func(t *testing.T) {
		channel := resolveChannel(commandInteraction(CommandCheck, channelOpt(otherChannel)))
		assert.Equal(t, otherChannel, channel.ID)
		assert.Equal(t, "announcements", channel.Name)
		assert.Equal(t, testGuildID, channel.GuildID)
	})
}

func TestParseCreateRequest(t *testing.T) {
	i := commandInteraction(CommandCreate,
		channelOpt(testChannelID),
		stringOpt("message-id", testMessageID),
		boolOpt("ignore-bots", false),
		intOpt("debounce", 2500),
		boolOpt("override", true),
	)

	req, err := parseCreateRequest(i)
	require.NoError(t, err)
	assert.Equal(t, testChannelID, req.Channel.ID)
	assert.Equal(t, testMessageID, req.MessageID)
	require.NotNil(t, req.IgnoreBots)
	assert.False(t, *req.IgnoreBots)
	assert.Nil(t, req.Silent)
	require.NotNil(t, req.Debounce)
	assert.Equal(t, int64(2500), *req.Debounce)
	assert.True(t, req.Override)
	assert.Equal(t, "u1", req.CreatorID)
}

func TestParseCreateRequest_MessageLinks(t *testing.T) {
	link := func(guild, channel string) string {
		return common.FormatDiscordMessageLink(guild, channel, testMessageID)
	}

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "raw id", input: testMessageID},
		{name: "link to same channel", input: link(testGuildID, testChannelID)},
		{name: "link to other channel", input: link(testGuildID, otherChannel), wantErr: true},
		{name: "link to other guild", input: link("900000000000000009", testChannelID), wantErr: true},
		{name: "garbage", input: "hello", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := commandInteraction(CommandCreate, channelOpt(testChannelID), stringOpt("message-id", tt.input))
			req, err := parseCreateRequest(i)
			if tt.wantErr {
				var botErr *common.BotError
				require.ErrorAs(t, err, &botErr)
				assert.Contains(t, botErr.UserMessage, "# Invalid message")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testMessageID, req.MessageID)
		})
	}
}

func TestParseIgnoreRequest(t *testing.T) {
	userOpt := &discordgo.ApplicationCommandInteractionDataOption{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "u9"}

	req := parseIgnoreRequest(commandInteraction(CommandIgnore, userOpt))
	assert.Equal(t, "u9", req.UserID)
	assert.True(t, req.Ignored)
	assert.Equal(t, testChannelID, req.Channel.ID)

	req = parseIgnoreRequest(commandInteraction(CommandIgnore, userOpt, boolOpt("ignored", false), channelOpt(otherChannel)))
	assert.False(t, req.Ignored)
	assert.Equal(t, otherChannel, req.Channel.ID)
}

func TestCommands(t *testing.T) {
	commands := Commands()
	require.Len(t, commands, 4)

	feature := NewFeature(nil)
	for _, cmd := range commands {
		assert.True(t, feature.Handles(cmd.Name), cmd.Name)
		require.NotNil(t, cmd.DefaultMemberPermissions)
		assert.Equal(t, int64(discordgo.PermissionManageMessages), *cmd.DefaultMemberPermissions)
	}
	assert.False(t, feature.Handles("balance"))
}
