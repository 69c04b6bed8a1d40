package common

import (
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestBotError(t *testing.T) {
	cause := errors.New("HTTP 403 Forbidden")
	err := NewSystemError(cause, "Failed to create webhook", "webhook create failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "webhook create failed: HTTP 403 Forbidden", err.Error())
	assert.Equal(t, "# Failed to create webhook\nThe error is:\n`HTTP 403 Forbidden`", err.UserMessage)

	userErr := NewUserError("# No sticky", "no sticky in channel")
	assert.Equal(t, "no sticky in channel", userErr.Error())
	assert.False(t, userErr.Ephemeral)
}

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name   string
		member *discordgo.Member
		want   bool
	}{
		{"no member", nil, false},
		{"manage messages", &discordgo.Member{Permissions: discordgo.PermissionManageMessages}, true},
		{"administrator", &discordgo.Member{Permissions: discordgo.PermissionAdministrator}, true},
		{"send only", &discordgo.Member{Permissions: discordgo.PermissionSendMessages}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{Member: tt.member}}
			assert.Equal(t, tt.want, HasPermission(i, discordgo.PermissionManageMessages))
		})
	}
}

func TestInteractionUser(t *testing.T) {
	guild := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Member: &discordgo.Member{User: &discordgo.User{ID: "1"}},
	}}
	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "2"}}}

	assert.Equal(t, "1", InteractionUserID(guild))
	assert.Equal(t, "2", InteractionUserID(dm))
	assert.Empty(t, InteractionUserID(&discordgo.InteractionCreate{Interaction: &discordgo.Interaction{}}))
}
