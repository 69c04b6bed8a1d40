package sticky

import (
	"stickybot/bot/common"
	"stickybot/domain/services"

	"github.com/bwmarrin/discordgo"
)

// Command names
const (
	CommandCreate = "sticky-create"
	CommandCheck  = "sticky-check"
	CommandDelete = "sticky-delete"
	CommandIgnore = "sticky-ignore"
)

// Feature handles the sticky slash commands
type Feature struct {
	service *services.StickyService
}

// NewFeature creates a new sticky feature instance
func NewFeature(service *services.StickyService) *Feature {
	return &Feature{
		service: service,
	}
}

// Handles reports whether name is one of this feature's commands
func (f *Feature) Handles(name string) bool {
	switch name {
	case CommandCreate, CommandCheck, CommandDelete, CommandIgnore:
		return true
	}
	return false
}

// HandleCommand routes sticky commands to appropriate handlers
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.GuildID == "" {
		common.RespondWithError(s, i, "Sticky commands only work in servers.", true)
		return
	}
	// Default permissions can be overridden per guild, so check again
	if !common.HasPermission(i, discordgo.PermissionManageMessages) {
		common.RespondWithError(s, i, "You need the Manage Messages permission to manage stickies.", true)
		return
	}

	switch i.ApplicationCommandData().Name {
	case CommandCreate:
		f.handleCreate(s, i)
	case CommandCheck:
		f.handleCheck(s, i)
	case CommandDelete:
		f.handleDelete(s, i)
	case CommandIgnore:
		f.handleIgnore(s, i)
	}
}

// Commands returns the slash command definitions of this feature
func Commands() []*discordgo.ApplicationCommand {
	manageMessages := int64(discordgo.PermissionManageMessages)
	dmPermission := false
	minDebounce := float64(0)

	return []*discordgo.ApplicationCommand{
		{
			Name:                     CommandCreate,
			Description:              "Creates a sticky from the given message ID.",
			DefaultMemberPermissions: &manageMessages,
			DMPermission:             &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "channel",
					Description:  "The channel to create the sticky in.",
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
					Required:     true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message-id",
					Description: "The ID or link of the message to create a sticky from (must be in the same channel).",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "ignore-bots",
					Description: "Ignore messages from bots. (Default: Yes)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "silent",
					Description: "If set, reposting the sticky will not send notifications. (Default: Yes)",
				},
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "debounce",
					Description: "Wait this many milliseconds after the last message before reposting. (Default: 0)",
					MinValue:    &minDebounce,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "override",
					Description: "Override the current sticky.",
				},
			},
		},
		{
			Name:                     CommandCheck,
			Description:              "Checks if a sticky exists in the channel.",
			DefaultMemberPermissions: &manageMessages,
			DMPermission:             &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				channelOption("The channel to check the sticky in. (Default: Current channel)"),
			},
		},
		{
			Name:                     CommandDelete,
			Description:              "Deletes the sticky in the channel.",
			DefaultMemberPermissions: &manageMessages,
			DMPermission:             &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				channelOption("The channel to delete the sticky in. (Default: Current channel)"),
			},
		},
		{
			Name:                     CommandIgnore,
			Description:              "Stops (or resumes) reposting the sticky for a user's messages.",
			DefaultMemberPermissions: &manageMessages,
			DMPermission:             &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "The user whose messages should not move the sticky.",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "ignored",
					Description: "Ignore the user. Set to false to stop ignoring. (Default: Yes)",
				},
				channelOption("The channel of the sticky. (Default: Current channel)"),
			},
		},
	}
}

func channelOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:         discordgo.ApplicationCommandOptionChannel,
		Name:         "channel",
		Description:  description,
		ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
	}
}
