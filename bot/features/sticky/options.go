package sticky

import (
	"errors"

	"stickybot/bot/common"
	"stickybot/domain/entities"
	"stickybot/domain/services"

	"github.com/bwmarrin/discordgo"
)

// resolveChannel returns the channel named by the "channel" option, falling
// back to the channel the command was used in
func resolveChannel(i *discordgo.InteractionCreate) entities.ChannelRef {
	data := i.ApplicationCommandData()

	channel := entities.ChannelRef{ID: i.ChannelID, GuildID: i.GuildID}
	if opt := data.GetOption("channel"); opt != nil {
		channel.ID = opt.ChannelValue(nil).ID
	} else if i.Channel != nil {
		channel.Name = i.Channel.Name
	}

	if data.Resolved != nil {
		if resolved, ok := data.Resolved.Channels[channel.ID]; ok && resolved != nil {
			channel.Name = resolved.Name
		}
	}
	return channel
}

// parseCreateRequest builds a CreateStickyRequest from /sticky-create options
func parseCreateRequest(i *discordgo.InteractionCreate) (services.CreateStickyRequest, error) {
	data := i.ApplicationCommandData()
	req := services.CreateStickyRequest{
		Channel:   resolveChannel(i),
		CreatorID: common.InteractionUserID(i),
	}

	if opt := data.GetOption("message-id"); opt != nil {
		ref, err := common.ParseMessageReference(opt.StringValue(), i.GuildID)
		if errors.Is(err, common.ErrForeignMessageLink) {
			return req, common.NewUserError(
				"# Invalid message\nThe message link points to another server.",
				"message link points to another guild",
			)
		}
		if err != nil {
			return req, common.NewUserError(
				"# Invalid message\nGive the ID of a message or a link to it.",
				"invalid message reference",
			)
		}
		if ref.ChannelID != "" && ref.ChannelID != req.Channel.ID {
			return req, common.NewUserError(
				"# Invalid message\nThe message must be in the same channel as the sticky.",
				"message link points to another channel",
			)
		}
		req.MessageID = ref.MessageID
	}

	if opt := data.GetOption("ignore-bots"); opt != nil {
		v := opt.BoolValue()
		req.IgnoreBots = &v
	}
	if opt := data.GetOption("silent"); opt != nil {
		v := opt.BoolValue()
		req.Silent = &v
	}
	if opt := data.GetOption("debounce"); opt != nil {
		v := opt.IntValue()
		req.Debounce = &v
	}
	if opt := data.GetOption("override"); opt != nil {
		req.Override = opt.BoolValue()
	}
	return req, nil
}

// ignoreRequest holds the parsed /sticky-ignore options
type ignoreRequest struct {
	Channel entities.ChannelRef
	UserID  string
	Ignored bool
}

func parseIgnoreRequest(i *discordgo.InteractionCreate) ignoreRequest {
	data := i.ApplicationCommandData()
	req := ignoreRequest{
		Channel: resolveChannel(i),
		Ignored: true,
	}
	if opt := data.GetOption("user"); opt != nil {
		req.UserID = opt.UserValue(nil).ID
	}
	if opt := data.GetOption("ignored"); opt != nil {
		req.Ignored = opt.BoolValue()
	}
	return req
}
