package sticky

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stickybot/bot/common"
	"stickybot/domain/entities"
	"stickybot/domain/services"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// commandTimeout bounds the REST work behind a single command
const commandTimeout = 30 * time.Second

func (f *Feature) handleCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	req, err := parseCreateRequest(i)
	if err != nil {
		common.HandleError(s, i, err, false)
		return
	}

	if err := common.DeferResponse(s, i, false); err != nil {
		log.WithError(err).Error("Failed to defer sticky-create response")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	settings, err := f.service.CreateSticky(ctx, req)
	if err != nil {
		common.HandleError(s, i, createError(err, req), true)
		return
	}

	link := common.FormatDiscordMessageLink(i.GuildID, settings.TemplateChannelID(), settings.TemplateMessageID())
	content := fmt.Sprintf("# Created sticky\nFrom message %s.", link)
	if err := common.FollowUp(s, i, content, []*discordgo.MessageEmbed{BuildSettingsEmbed(settings)}); err != nil {
		log.WithError(err).Error("Failed to send sticky-create follow-up")
	}
}

// createError maps CreateSticky failures to moderator-facing messages
func createError(err error, req services.CreateStickyRequest) error {
	switch {
	case errors.Is(err, services.ErrStickyExists):
		return common.NewUserError(
			"# A sticky already exists\nUse the `override` option to replace it.",
			"sticky already exists",
		)
	case errors.Is(err, services.ErrInvalidDebounce):
		return common.NewUserError(
			"# Invalid debounce\nThe debounce must be zero or more milliseconds.",
			"negative debounce",
		)
	case errors.Is(err, services.ErrTemplateNotFound):
		return &common.BotError{
			UserMessage: fmt.Sprintf(
				"# Failed to fetch message\nCan't load message with ID %s in channel <#%s>. "+
					"The bot is probably missing permissions, or the message you chose is in a different channel. The error is:\n%s",
				common.WrapInCode(req.MessageID, common.CodeOptions{}),
				req.Channel.ID,
				common.WrapInCode(err.Error(), common.CodeOptions{}),
			),
			LogMessage: "failed to fetch template message",
			Err:        err,
		}
	case errors.Is(err, services.ErrWebhookUnavailable):
		return &common.BotError{
			UserMessage: "# Failed to create webhook\nThe bot is probably missing permissions. The error is:\n" +
				common.WrapInCode(err.Error(), common.CodeOptions{}),
			LogMessage: "failed to create webhook",
			Err:        err,
		}
	}
	return common.NewSystemError(err, "Failed to create sticky", "failed to create sticky")
}

func (f *Feature) handleCheck(s *discordgo.Session, i *discordgo.InteractionCreate) {
	channel := resolveChannel(i)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	settings, err := f.service.CheckSticky(ctx, channel.ID)
	if errors.Is(err, services.ErrNoSticky) || (err == nil && !settings.HasTemplate()) {
		common.HandleError(s, i, noStickyError(), false)
		return
	}
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "Failed to load sticky", "failed to check sticky"), false)
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         fmt.Sprintf("# Sticky for <#%s>", settings.ChannelID),
			Embeds:          []*discordgo.MessageEmbed{BuildSettingsEmbed(settings)},
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	})
	if err != nil {
		log.WithError(err).Error("Failed to send sticky-check response")
	}
}

func (f *Feature) handleDelete(s *discordgo.Session, i *discordgo.InteractionCreate) {
	channel := resolveChannel(i)

	if err := common.DeferResponse(s, i, false); err != nil {
		log.WithError(err).Error("Failed to defer sticky-delete response")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	deletedBy := "unknown"
	if user := common.InteractionUser(i); user != nil {
		deletedBy = user.Username
	}

	result, err := f.service.DeleteSticky(ctx, channel, deletedBy)
	var content string
	switch {
	case errors.Is(err, services.ErrNoSticky):
		common.HandleError(s, i, noStickyError(), true)
		return
	case err != nil && result == nil:
		common.HandleError(s, i, common.NewSystemError(err, "Error deleting sticky", "failed to delete sticky"), true)
		return
	case err != nil:
		// Settings are gone but the webhook survived
		common.HandleError(s, i, common.NewSystemError(err, "Error deleting sticky", "failed to delete sticky webhook"), true)
		return
	case !result.WebhookRemoved:
		content = "# Sticky partially deleted\nSticky settings were deleted, but no webhook found for this channel. " +
			"Please check the Integration settings of this channel manually."
	default:
		content = "# Sticky fully deleted\nSticky deleted."
	}

	if err := common.FollowUp(s, i, content, nil); err != nil {
		log.WithError(err).Error("Failed to send sticky-delete follow-up")
	}
}

func (f *Feature) handleIgnore(s *discordgo.Session, i *discordgo.InteractionCreate) {
	req := parseIgnoreRequest(i)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	settings, err := f.service.SetUserIgnored(ctx, req.Channel.ID, req.UserID, req.Ignored)
	if errors.Is(err, services.ErrNoSticky) {
		common.HandleError(s, i, noStickyError(), false)
		return
	}
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "Failed to update sticky", "failed to update ignored users"), false)
		return
	}

	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:         ignoreMessage(settings, req),
			AllowedMentions: &discordgo.MessageAllowedMentions{},
		},
	})
	if err != nil {
		log.WithError(err).Error("Failed to send sticky-ignore response")
	}
}

func ignoreMessage(settings *entities.ChannelSettings, req ignoreRequest) string {
	if req.Ignored {
		return fmt.Sprintf("# User ignored\nMessages from <@%s> no longer move the sticky in <#%s>.", req.UserID, settings.ChannelID)
	}
	return fmt.Sprintf("# User no longer ignored\nMessages from <@%s> move the sticky in <#%s> again.", req.UserID, settings.ChannelID)
}

func noStickyError() error {
	return common.NewUserError("# No sticky\nNo sticky exists in this channel.", "no sticky in channel")
}
