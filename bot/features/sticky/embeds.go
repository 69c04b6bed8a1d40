package sticky

import (
	"strconv"
	"strings"

	"stickybot/bot/common"
	"stickybot/domain/entities"

	"github.com/bwmarrin/discordgo"
)

const (
	embedColor          = 0x5865F2
	webhookFieldLength  = 60
	templateBodyMaxSize = 3500
)

type templateBody struct {
	Content string                    `json:"content"`
	Embeds  []*discordgo.MessageEmbed `json:"embeds"`
}

// BuildSettingsEmbed renders the settings of a sticky for moderators
func BuildSettingsEmbed(settings *entities.ChannelSettings) *discordgo.MessageEmbed {
	title := settings.ChannelName
	if title == "" {
		title = settings.ChannelID
	}

	body := common.WrapJSONInCode(templateBody{
		Content: settings.Content,
		Embeds:  settings.Embeds,
	}, common.CodeOptions{MaxLength: templateBodyMaxSize, Multiline: true})

	webhookURL := settings.WebhookURL
	if webhookURL == "" {
		webhookURL = "-"
	}
	webhookID := settings.WebhookID
	if webhookID == "" {
		webhookID = "-"
	}

	fields := []*discordgo.MessageEmbedField{
		inlineField("Channel ID", common.WrapInCode(settings.ChannelID, common.CodeOptions{})),
		inlineField("Channel Name", common.WrapInCode(orDash(settings.ChannelName), common.CodeOptions{})),
		inlineField("Ignore bots?", yesNo(settings.IgnoreBots)),
		inlineField("Silent?", yesNo(settings.Silent)),
		inlineField("Debounce (ms)", strconv.FormatInt(settings.Debounce, 10)),
		inlineField("Template ID", common.WrapInCode(orDash(settings.TemplateMessageID()), common.CodeOptions{})),
		inlineField("Webhook (ID)", common.WrapInCode(webhookID, common.CodeOptions{MaxLength: webhookFieldLength})),
		inlineField("Webhook (URL)", common.WrapInCode(webhookURL, common.CodeOptions{MaxLength: webhookFieldLength})),
	}
	if ignored := settings.IgnoredUserIDs.Items(); len(ignored) > 0 {
		mentions := make([]string, 0, len(ignored))
		for _, userID := range ignored {
			mentions = append(mentions, "<@"+userID+">")
		}
		fields = append(fields, &discordgo.MessageEmbedField{Name: "Ignored users", Value: strings.Join(mentions, ", ")})
	}

	return &discordgo.MessageEmbed{
		Title:       title,
		Description: "> These are the settings for <#" + settings.ChannelID + ">:\n" + body,
		Color:       embedColor,
		Fields:      fields,
	}
}

func inlineField(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
