package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// DefaultCodeMaxLength keeps wrapped values well inside Discord's message limits
const DefaultCodeMaxLength = 1500

var (
	whitespaceRegex  = regexp.MustCompile(`\s+`)
	snowflakeRegex   = regexp.MustCompile(`^\d{15,25}$`)
	messageLinkRegex = regexp.MustCompile(`channels/(\d+|@me)/(\d+)/(\d+)`)
)

// ErrInvalidMessageReference is returned for input that is neither a message ID nor a link
var ErrInvalidMessageReference = errors.New("not a message ID or message link")

// ErrForeignMessageLink is returned for a message link pointing into another guild
var ErrForeignMessageLink = errors.New("message link points to another server")

// CodeOptions tunes WrapInCode
type CodeOptions struct {
	MaxLength int    // 0 means DefaultCodeMaxLength
	Language  string // Language hint for multi line blocks
	Multiline bool   // Force a fenced block even for single line values
}

// SanitizeWhitespace collapses every whitespace run to a single space
func SanitizeWhitespace(value string) string {
	return whitespaceRegex.ReplaceAllString(value, " ")
}

// MaxLength truncates value to maxLength runes, marking the cut
func MaxLength(value string, maxLength int) string {
	runes := []rune(value)
	if len(runes) <= maxLength {
		return value
	}
	return string(runes[:maxLength]) + " […]"
}

// WrapInCode wraps value in inline code, or a fenced block when it spans lines
func WrapInCode(value string, opts CodeOptions) string {
	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultCodeMaxLength
	}
	value = MaxLength(value, maxLength)

	if opts.Multiline || strings.Contains(value, "\n") {
		return "```" + opts.Language + "\n" + value + "\n```"
	}
	return "`" + value + "`"
}

// WrapJSONInCode serializes v and wraps it in a json code block
func WrapJSONInCode(v any, opts CodeOptions) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return WrapInCode(fmt.Sprintf("%v", v), opts)
	}
	if opts.Language == "" {
		opts.Language = "json"
	}
	return WrapInCode(string(data), opts)
}

// FormatDiscordMessageLink creates a Discord message link from guild, channel, and message IDs
func FormatDiscordMessageLink(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

// MessageReference identifies a message given as an ID or a link. ChannelID
// is empty when only an ID was given.
type MessageReference struct {
	ChannelID string
	MessageID string
}

// ParseMessageReference accepts a raw message ID or a message link. Links
// must point into guildID.
func ParseMessageReference(input, guildID string) (MessageReference, error) {
	input = strings.TrimSpace(input)
	if snowflakeRegex.MatchString(input) {
		return MessageReference{MessageID: input}, nil
	}

	match := messageLinkRegex.FindStringSubmatch(input)
	if match == nil {
		return MessageReference{}, fmt.Errorf("%w: %q", ErrInvalidMessageReference, input)
	}
	if match[1] != guildID {
		return MessageReference{}, ErrForeignMessageLink
	}
	return MessageReference{ChannelID: match[2], MessageID: match[3]}, nil
}
