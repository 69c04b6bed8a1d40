package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxLength(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		max      int
		expected string
	}{
		{"short", "abc", 5, "abc"},
		{"exact", "abcde", 5, "abcde"},
		{"truncated", "abcdefgh", 5, "abcde […]"},
		{"multibyte", "ääääää", 3, "äää […]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaxLength(tt.value, tt.max))
		})
	}
}

func TestWrapInCode(t *testing.T) {
	assert.Equal(t, "`123`", WrapInCode("123", CodeOptions{}))
	assert.Equal(t, "```\na\nb\n```", WrapInCode("a\nb", CodeOptions{}))
	assert.Equal(t, "```go\nx\n```", WrapInCode("x", CodeOptions{Language: "go", Multiline: true}))

	url := "https://discord.com/api/webhooks/123456789012345678/" + strings.Repeat("t", 68)
	wrapped := WrapInCode(url, CodeOptions{MaxLength: 60})
	assert.Equal(t, "`"+url[:60]+" […]`", wrapped)
}

func TestWrapJSONInCode(t *testing.T) {
	wrapped := WrapJSONInCode(map[string]any{"content": "hi"}, CodeOptions{})
	assert.Equal(t, "```json\n{\n  \"content\": \"hi\"\n}\n```", wrapped)
}

func TestSanitizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", SanitizeWhitespace("a \n\tb   c"))
}

func TestParseMessageReference(t *testing.T) {
	const guild = "111111111111111111"

	tests := []struct {
		name    string
		input   string
		want    MessageReference
		wantErr error
	}{
		{
			name:  "raw id",
			input: " 222222222222222222 ",
			want:  MessageReference{MessageID: "222222222222222222"},
		},
		{
			name:  "link",
			input: "https://discord.com/channels/111111111111111111/333333333333333333/444444444444444444",
			want:  MessageReference{ChannelID: "333333333333333333", MessageID: "444444444444444444"},
		},
		{
			name:  "canary link",
			input: "https://canary.discord.com/channels/111111111111111111/3/4",
			want:  MessageReference{ChannelID: "3", MessageID: "4"},
		},
		{
			name:    "other guild",
			input:   "https://discord.com/channels/999999999999999999/3/4",
			wantErr: ErrForeignMessageLink,
		},
		{
			name:    "direct message link",
			input:   "https://discord.com/channels/@me/3/4",
			wantErr: ErrForeignMessageLink,
		},
		{
			name:    "garbage",
			input:   "hello there",
			wantErr: ErrInvalidMessageReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMessageReference(tt.input, guild)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatDiscordMessageLink(t *testing.T) {
	assert.Equal(t, "https://discord.com/channels/1/2/3", FormatDiscordMessageLink("1", "2", "3"))
}
