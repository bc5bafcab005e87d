package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "tagged fence",
			in:   "Here is the result:\n```json\n{\"title\": \"PhD Scholarship\"}\n```\nDone.",
			want: `{"title": "PhD Scholarship"}`,
		},
		{
			name: "untagged fence",
			in:   "```\n{\"title\": \"Camp\"}\n```",
			want: `{"title": "Camp"}`,
		},
		{
			name: "fence with other language tag",
			in:   "```javascript\n{\"a\": 1}\n```",
			want: `{"a": 1}`,
		},
		{
			name: "leading prose before object",
			in:   "Sure! The extracted data is {\"a\": 1}",
			want: `{"a": 1}`,
		},
		{
			name: "bare object passes through",
			in:   `{"a": 1}`,
			want: `{"a": 1}`,
		},
		{
			name: "bare array passes through",
			in:   `[{"a": 1}, {"b": 2}]`,
			want: `[{"a": 1}, {"b": 2}]`,
		},
		{
			name: "unterminated fence",
			in:   "```json\n{\"a\": 1}",
			want: `{"a": 1}`,
		},
		{
			name: "no json at all",
			in:   "I could not find any opportunities.",
			want: "I could not find any opportunities.",
		},
		{
			name: "whitespace trimmed",
			in:   "  \n{\"a\": 1}\n  ",
			want: `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestTrimToBrace(t *testing.T) {
	got, ok := trimToBrace("prefix {\"a\": 1}")
	assert.True(t, ok)
	assert.Equal(t, `{"a": 1}`, got)

	_, ok = trimToBrace("no braces here")
	assert.False(t, ok)

	got, ok = trimToBrace(`[1, 2]`)
	assert.True(t, ok)
	assert.Equal(t, `[1, 2]`, got)
}
