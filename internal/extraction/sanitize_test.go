package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"only whitespace", " \n\t ", ""},
		{"markdown heading and bold", "## **Result**\n\nCTR dropped", "Result CTR dropped"},
		{"code fence keeps braces", "```json\n{\"a\": 1}\n```", "json {\"a\": 1}"},
		{"hyphen bullets", "- first\n- second", "first second"},
		{"underscores and quotes", "> old_message", "oldmessage"},
		{"brackets survive", "[1, 2] {x}", "[1, 2] {x}"},
		{"unicode preserved", "  café —  naïve ", "café — naïve"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	inputs := []string{
		"**bold** _it_ `code` > quote - dash",
		"{\"hypotheses\": [{\"reason\": \"ctr drop\"}]}",
		"\n\n  spaced   out\ttext  ",
	}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once))
		assert.False(t, strings.ContainsAny(once, markupChars))
		assert.NotContains(t, once, "  ")
	}
}
