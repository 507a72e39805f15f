package extraction

import (
	"strings"
	"unicode"
)

// markupChars are stripped one by one. Braces and brackets are kept so that
// JSON survives sanitization.
const markupChars = "*#_`>-"

// Sanitize removes markdown markup characters, collapses every whitespace run
// to a single space and trims the result.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		if strings.ContainsRune(markupChars, r) {
			continue
		}
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if pendingSpace && b.Len() > 0 {
			b.WriteByte(' ')
		}
		pendingSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
