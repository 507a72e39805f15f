package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixEncoding(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"Comfort â€” all day", "Comfort — all day"},
		{"Itâ€™s soft", "It’s soft"},
		{"â€œBest fitâ€�", "“Best fit”"},
		{"Wait for itâ€¦", "Wait for it…"},
		{"CafÃ© cotton", "Café cotton"},
		{"Â 50% off", " 50% off"},
		{"bare â€ mark", "bare ' mark"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fixEncoding(tt.in), "input %q", tt.in)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, parseDate("31-01-2025"))
	assert.Equal(t, want, parseDate("2025-01-31"))
	assert.Equal(t, want, parseDate("31/01/2025"))
	assert.True(t, parseDate("01-31-2025").IsZero(), "month 31 is invalid")
	assert.True(t, parseDate("yesterday").IsZero())
	assert.True(t, parseDate("").IsZero())
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12.5", 12.5},
		{" 3 ", 3},
		{"1,234.5", 1234.5},
		{"", 0},
		{"n/a", 0},
		{"NaN", 0},
		{"Inf", 0},
		{"-4", -4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseNumber(tt.in), "input %q", tt.in)
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 0.02, ratio(2, 100))
	assert.Zero(t, ratio(5, 0))
	assert.Zero(t, ratio(5, -1))
}
