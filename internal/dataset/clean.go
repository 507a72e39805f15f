package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// encodingFixer repairs UTF-8 text that was decoded as Windows-1252.
// Longer sequences come first so their prefix "â€" does not win.
var encodingFixer = strings.NewReplacer(
	"â€”", "—",
	"â€“", "–",
	"â€˜", "‘",
	"â€™", "’",
	"â€œ", "“",
	"â€�", "”",
	"â€‹", "",
	"â€¦", "…",
	"â€¢", "•",
	"â€‘", "-",
	"â€", "'",
	"Ã©", "é",
	"Â", "",
)

func fixEncoding(s string) string {
	if s == "" {
		return s
	}
	return encodingFixer.Replace(s)
}

var dateLayouts = []string{"02-01-2006", "2006-01-02", "02/01/2006"}

// parseDate accepts dd-mm-yyyy first. Unparseable input yields the zero time.
func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseNumber coerces a cell to a float. Failures, NaN and Inf become 0.
func parseNumber(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return num / den
}
