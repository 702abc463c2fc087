package util

import (
	"regexp"
	"strconv"
)

var (
	reNonNumeric   = regexp.MustCompile(`[^0-9.]`)
	reLeadingFloat = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)`)
)

// ParseWeight coerces a loosely formatted weight ("250 g", "1.5kg") into a number.
// Everything but digits and dots is dropped and the longest leading decimal is parsed,
// so "1.2.3" reads as 1.2. ok is false when nothing numeric remains.
func ParseWeight(raw string) (value float64, ok bool) {
	compact := reNonNumeric.ReplaceAllString(raw, "")
	token := reLeadingFloat.FindString(compact)
	if token == "" {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// FormatNumber renders a number in its shortest decimal form ("12", "1.5").
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
