package engine

import (
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`[-+]?\d*\.?\d+(?:[eE][-+]?\d+)?`)

// ParseNumber extracts a numeric value from raw user text. Thousands
// separators are stripped and the first signed decimal (optionally with
// an exponent) inside the text wins, so "1,234.5 litres" parses as
// 1234.5. Free text with no number returns ok=false, never zero: absence
// and zero are different answers.
func ParseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	s = strings.ReplaceAll(s, ",", "")
	match := numberPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
