package services

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmountCents reads a euro amount written with a comma or a dot as the
// decimal separator ("12,50", "12.5", "12") and returns it in cents.
func ParseAmountCents(s string) (int64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(math.Round(f * 100)), true
}
