package services

import (
	"regexp"
	"strings"
)

var (
	rePhoneAllowed = regexp.MustCompile(`^[0-9+\-\s().]+$`)
	reE164         = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
)

// NormPhone normalizes a contact number to +E.164. Ten-digit numbers are
// taken as Greek national numbers. Empty input is accepted as "".
func NormPhone(p string) (string, bool) {
	s := strings.TrimSpace(p)
	if s == "" {
		return "", true
	}
	if !rePhoneAllowed.MatchString(s) {
		return "", false
	}
	s = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(s)

	switch {
	case strings.HasPrefix(s, "00"):
		s = "+" + s[2:]
	case strings.HasPrefix(s, "+"):
	case len(s) == 10 && (s[0] == '2' || s[0] == '6'):
		s = "+30" + s
	case len(s) == 12 && strings.HasPrefix(s, "30"):
		s = "+" + s
	default:
		s = "+" + s
	}
	if !reE164.MatchString(s) {
		return "", false
	}
	return s, true
}
