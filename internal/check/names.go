package check

import (
	"strings"
	"unicode"
)

// SplitName takes the first and last whitespace-separated tokens of a full
// name. A single token is used as both.
func SplitName(fullName string) (first, last string) {
	parts := strings.Fields(fullName)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], parts[0]
	default:
		return parts[0], parts[len(parts)-1]
	}
}

// NormalizePhone converts a US number to E.164. Ten digits get a +1 prefix,
// eleven digits starting with 1 get a +. Anything else is rejected.
func NormalizePhone(phone string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, phone)

	switch {
	case len(digits) == 10:
		return "+1" + digits, true
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits, true
	default:
		return "", false
	}
}

// validJurisdiction reports whether code is a two-letter code.
func validJurisdiction(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
