package license

import "strings"

// StatusUnconfirmed marks records found in the national registry listing, which
// does not expose a status column. Treat it as weaker evidence than a
// dedicated source's status.
const StatusUnconfirmed = "Unconfirmed - found in national registry"

var (
	activeKeywords   = []string{"active", "valid", "current"}
	negatingKeywords = []string{"invalid", "inactive", "not current"}
)

// NormalizeStatus maps free-form status text to an active flag by
// case-insensitive keyword match. Text with no keyword is inactive.
func NormalizeStatus(status string) bool {
	lower := strings.ToLower(strings.TrimSpace(status))
	if lower == "" {
		return false
	}
	for _, kw := range negatingKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	for _, kw := range activeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
