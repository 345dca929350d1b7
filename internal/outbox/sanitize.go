package outbox

import "strings"

const (
	MaxErrorLength       = 1000
	errorTruncatedSuffix = "... (truncated)"
)

// SanitizeError trims err's message and bounds it to MaxErrorLength runes so
// it fits the last_error column.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return truncate(strings.TrimSpace(err.Error()), MaxErrorLength, errorTruncatedSuffix)
}

func truncate(msg string, maxRunes int, suffix string) string {
	runes := []rune(msg)
	if len(runes) <= maxRunes {
		return msg
	}

	suffixRunes := []rune(suffix)
	if maxRunes <= len(suffixRunes) {
		return string(runes[:maxRunes])
	}

	return string(runes[:maxRunes-len(suffixRunes)]) + suffix
}
