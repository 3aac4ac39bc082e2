package nlu

import (
	"regexp"
	"unicode/utf8"
)

const (
	MaxPromptRunes     = 1200
	MaxToolResultRunes = 800
	truncatedMarker    = " …[truncated]"
)

var (
	cardNumberPattern = regexp.MustCompile(`\b\d{13,19}\b`)
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

// MaskPII hides full card numbers (keeping the last 4 digits) and email
// addresses.
func MaskPII(s string) string {
	s = cardNumberPattern.ReplaceAllStringFunc(s, func(m string) string {
		return "****" + m[len(m)-4:]
	})
	return emailPattern.ReplaceAllString(s, "[redacted-email]")
}

// Truncate cuts s to max runes and appends the truncation marker.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + truncatedMarker
}

// Redact is applied to every user text before it leaves the process.
func Redact(s string) string {
	return Truncate(MaskPII(s), MaxPromptRunes)
}

func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
