// Package format fits outgoing text into Telegram message limits.
package format

import "unicode/utf8"

const (
	// MessageLimit is the longest text message Telegram accepts, in characters.
	MessageLimit = 4096
	// CaptionLimit is the longest media caption Telegram accepts, in characters.
	CaptionLimit = 1024
)

const ellipsis = "…"

// Fits reports whether text is at most limit characters long.
func Fits(text string, limit int) bool {
	return utf8.RuneCountInString(text) <= limit
}

// Truncate cuts text to limit characters, ending with an ellipsis when cut.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if Fits(text, limit) {
		return text
	}
	runes := []rune(text)
	if limit == 1 {
		return ellipsis
	}
	return string(runes[:limit-1]) + ellipsis
}
