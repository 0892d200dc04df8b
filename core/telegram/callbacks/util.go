package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// ParseData splits telebot's "\f<unique>|<payload>" callback encoding.
// Data without the leading form feed is treated as a bare token.
func ParseData(data string) (unique, payload string) {
	data = strings.TrimPrefix(data, "\f")
	unique, payload, _ = strings.Cut(data, "|")
	return strings.TrimSpace(unique), payload
}

// Parse returns the action key and payload of cb. A Unique already
// resolved by telebot wins over the raw data.
func Parse(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	return ParseData(cb.Data)
}
