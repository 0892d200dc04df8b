package commands

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Parse splits "/name@bot args" into the lowercased "/name" and the trimmed args.
// ok is false when text is not a command.
func Parse(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if len(text) < 2 || text[0] != '/' {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text, " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		rest = head[i+1:] + " " + rest
		head = head[:i]
	}
	head, _, _ = strings.Cut(head, "@")
	if len(head) < 2 {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

const argsKey = "cmd_args"

// SetArgs stores the argument string of the routed command on c.
func SetArgs(c tele.Context, args string) {
	c.Set(argsKey, args)
}

// Args returns the argument string stored by SetArgs, or "".
func Args(c tele.Context) string {
	s, _ := c.Get(argsKey).(string)
	return s
}
