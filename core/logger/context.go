package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode"
)

type ctxKey int

const (
	keyRID ctxKey = iota
	keyUpdateID
	keyUserID
	keyChatID
	keyHandler
	keyLogger
)

func withValue(ctx context.Context, key ctxKey, v any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	s, _ := ctx.Value(key).(string)
	return s
}

func int64Value(ctx context.Context, key ctxKey) int64 {
	if ctx == nil {
		return 0
	}
	switch v := ctx.Value(key).(type) {
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// WithLogger stores log in ctx; a nil logger leaves ctx untouched.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	if log == nil {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withValue(ctx, keyLogger, log)
}

// FromContext returns the logger stored in ctx or the base logger.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(keyLogger).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return L
}

// WithRID attaches the update correlation id.
func WithRID(ctx context.Context, rid string) context.Context {
	return withValue(ctx, keyRID, rid)
}

// RIDFrom extracts the correlation id.
func RIDFrom(ctx context.Context) string { return stringValue(ctx, keyRID) }

// WithUpdateMeta attaches update, user and chat identifiers.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	ctx = withValue(ctx, keyUpdateID, int64(updateID))
	ctx = withValue(ctx, keyUserID, userID)
	return withValue(ctx, keyChatID, chatID)
}

// WithHandler stores the routed handler name.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withValue(ctx, keyHandler, handler)
}

// HandlerFrom returns the routed handler name.
func HandlerFrom(ctx context.Context) string { return stringValue(ctx, keyHandler) }

// UserIDFrom returns the Telegram user id.
func UserIDFrom(ctx context.Context) int64 { return int64Value(ctx, keyUserID) }

// ChatIDFrom returns the chat id.
func ChatIDFrom(ctx context.Context) int64 { return int64Value(ctx, keyChatID) }

// UpdateIDFrom returns the update id.
func UpdateIDFrom(ctx context.Context) int { return int(int64Value(ctx, keyUpdateID)) }

// BuildRID returns a correlation identifier in the format updateID:chatID:userID.
func BuildRID(updateID int, chatID, userID int64) string {
	return fmt.Sprintf("%d:%d:%d", updateID, chatID, userID)
}

// CompactRID renders a BuildRID value as dot separated base36 segments.
// Other inputs are returned unchanged.
func CompactRID(rid string) string {
	rid = strings.TrimSpace(rid)
	parts := strings.Split(rid, ":")
	if len(parts) != 3 {
		return rid
	}
	for i, part := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return rid
		}
		parts[i] = strconv.FormatInt(n, 36)
	}
	return strings.Join(parts, ".")
}

// SanitizeLimit drops control characters (keeping newline and tab) and cuts s to max runes.
func SanitizeLimit(s string, max int) string {
	if max <= 0 || s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	n := 0
	for _, r := range s {
		if r != '\n' && r != '\t' && (unicode.IsControl(r) || unicode.Is(unicode.Cf, r)) {
			continue
		}
		if n == max {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
