package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/logger"
	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"
	"github.com/m3rciful/postbot/core/telegram/middleware"
)

// summary describes how one routed update ended.
type summary struct {
	handler string
	status  string
	outcome string
	extras  []slog.Attr
}

// handleWithSummary runs fn under the handler name and writes exactly one
// handler.handled line for the update.
func handleWithSummary(c tele.Context, s summary, fn func() error) error {
	start := time.Now()
	tghelpers.WithHandler(c, s.handler)
	err := fn()
	logHandlerSummary(c, s, start, err)
	return err
}

func logHandlerSummary(c tele.Context, s summary, start time.Time, err error) {
	ctx := tghelpers.WithHandler(c, s.handler)
	msgs, kb := middleware.GetCounters(c)

	status := s.status
	if status == "" {
		status = logger.Status(err)
	}
	outcome := s.outcome
	if outcome == "" {
		outcome = logger.Status(err)
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", s.handler),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	attrs = append(attrs, s.extras...)

	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelWarn
	}
	logger.Event(ctx, logger.CompTG, level, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

type coder interface{ Code() string }

// deriveErrorCode prefers an explicit Code() anywhere in the chain, then the error type name.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(t.Name())
	}
	return "UNKNOWN_ERROR"
}
