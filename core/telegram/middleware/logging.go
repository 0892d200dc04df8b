package middleware

import (
	"log/slog"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"
)

// seenUpdates remembers recently logged update ids so a receipt is written once.
type seenUpdates struct {
	mu   sync.Mutex
	ids  map[int]time.Time
	keep time.Duration
}

var receipts = &seenUpdates{ids: make(map[int]time.Time), keep: 10 * time.Second}

func (s *seenUpdates) first(id int) bool {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, ts := range s.ids {
		if now.Sub(ts) > s.keep {
			delete(s.ids, k)
		}
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = now
	return true
}

// LoggerMiddleware builds the per-update context (rid, ids) and writes a
// sampled debug receipt line once per update id.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		upd := c.Update()

		if logger.ShouldSampleDebug() && receipts.first(upd.ID) {
			attrs := []slog.Attr{slog.String("status", "ok")}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if u := c.Sender(); u != nil && u.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
			}
			switch {
			case upd.Callback != nil:
				key, payload := callbacks.Parse(upd.Callback)
				attrs = append(attrs,
					slog.String("cb_key", logger.SanitizeLimit(key, 128)),
					slog.String("payload", logger.SanitizeLimit(payload, 256)),
				)
			case upd.Message != nil:
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(upd.Message.Text, 256)))
			}
			logger.Debug(ctx, logger.CompTG, "update.received", attrs...)
		}
		return next(c)
	}
}
