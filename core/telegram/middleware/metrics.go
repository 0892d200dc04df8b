package middleware

import (
	tele "gopkg.in/telebot.v4"
)

const (
	messagesKey = "messages"
	keyboardKey = "kb"
)

// metricsContext counts outgoing messages and edits made through the context.
type metricsContext struct{ tele.Context }

func (m metricsContext) count(opts []any, err error) error {
	if err != nil {
		return err
	}
	n, _ := m.Get(messagesKey).(int)
	m.Set(messagesKey, n+1)
	if hasKeyboard(opts) {
		m.Set(keyboardKey, true)
	}
	return nil
}

func hasKeyboard(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return true
			}
		case *tele.ReplyMarkup:
			if v != nil {
				return true
			}
		}
	}
	return false
}

func (m metricsContext) Send(what any, opts ...any) error {
	return m.count(opts, m.Context.Send(what, opts...))
}

func (m metricsContext) Reply(what any, opts ...any) error {
	return m.count(opts, m.Context.Reply(what, opts...))
}

func (m metricsContext) Edit(what any, opts ...any) error {
	return m.count(opts, m.Context.Edit(what, opts...))
}

func (m metricsContext) EditCaption(caption string, opts ...any) error {
	return m.count(opts, m.Context.EditCaption(caption, opts...))
}

// MessageMetricsMiddleware resets the counters read by GetCounters and wraps the context.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(messagesKey, 0)
		c.Set(keyboardKey, false)
		return next(metricsContext{Context: c})
	}
}

// GetCounters reads the message count and keyboard flag recorded for c.
func GetCounters(c tele.Context) (int, bool) {
	msgs, _ := c.Get(messagesKey).(int)
	kb, _ := c.Get(keyboardKey).(bool)
	return msgs, kb
}
