// Package router classifies inbound updates and dispatches each to exactly one handler.
package router

import (
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/postbot/core/telegram"
	"github.com/m3rciful/postbot/core/telegram/callbacks"
	"github.com/m3rciful/postbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"
	"github.com/m3rciful/postbot/core/telegram/middleware"
)

// Options configures the update router.
type Options struct {
	Registry *tg.Registry
	// AdminID guards commands registered as AdminOnly.
	AdminID       int64
	OnAdminReject tele.HandlerFunc
	// ConsumeAwaitingText reports whether the user was asked for free text,
	// clearing the request in the same step.
	ConsumeAwaitingText func(userID int64) bool
	// OnPendingText receives the text that answers such a request.
	OnPendingText tele.HandlerFunc
}

// Router holds the classification rules. Build it with New.
type Router struct {
	opts  Options
	admin tele.MiddlewareFunc
}

// New returns a router over opts.Registry.
func New(opts Options) *Router {
	if opts.Registry == nil {
		opts.Registry = tg.NewRegistry()
	}
	return &Router{
		opts: opts,
		admin: middleware.AdminOnlyMiddleware(middleware.AdminOptions{
			AdminID:  opts.AdminID,
			OnReject: opts.OnAdminReject,
		}),
	}
}

// Routes returns the text and callback routes served by the router.
func (r *Router) Routes() []tg.Route {
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: r.HandleText},
		{Endpoint: tele.OnCallback, Handler: r.HandleCallback},
	}
}

// HandleText classifies a text message: command, then menu caption, then the
// answer to a pending text request. Anything else is dropped.
func (r *Router) HandleText(c tele.Context) error {
	text := c.Text()

	if name, args, ok := commands.Parse(text); ok {
		key, cmd, found := r.opts.Registry.LookupCommand(name)
		if !found || cmd.Handler == nil {
			r.skip(c, "unknown_command", slog.String("op", name))
			return nil
		}
		commands.SetArgs(c, args)
		h := cmd.Handler
		if cmd.AdminOnly {
			h = r.admin(h)
		}
		return handleWithSummary(c, summary{handler: normalizeHandlerName(key), extras: []slog.Attr{slog.String("route", "command")}}, func() error {
			return h(c)
		})
	}

	if h, ok := r.opts.Registry.LookupMenu(text); ok {
		return handleWithSummary(c, summary{handler: "menu", extras: []slog.Attr{slog.String("route", "menu")}}, func() error {
			return h(c)
		})
	}

	if r.opts.ConsumeAwaitingText != nil && r.opts.OnPendingText != nil &&
		r.opts.ConsumeAwaitingText(tghelpers.SenderID(c)) {
		return handleWithSummary(c, summary{handler: "pending_text", extras: []slog.Attr{slog.String("route", "text")}}, func() error {
			return r.opts.OnPendingText(c)
		})
	}

	r.skip(c, "unknown_text")
	return nil
}

// HandleCallback routes a button press by its action token.
func (r *Router) HandleCallback(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	key, _ := callbacks.Parse(c.Callback())
	s := summary{
		handler: "callback." + normalizeHandlerName(key),
		extras:  []slog.Attr{slog.String("cb_key", key), slog.String("route", "callback")},
	}

	h, ok := r.opts.Registry.GetCallback(key)
	if !ok || h == nil {
		s.extras = append(s.extras, slog.String("reason", "not_found"))
		h = r.opts.Registry.CallbackNotFound()
		if h == nil {
			logHandlerSummary(c, summary{handler: s.handler, status: "skip", outcome: "ok", extras: s.extras}, time.Now(), nil)
			return nil
		}
	}
	return handleWithSummary(c, s, func() error { return h(c) })
}

func (r *Router) skip(c tele.Context, handler string, extras ...slog.Attr) {
	logHandlerSummary(c, summary{handler: handler, status: "skip", outcome: "ok", extras: extras}, time.Now(), nil)
}
