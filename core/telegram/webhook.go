package telegram

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/logger"
)

// SecretHeader carries the secret token Telegram echoes on every webhook call.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// ErrNoRoute is reported for updates no route accepts; the receiver answers ok.
var ErrNoRoute = errors.New("telegram: no route for update")

// WebhookOptions configures the webhook receiver.
type WebhookOptions struct {
	Path        string
	SecretToken string
	// NewContext turns a decoded update into a handler context; bot.NewContext in production.
	NewContext  func(tele.Update) tele.Context
	Routes      []Route
	Middlewares []Middleware
}

// WebhookReceiver accepts Telegram updates over HTTP and runs them through the route chain.
type WebhookReceiver struct {
	opts   WebhookOptions
	routes map[string]tele.HandlerFunc
}

// NewWebhookReceiver wraps every route with the middleware chain once.
func NewWebhookReceiver(opts WebhookOptions) (*WebhookReceiver, error) {
	if opts.NewContext == nil {
		return nil, errors.New("telegram: webhook receiver needs NewContext")
	}
	if opts.Path == "" {
		opts.Path = "/webhook"
	}
	routes := make(map[string]tele.HandlerFunc, len(opts.Routes))
	for _, r := range opts.Routes {
		if r.Handler != nil {
			routes[r.Endpoint] = Chain(r.Handler, opts.Middlewares)
		}
	}
	return &WebhookReceiver{opts: opts, routes: routes}, nil
}

// Engine returns a gin engine serving the receiver on its path.
func (w *WebhookReceiver) Engine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), accessLog())
	engine.POST(w.opts.Path, w.handle)
	return engine
}

func (w *WebhookReceiver) handle(c *gin.Context) {
	if w.opts.SecretToken != "" {
		got := c.GetHeader(SecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(w.opts.SecretToken)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
	}

	var upd tele.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		logger.Warn(c.Request.Context(), logger.CompWebhook, "webhook.decode",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		c.JSON(http.StatusOK, gin.H{"error": "malformed update: " + err.Error()})
		return
	}

	if err := w.Dispatch(upd); err != nil && !errors.Is(err, ErrNoRoute) {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Dispatch routes one update: button presses to the callback route,
// text messages to the text route. Anything else yields ErrNoRoute.
func (w *WebhookReceiver) Dispatch(upd tele.Update) error {
	var endpoint string
	switch {
	case upd.Callback != nil:
		endpoint = tele.OnCallback
	case upd.Message != nil && upd.Message.Text != "":
		endpoint = tele.OnText
	}
	h, ok := w.routes[endpoint]
	if !ok {
		logger.Debug(context.Background(), logger.CompWebhook, "webhook.skip",
			slog.String("status", "skip"),
			slog.Int("update_id", upd.ID),
		)
		return ErrNoRoute
	}
	return h(w.opts.NewContext(upd))
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug(c.Request.Context(), logger.CompWebhook, "webhook.request",
			slog.String("op", c.Request.Method+" "+c.FullPath()),
			slog.Int("http_code", c.Writer.Status()),
			slog.Duration("duration", logger.Took(start)),
		)
	}
}
