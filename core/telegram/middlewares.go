package telegram

import (
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/config"
	"github.com/m3rciful/postbot/core/telegram/middleware"
)

// Middleware is a named global middleware. The first entry is the outermost.
type Middleware struct {
	Name string
	Use  tele.MiddlewareFunc
}

// DefaultMiddlewares builds the route chain shared by both run modes:
// recover, optional rate limit, logger, metrics.
func DefaultMiddlewares(cfg *config.Config, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}

	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, t := range cfg.RateLimit.ExcludeUpdates {
			ex[strings.ToLower(t)] = struct{}{}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
				Exclude:   ex,
				OnLimited: onLimited,
			}),
		})
	}

	return append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)
}

// Chain wraps h so that mws[0] runs first, matching bot.Use ordering.
func Chain(h tele.HandlerFunc, mws []Middleware) tele.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i].Use != nil {
			h = mws[i].Use(h)
		}
	}
	return h
}
