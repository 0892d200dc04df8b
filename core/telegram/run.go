package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/config"
	"github.com/m3rciful/postbot/core/logger"
	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"
	tgsender "github.com/m3rciful/postbot/core/telegram/sender"
)

// Route binds a handler to a telebot endpoint (tele.OnText, tele.OnCallback).
type Route struct {
	Endpoint string
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *config.Config
	Registry *Registry

	Dispatcher  *tgsender.Dispatcher
	Middlewares []Middleware
	Routes      []Route

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// DispatcherOptions maps the sender config section onto dispatcher options.
func DispatcherOptions(cfg config.SenderConfig) tgsender.Options {
	return tgsender.Options{
		QueueSize:    cfg.QueueSize,
		Workers:      cfg.Workers,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: time.Duration(cfg.RetryBackoffMS) * time.Millisecond,
	}
}

// RunTelegram builds the bot and serves updates until ctx is done, by long
// polling or through the webhook receiver depending on telegram.run_mode.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Telegram.Token,
		Poller: buildPoller(cfg.Telegram),
		Client: NewHTTPClient(longPollTimeout(cfg.Telegram)),
		OnError: func(err error, c tele.Context) {
			ctx := context.Background()
			if c != nil {
				ctx = tghelpers.BuildContext(c)
			}
			logger.Error(ctx, logger.CompTG, "handler.error", slog.String("err", err.Error()))
		},
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logger.Info(ctx, logger.CompTG, "bot.ready",
		slog.String("username", bot.Me.Username),
		slog.String("mode", cfg.Telegram.RunMode),
		slog.Duration("duration", logger.Took(start)),
	)

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(DispatcherOptions(cfg.Sender))
	}
	tghelpers.SetDispatcher(dispatcher)
	defer func() {
		dispatcher.Close()
		tghelpers.SetDispatcher(nil)
	}()

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	SetupCommands(ctx, bot, reg)

	rt := Runtime{Bot: bot, Dispatcher: dispatcher, Registry: reg}

	var runErr error
	if cfg.Telegram.RunMode == config.RunModeWebhook {
		runErr = serveWebhook(ctx, bot, cfg, opts, rt)
	} else {
		runErr = servePolling(ctx, bot, opts, rt)
	}

	if opts.OnStop != nil {
		if err := opts.OnStop(context.WithoutCancel(ctx), rt); err != nil {
			return err
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func servePolling(ctx context.Context, bot *tele.Bot, opts RunOptions, rt Runtime) error {
	if err := bot.RemoveWebhook(false); err != nil {
		logger.Warn(ctx, logger.CompTG, "webhook.delete",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
	logger.Info(ctx, logger.CompTG, "mode",
		slog.String("mode", config.RunModeLongpoll),
		slog.Duration("timeout", longPollTimeout(opts.Config.Telegram)),
	)
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		bot.Start()
		close(done)
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

func serveWebhook(ctx context.Context, bot *tele.Bot, cfg *config.Config, opts RunOptions, rt Runtime) error {
	receiver, err := NewWebhookReceiver(WebhookOptions{
		Path:        cfg.Webhook.Path,
		SecretToken: cfg.Webhook.SecretToken,
		NewContext:  bot.NewContext,
		Routes:      opts.Routes,
		Middlewares: opts.Middlewares,
	})
	if err != nil {
		return err
	}
	if err := bot.SetWebhook(webhookSettings(cfg.Webhook)); err != nil {
		return fmt.Errorf("telegram: set webhook: %w", err)
	}

	addr := net.JoinHostPort(cfg.Webhook.Listen, strconv.Itoa(cfg.Webhook.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           receiver.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info(ctx, logger.CompWebhook, "mode",
		slog.String("mode", config.RunModeWebhook),
		slog.String("listen", addr),
		slog.String("public_url", cfg.Webhook.PublicURL()),
	)
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("telegram: webhook server: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn(ctx, logger.CompWebhook, "webhook.shutdown", slog.String("err", err.Error()))
		}
		return ctx.Err()
	}
}
