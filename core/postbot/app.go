// Package postbot wires the draft machine to Telegram: commands, menu, buttons.
package postbot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/postbot/core/config"
	"github.com/m3rciful/postbot/core/drafts"
	"github.com/m3rciful/postbot/core/logger"
	tg "github.com/m3rciful/postbot/core/telegram"
	"github.com/m3rciful/postbot/core/telegram/commands"
	"github.com/m3rciful/postbot/core/telegram/router"
)

// App is the assembled bot: registry, router and handlers.
type App struct {
	cfg      *config.Config
	machine  *drafts.Machine
	registry *tg.Registry
	router   *router.Router
}

// New registers every command, menu caption and button action of the bot.
func New(cfg *config.Config, machine *drafts.Machine, journal drafts.Journal) (*App, error) {
	if cfg == nil || machine == nil {
		return nil, errors.New("postbot: config and machine are required")
	}
	if journal == nil {
		journal = drafts.NopJournal{}
	}
	h := &handlers{machine: machine, journal: journal, started: time.Now()}
	reg := tg.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{Handler: h.start, Description: "Запуск"})
	reg.RegisterCommand("/help", commands.Command{Handler: h.help, Description: "Помощь"})
	reg.RegisterCommand("/post", commands.Command{Handler: h.post, Description: "Пост в ВК"})
	reg.RegisterCommand("/status", commands.Command{Handler: h.status, Description: "Статус", AdminOnly: true, Hidden: true})

	errs := []error{
		reg.RegisterMenu(MenuCompose, h.compose),
		reg.RegisterMenu(MenuHelp, h.help),
		reg.RegisterCallback(ActionConfirm, h.confirm),
		reg.RegisterCallback(ActionCancel, h.cancel),
	}
	if machine.GenerationEnabled() {
		reg.RegisterCommand("/generate", commands.Command{Handler: h.generate, Description: "Сгенерировать пост"})
		errs = append(errs, reg.RegisterMenu(MenuGenerate, h.generateMenu))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	r := router.New(router.Options{
		Registry:            reg,
		AdminID:             cfg.Telegram.AdminID,
		ConsumeAwaitingText: machine.ConsumeAwaitingText,
		OnPendingText:       h.pendingText,
	})

	logger.Info(context.Background(), logger.CompWire, "wire.complete",
		slog.Int("count", len(reg.ListCommands(false))),
		slog.Int("menus", len(reg.MenuCaptions())),
		slog.Int("callbacks", len(reg.ListCallbacks())),
		slog.Int("pending", machine.Pending()),
		slog.Bool("generation", machine.GenerationEnabled()),
	)
	return &App{cfg: cfg, machine: machine, registry: reg, router: r}, nil
}

// Registry exposes the command registry.
func (a *App) Registry() *tg.Registry { return a.registry }

// Routes returns the routes served in both run modes.
func (a *App) Routes() []tg.Route { return a.router.Routes() }

// Middlewares returns the global route chain.
func (a *App) Middlewares() []tg.Middleware {
	return tg.DefaultMiddlewares(a.cfg, rateLimited)
}

// TelegramRunOptions builds the options for telegram.RunTelegram.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	return tg.RunOptions{
		Config:      a.cfg,
		Registry:    a.registry,
		Middlewares: a.Middlewares(),
		Routes:      a.Routes(),
		OnStop: func(ctx context.Context, _ tg.Runtime) error {
			logger.Info(ctx, logger.CompDrafts, "drafts.dropped", slog.Int("pending", a.machine.Pending()))
			return nil
		},
	}, nil
}
