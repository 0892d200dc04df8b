package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/core/telegram/commands"
)

// UnsupportedAction is the callback answer for unknown action tokens.
const UnsupportedAction = "Неподдерживаемое действие"

// Registry holds bot commands, reply-keyboard menu captions and callback actions.
type Registry struct {
	mu               sync.RWMutex
	commands         map[string]commands.Command
	menus            map[string]tele.HandlerFunc
	menuOrder        []string
	callbacks        map[string]tele.HandlerFunc
	callbackNotFound tele.HandlerFunc
}

// NewRegistry creates an empty Registry with the default unknown-callback answer.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		menus:     make(map[string]tele.HandlerFunc),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: UnsupportedAction})
		},
	}
}

func wireWarn(event string, attrs ...slog.Attr) {
	logger.Warn(context.Background(), logger.CompWire, event, attrs...)
}

// RegisterCommand adds a command keyed by "/name". Invalid or duplicate entries are skipped.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if name == "" || cmd.Handler == nil || cmd.Description == "" {
		wireWarn("register.command.skip", slog.String("op", name), slog.String("reason", "invalid"))
		return
	}
	if name[0] != '/' {
		wireWarn("register.command.skip", slog.String("op", name), slog.String("reason", "no_slash_prefix"))
		return
	}
	name = strings.ToLower(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		wireWarn("register.command.duplicate", slog.String("op", name))
		return
	}
	r.commands[name] = cmd
}

// LookupCommand finds a command by name or alias and returns its canonical key.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = strings.ToLower(name)
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if alias == name || "/"+alias == name {
				return key, cmd, true
			}
		}
	}
	return "", commands.Command{}, false
}

// ListCommands returns commands sorted by name, optionally without hidden and admin-only ones.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for name, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: name, Description: meta.Description})
	}
	slices.SortFunc(list, func(a, b tele.Command) int { return strings.Compare(a.Text, b.Text) })
	return list
}

// RegisterMenu binds an exact reply-keyboard caption to a handler.
func (r *Registry) RegisterMenu(caption string, h tele.HandlerFunc) error {
	if caption == "" || h == nil {
		return fmt.Errorf("telegram: invalid menu registration %q", caption)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.menus[caption]; exists {
		return fmt.Errorf("telegram: menu already registered: %s", caption)
	}
	r.menus[caption] = h
	r.menuOrder = append(r.menuOrder, caption)
	return nil
}

// LookupMenu matches text byte-for-byte against registered captions.
func (r *Registry) LookupMenu(text string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.menus[text]
	return h, ok
}

// MenuCaptions returns captions in registration order.
func (r *Registry) MenuCaptions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.menuOrder)
}

// RegisterCallback binds an action token to a handler.
func (r *Registry) RegisterCallback(key string, h tele.HandlerFunc) error {
	if key == "" || h == nil {
		wireWarn("register.callback.skip", slog.String("cb_key", key))
		return fmt.Errorf("telegram: invalid callback registration %q", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		wireWarn("register.callback.duplicate", slog.String("cb_key", key))
		return fmt.Errorf("telegram: callback already registered: %s", key)
	}
	r.callbacks[key] = h
	return nil
}

// GetCallback returns the handler bound to key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns sorted action tokens.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// CallbackNotFound returns the handler for unknown action tokens.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetupCommands publishes the visible commands to the Telegram command menu.
func SetupCommands(ctx context.Context, bot *tele.Bot, reg *Registry) {
	list := reg.ListCommands(true)
	if err := bot.SetCommands(list); err != nil {
		logger.Error(ctx, logger.CompWire, "register.commands.set_failed", slog.String("err", err.Error()))
		return
	}
	logger.Info(ctx, logger.CompWire, "register.commands",
		slog.String("status", "ok"),
		slog.Int("count", len(list)),
	)
}
