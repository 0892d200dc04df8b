package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/postbot/core/buildinfo"
	"github.com/m3rciful/postbot/core/config"
)

// Component names shared by the bot packages.
const (
	CompApp      = "app"
	CompTG       = "tg"
	CompWire     = "tg.wire"
	CompSender   = "tg.sender"
	CompWebhook  = "tg.webhook"
	CompDB       = "db"
	CompMigrate  = "db.migrate"
	CompDrafts   = "service.drafts"
	CompPublish  = "service.publish"
	CompGenerate = "service.generate"
	CompJournal  = "service.journal"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	closed     bool

	sink    *asyncWriter
	closers []io.Closer

	levelVar slog.LevelVar

	debugSampler = newRatioSampler(1, 50)
	traceForced  bool

	// L is the process-wide base logger. Until InitLogger runs it points at slog.Default().
	L = slog.Default()
)

type options struct {
	format  logFormat
	order   []string
	level   slog.Level
	sampleN int
	sampleD int
	dir     string
	file    string
	profile string
}

// InitLogger configures the global structured logger. Only the first call has effect.
func InitLogger(cfg *config.Config) error {
	initOnce.Do(func() {
		opts := resolveOptions(cfg)
		levelVar.Set(opts.level)
		debugSampler.Set(opts.sampleN, opts.sampleD)
		traceForced = envFlag("TRACE") || envFlag("LOG_TRACE")

		outputs, cl := openOutputs(opts)
		closers = cl
		sink = newAsyncWriter(outputs, 64*1024)

		L = slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   sink,
			format:   opts.format,
			keyOrder: opts.order,
		}))
		slog.SetDefault(L)

		L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
			slog.String("component", CompApp),
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
			slog.String("version", buildinfo.Version),
			slog.String("build_commit", buildinfo.Commit),
			slog.String("build_time", buildinfo.Date),
			slog.String("cfg_profile", opts.profile),
		)
	})
	return nil
}

// Shutdown flushes buffered log output and closes opened sinks.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if sink != nil {
		errs = append(errs, sink.Flush(), sink.Close())
	}
	for _, c := range closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func resolveOptions(cfg *config.Config) options {
	opts := options{
		format:  formatJSON,
		order:   append([]string(nil), defaultKeyOrder...),
		level:   slog.LevelInfo,
		sampleN: 1,
		sampleD: 50,
		profile: "prod",
	}
	if cfg == nil {
		return opts
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		opts.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		opts.format = formatKV
	case "json":
	default:
		if opts.profile == "debug" || opts.profile == "dev" {
			opts.format = formatKV
		}
	}
	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		opts.order = order
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		opts.level = slog.LevelDebug
	case "warn", "warning":
		opts.level = slog.LevelWarn
	case "error":
		opts.level = slog.LevelError
	}
	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		num, den := parseRatioSpec(spec)
		switch {
		case num == 0 && den == 0:
			opts.sampleN, opts.sampleD = 0, 0
		case num > 0 && den > 0:
			opts.sampleN, opts.sampleD = num, den
		}
	}
	opts.dir = strings.TrimSpace(lc.Dir)
	opts.file = strings.TrimSpace(lc.BotFile)
	return opts
}

func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// openOutputs always writes to stdout; a log file is added when both dir and file are set.
// File errors are reported on the standard logger and do not stop the bot.
func openOutputs(opts options) ([]io.Writer, []io.Closer) {
	writers := []io.Writer{os.Stdout}
	if opts.dir == "" || opts.file == "" {
		return writers, nil
	}
	if err := os.MkdirAll(opts.dir, 0o755); err != nil {
		log.Printf("logger: failed to create log dir %s: %v", opts.dir, err)
		return writers, nil
	}
	path := filepath.Join(opts.dir, opts.file)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: failed to open log file %s: %v", path, err)
		return writers, nil
	}
	return append(writers, f), []io.Closer{f}
}

func envFlag(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Component returns a logger scoped to the component attribute.
func Component(name string) *slog.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes an event line through logg, falling back to the context logger.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Event logs with the given component scope.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	logg := FromContext(ctx)
	if c := strings.TrimSpace(component); c != "" {
		logg = logg.With("component", c)
	}
	LogEvent(ctx, logg, level, event, attrs...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be written.
func ShouldSampleDebug() bool {
	return traceForced || debugSampler.Allow()
}
