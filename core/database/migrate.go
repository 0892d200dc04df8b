package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/postbot/core/config"
	"github.com/m3rciful/postbot/core/logger"
)

// RunMigrations applies every pending up migration from cfg.MigrationsDir.
func RunMigrations(ctx context.Context, cfg config.DatabaseConfig) error {
	log := logger.Component(logger.CompMigrate)

	if err := WaitForPostgres(ctx, DSN(cfg), 30*time.Second, 2*time.Second); err != nil {
		log.Error("db not ready", slog.String("event", "db.wait"), slog.String("err", err.Error()))
		return fmt.Errorf("database not ready: %w", err)
	}

	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	files := upFiles(dir)
	preview, truncated := logger.SummarizeStrings(files, 6)
	log.Debug("migrations resolved",
		slog.String("event", "resolve"),
		slog.String("path", dir),
		slog.Int("count", len(files)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	m, err := migrate.New("file://"+filepath.ToSlash(dir), URL(cfg))
	if err != nil {
		log.Error("init failed", slog.String("event", "db.migrate"), slog.String("err", err.Error()))
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	from, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := logger.RoundMS(time.Since(start))
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		log.Error("migration failed",
			slog.String("event", "apply"),
			slog.String("status", "fail"),
			slog.Duration("duration", took),
			slog.String("err", upErr.Error()),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	to, _, _ := m.Version()
	applied := appliedBetween(files, uint64(from), uint64(to))
	log.Info("migrations summary",
		slog.String("event", "summary"),
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("count", len(applied)),
		slog.Duration("duration", took),
	)
	return nil
}

func upFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names
}

// appliedBetween returns the files whose numeric prefix lies in (from, to].
func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		prefix, _, _ := strings.Cut(f, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err == nil && v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
