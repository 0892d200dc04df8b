package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/postbot/core/config"
	"github.com/m3rciful/postbot/core/database"
	"github.com/m3rciful/postbot/core/logger"
)

// Options control the infrastructure pipeline that runs before the bot starts.
// Nil hooks fall back to the real implementations.
type Options struct {
	Config *config.Config

	LoggerInit func(*config.Config) error
	Connect    func(context.Context, config.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(context.Context, config.DatabaseConfig) error
}

// Result exposes infrastructure initialized by Run. DB is nil when no database is configured.
type Result struct {
	DB *sqlx.DB
}

// Close releases the database handle, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger and, when configured, connects the journal database and migrates it.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	dbCfg := opts.Config.Database
	if !dbCfg.Enabled() {
		logger.Info(ctx, logger.CompDB, "db.disabled",
			slog.String("status", "skip"),
			slog.String("reason", "database.host is empty; publication journal off"),
		)
		return &Result{}, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = database.Connect
	}
	db, err := connect(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = database.RunMigrations
	}
	if err := migrate(ctx, dbCfg); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{DB: db}, nil
}
