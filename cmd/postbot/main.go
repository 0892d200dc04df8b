package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m3rciful/postbot/core/bootstrap"
	"github.com/m3rciful/postbot/core/buildinfo"
	corecmd "github.com/m3rciful/postbot/core/cmd"
	"github.com/m3rciful/postbot/core/config"
	"github.com/m3rciful/postbot/core/database"
	"github.com/m3rciful/postbot/core/drafts"
	"github.com/m3rciful/postbot/core/generate"
	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/core/postbot"
	"github.com/m3rciful/postbot/core/publish"
	"github.com/m3rciful/postbot/core/session"
)

const defaultConfigPath = "config.yaml"

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "postbot",
		Short:         "Telegram bot that publishes confirmed posts to a VK community",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default $CONFIG_PATH or config.yaml)")

	cmd.AddCommand(newRunCmd(&configPath))
	cmd.AddCommand(newMigrateCmd(&configPath))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Serve Telegram updates by long polling or webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigPath:        *configPath,
				DefaultConfigPath: defaultConfigPath,
				Bootstrap:         buildApp,
			})
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending publication journal migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := corecmd.ResolveConfigPath(*configPath, "", defaultConfigPath)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if !cfg.Database.Enabled() {
				return fmt.Errorf("migrate: database.host is not configured")
			}
			if err := logger.InitLogger(cfg); err != nil {
				return err
			}
			defer func() { _ = logger.Shutdown() }()
			if err := database.RunMigrations(cmd.Context(), cfg.Database); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Summary())
		},
	}
}

// buildApp connects the infrastructure and assembles the bot.
func buildApp(ctx context.Context, cfg *config.Config) (corecmd.TelegramApp, func() error, error) {
	infra, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, nil, err
	}

	var journal drafts.Journal = drafts.NopJournal{}
	if infra.DB != nil {
		journal = drafts.NewSQLJournal(infra.DB)
	}

	opts := drafts.Options{
		Store:        session.NewMemoryStore(),
		Publisher:    publish.FromConfig(cfg.VK),
		Journal:      journal,
		Images:       cfg.Generation.Images,
		DefaultTopic: cfg.Generation.DefaultTopic,
		SearchLimit:  cfg.Generation.SearchLimit,
	}
	if cfg.Generation.Enabled {
		opts.Generator = generate.FromConfig(cfg.Generation)
	}
	machine, err := drafts.NewMachine(opts)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	app, err := postbot.New(cfg, machine, journal)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}
	return app, infra.Close, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "postbot:", err)
		os.Exit(1)
	}
}
