package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/postbot/core/config"
)

func noLogger(*config.Config) error { return nil }

func TestRunSkipsDatabaseWhenDisabled(t *testing.T) {
	res, err := Run(context.Background(), Options{
		Config:     &config.Config{},
		LoggerInit: noLogger,
		Connect: func(context.Context, config.DatabaseConfig) (*sqlx.DB, error) {
			t.Fatal("connect must not be called")
			return nil, nil
		},
	})
	require.NoError(t, err)
	require.Nil(t, res.DB)
	require.NoError(t, res.Close())
}

func TestRunConnectsAndMigrates(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Host: "localhost"}}
	var migrated bool
	res, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Connect: func(context.Context, config.DatabaseConfig) (*sqlx.DB, error) {
			return sqlx.Open("sqlite3", ":memory:")
		},
		Migrate: func(context.Context, config.DatabaseConfig) error {
			migrated = true
			return nil
		},
	})
	require.NoError(t, err)
	require.True(t, migrated)
	require.NotNil(t, res.DB)
	require.NoError(t, res.Close())
}

func TestRunPropagatesFailures(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	require.ErrorContains(t, err, "nil config")

	_, err = Run(context.Background(), Options{
		Config:     &config.Config{},
		LoggerInit: func(*config.Config) error { return errors.New("disk full") },
	})
	require.ErrorContains(t, err, "logger init failed")

	cfg := &config.Config{Database: config.DatabaseConfig{Host: "localhost"}}
	_, err = Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Connect: func(context.Context, config.DatabaseConfig) (*sqlx.DB, error) {
			return sqlx.Open("sqlite3", ":memory:")
		},
		Migrate: func(context.Context, config.DatabaseConfig) error { return errors.New("dirty") },
	})
	require.ErrorContains(t, err, "migrations failed")
}
