package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/postbot/core/config"
)

func TestUpFilesAndAppliedBetween(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"0002_add_index.up.sql",
		"0001_create_publications.up.sql",
		"0001_create_publications.down.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o644))
	}

	files := upFiles(dir)
	require.Equal(t, []string{"0001_create_publications.up.sql", "0002_add_index.up.sql"}, files)
	require.Equal(t, []string{"0002_add_index.up.sql"}, appliedBetween(files, 1, 2))
	require.Empty(t, appliedBetween(files, 2, 2))
	require.Nil(t, upFiles(filepath.Join(dir, "missing")))
}

func TestConnectionStrings(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host: "db", Port: "5432", User: "bot", Password: "p@ss", Name: "postbot", SSLMode: "disable",
	}
	require.Equal(t, "user=bot password=p@ss host=db port=5432 dbname=postbot sslmode=disable", DSN(cfg))
	require.Equal(t, "postgres://bot:p%40ss@db:5432/postbot?sslmode=disable", URL(cfg))
}
