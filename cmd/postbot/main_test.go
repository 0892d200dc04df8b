package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/postbot/core/buildinfo"
)

func TestVersionCmd(t *testing.T) {
	origVersion, origCommit := buildinfo.Version, buildinfo.Commit
	buildinfo.Version, buildinfo.Commit = "1.0.0", "abc123"
	defer func() { buildinfo.Version, buildinfo.Commit = origVersion, origCommit }()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "postbot 1.0.0 (commit abc123")
}

func TestRootHasSubcommands(t *testing.T) {
	cmd := newRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	require.ElementsMatch(t, []string{"run", "migrate", "version"}, names)
	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestMigrateRequiresDatabase(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_PATH", "")
	cfg := "telegram:\n  token: t\n  run_mode: longpoll\nvk:\n  token: v\n  group_id: 1\n"
	path := t.TempDir() + "/config.yaml"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"migrate", "--config", path})
	require.ErrorContains(t, cmd.Execute(), "database.host is not configured")
}
