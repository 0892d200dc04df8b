package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		VK:       VKConfig{Token: "vk-token", GroupID: 42},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(cfg))

	require.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	require.Equal(t, "5.131", cfg.VK.APIVersion)
	require.Equal(t, "https://api.vk.com/method", cfg.VK.APIURL)
	require.False(t, cfg.Generation.Images)
	require.False(t, cfg.Database.Enabled())
}

func TestNormalizeRunModes(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "Polling"
	require.NoError(t, Normalize(cfg))
	require.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)

	cfg = validConfig()
	cfg.Telegram.RunMode = "webhook"
	require.ErrorContains(t, Normalize(cfg), "webhook.url")

	cfg.Webhook.URL = "https://bot.example.com/"
	require.ErrorContains(t, Normalize(cfg), "webhook.port")

	cfg.Webhook.Port = 8443
	require.NoError(t, Normalize(cfg))
	require.Equal(t, "https://bot.example.com/webhook", cfg.Webhook.PublicURL())

	cfg = validConfig()
	cfg.Telegram.RunMode = "carrier-pigeon"
	require.ErrorContains(t, Normalize(cfg), "invalid telegram.run_mode")
}

func TestNormalizeRequiredFields(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	require.ErrorContains(t, Normalize(cfg), "telegram token")

	cfg = validConfig()
	cfg.VK.Token = ""
	require.ErrorContains(t, Normalize(cfg), "vk.token")

	cfg = validConfig()
	cfg.VK.GroupID = -77
	require.NoError(t, Normalize(cfg))
	require.EqualValues(t, 77, cfg.VK.GroupID)

	cfg = validConfig()
	cfg.Generation.Enabled = true
	require.ErrorContains(t, Normalize(cfg), "generation.api_key")

	cfg.Generation.APIKey = "sk-test"
	cfg.Generation.BaseURL = "https://llm.local/v1/"
	require.NoError(t, Normalize(cfg))
	require.Equal(t, "https://llm.local/v1", cfg.Generation.BaseURL)
	require.NotEmpty(t, cfg.Generation.DefaultTopic)
	require.Equal(t, 5, cfg.Generation.SearchLimit)
}

func TestNormalizeRateLimitExclusions(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", "MESSAGE"}
	require.NoError(t, Normalize(cfg))
	require.Equal(t, []string{UpdateCallback, UpdateMessage}, cfg.RateLimit.ExcludeUpdates)

	cfg.RateLimit.ExcludeUpdates = []string{"edited_message"}
	require.ErrorContains(t, Normalize(cfg), "rate_limit.exclude_updates")
}

func TestNormalizeDatabaseDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Host = "localhost"
	require.NoError(t, Normalize(cfg))
	require.Equal(t, "disable", cfg.Database.SSLMode)
	require.Equal(t, 5, cfg.Database.MaxConnections)
	require.Equal(t, "migrations", cfg.Database.MigrationsDir)
}

func TestLoadOverlaysEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	yaml := `
telegram:
  token: "from-file"
  run_mode: longpoll
vk:
  token: "vk-file"
  group_id: 1
generation:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("VK_GROUP_ID", "555")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Telegram.Token)
	require.Equal(t, "vk-file", cfg.VK.Token)
	require.EqualValues(t, 555, cfg.VK.GroupID)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  token: t\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VK_GROUP_TOKEN=dotenv-token\nVK_GROUP_ID=9\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("VK_GROUP_TOKEN")
		os.Unsetenv("VK_GROUP_ID")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "dotenv-token", cfg.VK.Token)
	require.EqualValues(t, 9, cfg.VK.GroupID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "failed to read config file")
}
