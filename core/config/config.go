package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"TELEGRAM_BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	// URL is the public base URL; Path is appended to it when registering the webhook.
	URL         string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Path        string `yaml:"path" envconfig:"WEBHOOK_PATH"`
	Listen      string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port        int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	SecretToken string `yaml:"secret_token" envconfig:"WEBHOOK_SECRET_TOKEN"`
}

// PublicURL joins the base URL and the webhook path.
func (w WebhookConfig) PublicURL() string {
	return strings.TrimRight(strings.TrimSpace(w.URL), "/") + w.Path
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig holds settings for inbound rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// SenderConfig tunes the asynchronous outbound dispatcher for Telegram replies.
type SenderConfig struct {
	QueueSize      int `yaml:"queue_size"`
	Workers        int `yaml:"workers"`
	MaxRetries     int `yaml:"max_retries"`
	RetryBackoffMS int `yaml:"retry_backoff_ms"`
}

// DatabaseConfig holds the publication journal connection. An empty host disables it.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	MigrationsDir  string `yaml:"migrations_dir" envconfig:"DB_MIGRATIONS_DIR"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.Host) != ""
}

// VKConfig describes the VK community the drafts are published to.
type VKConfig struct {
	Token      string `yaml:"token" envconfig:"VK_GROUP_TOKEN"`
	GroupID    int64  `yaml:"group_id" envconfig:"VK_GROUP_ID"`
	APIVersion string `yaml:"api_version" envconfig:"VK_API_VERSION"`
	APIURL     string `yaml:"api_url" envconfig:"VK_API_URL"`
	// TimeoutSeconds bounds a single VK call; 0 -> default
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// GenerationConfig configures the OpenAI-compatible text and image generator.
type GenerationConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"GENERATION_ENABLED"`
	Images         bool   `yaml:"images" envconfig:"GENERATION_IMAGES"`
	BaseURL        string `yaml:"base_url" envconfig:"GENERATION_BASE_URL"`
	APIKey         string `yaml:"api_key" envconfig:"GENERATION_API_KEY"`
	Model          string `yaml:"model" envconfig:"GENERATION_MODEL"`
	ImageModel     string `yaml:"image_model" envconfig:"GENERATION_IMAGE_MODEL"`
	DefaultTopic   string `yaml:"default_topic"`
	SystemPrompt   string `yaml:"system_prompt"`
	SearchLimit    int    `yaml:"search_limit"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

const (
	defaultWebhookPath   = "/webhook"
	defaultVKAPIVersion  = "5.131"
	defaultVKAPIURL      = "https://api.vk.com/method"
	defaultVKTimeout     = 15
	defaultGenBaseURL    = "https://api.openai.com/v1"
	defaultGenModel      = "gpt-4o-mini"
	defaultGenImageModel = "dall-e-3"
	defaultGenTimeout    = 60
	defaultSearchLimit   = 5
	defaultTopic         = "новинки электроники"
	defaultSystemPrompt  = "Ты пишешь короткие живые посты для сообщества магазина электроники во ВКонтакте."
)

// Config aggregates the whole bot configuration.
type Config struct {
	Telegram   TelegramConfig   `yaml:"telegram"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Logging    LoggingConfig    `yaml:"logging"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Sender     SenderConfig     `yaml:"sender"`
	Database   DatabaseConfig   `yaml:"database"`
	VK         VKConfig         `yaml:"vk"`
	Generation GenerationConfig `yaml:"generation"`
}

// Load reads configuration from a YAML file, an optional .env file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs validation of required configuration fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Path) == "" {
			cfg.Webhook.Path = defaultWebhookPath
		}
		if !strings.HasPrefix(cfg.Webhook.Path, "/") {
			cfg.Webhook.Path = "/" + cfg.Webhook.Path
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	if err := normalizeVK(&cfg.VK); err != nil {
		return err
	}
	if err := normalizeGeneration(&cfg.Generation); err != nil {
		return err
	}
	if cfg.Database.Enabled() {
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 5
		}
		if cfg.Database.MigrationsDir == "" {
			cfg.Database.MigrationsDir = "migrations"
		}
	}
	return nil
}

func normalizeVK(vk *VKConfig) error {
	if strings.TrimSpace(vk.Token) == "" {
		return fmt.Errorf("vk.token is required")
	}
	if vk.GroupID == 0 {
		return fmt.Errorf("vk.group_id is required")
	}
	// Accept the owner_id form (-123) as well as the bare group id.
	if vk.GroupID < 0 {
		vk.GroupID = -vk.GroupID
	}
	if vk.APIVersion == "" {
		vk.APIVersion = defaultVKAPIVersion
	}
	if vk.APIURL == "" {
		vk.APIURL = defaultVKAPIURL
	}
	vk.APIURL = strings.TrimRight(vk.APIURL, "/")
	if vk.TimeoutSeconds <= 0 {
		vk.TimeoutSeconds = defaultVKTimeout
	}
	return nil
}

func normalizeGeneration(g *GenerationConfig) error {
	if !g.Enabled {
		g.Images = false
		return nil
	}
	if strings.TrimSpace(g.APIKey) == "" {
		return fmt.Errorf("generation.api_key is required when generation.enabled is true")
	}
	if g.BaseURL == "" {
		g.BaseURL = defaultGenBaseURL
	}
	g.BaseURL = strings.TrimRight(g.BaseURL, "/")
	if g.Model == "" {
		g.Model = defaultGenModel
	}
	if g.ImageModel == "" {
		g.ImageModel = defaultGenImageModel
	}
	if strings.TrimSpace(g.DefaultTopic) == "" {
		g.DefaultTopic = defaultTopic
	}
	if strings.TrimSpace(g.SystemPrompt) == "" {
		g.SystemPrompt = defaultSystemPrompt
	}
	if g.SearchLimit < 0 {
		return fmt.Errorf("generation.search_limit must be >= 0")
	}
	if g.SearchLimit == 0 {
		g.SearchLimit = defaultSearchLimit
	}
	if g.TimeoutSeconds <= 0 {
		g.TimeoutSeconds = defaultGenTimeout
	}
	return nil
}

// Timeout converts a seconds setting into a duration.
func Timeout(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
