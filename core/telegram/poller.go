package telegram

import (
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/config"
)

const defaultLongPollTimeout = 10 * time.Second

func longPollTimeout(cfg config.TelegramConfig) time.Duration {
	if cfg.LongPollTimeoutSeconds > 0 {
		return time.Duration(cfg.LongPollTimeoutSeconds) * time.Second
	}
	return defaultLongPollTimeout
}

// buildPoller returns the long poller for long-poll mode and nil for webhook mode,
// where updates arrive through the webhook receiver instead of bot.Start.
func buildPoller(cfg config.TelegramConfig) tele.Poller {
	if cfg.RunMode == config.RunModeWebhook {
		return nil
	}
	return &tele.LongPoller{Timeout: longPollTimeout(cfg)}
}

// webhookSettings describes the webhook registered with Telegram on startup.
// Updates queued while the bot was down are dropped.
func webhookSettings(cfg config.WebhookConfig) *tele.Webhook {
	return &tele.Webhook{
		Endpoint:    &tele.WebhookEndpoint{PublicURL: cfg.PublicURL()},
		DropUpdates: true,
		SecretToken: cfg.SecretToken,
	}
}
