package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/core/telegram/sender"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by Send helpers. nil makes sends synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

func sendAsync(c tele.Context, action string, run func() error) error {
	disp := dispatcher.Load()
	if disp == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := disp.Enqueue(ctx, action, run)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, logger.CompSender, "queue.fallback",
			slog.String("op", action),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

func sendOptions(markup []*tele.ReplyMarkup) *tele.SendOptions {
	opts := &tele.SendOptions{DisableWebPagePreview: true}
	if len(markup) > 0 && markup[0] != nil {
		opts.ReplyMarkup = markup[0]
	}
	return opts
}

// SendText sends plain text (no parse mode) with an optional keyboard.
func SendText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := sendOptions(markup)
	return sendAsync(c, "send.text", func() error {
		return c.Send(text, opts)
	})
}

// SendPhoto sends the image at url with a caption and an optional keyboard.
func SendPhoto(c tele.Context, url, caption string, markup ...*tele.ReplyMarkup) error {
	photo := &tele.Photo{File: tele.FromURL(url), Caption: caption}
	opts := sendOptions(markup)
	return sendAsync(c, "send.photo", func() error {
		return c.Send(photo, opts)
	})
}

// EditPrompt replaces the text of the message a callback came from.
// Photo messages get their caption edited instead. Omitting markup drops the inline keyboard.
func EditPrompt(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := sendOptions(markup)
	if m := c.Message(); m != nil && m.Photo != nil {
		return c.EditCaption(text, opts)
	}
	return c.Edit(text, opts)
}
