package postbot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/postbot/core/buildinfo"
	"github.com/m3rciful/postbot/core/drafts"
	"github.com/m3rciful/postbot/core/generate"
	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/core/session"
	"github.com/m3rciful/postbot/core/telegram/commands"
	"github.com/m3rciful/postbot/core/telegram/format"
	tghelpers "github.com/m3rciful/postbot/core/telegram/helpers"
)

// handlers reply on behalf of the draft machine. Each handler sends at most one reply.
type handlers struct {
	machine *drafts.Machine
	journal drafts.Journal
	started time.Time
}

func (h *handlers) start(c tele.Context) error {
	return tghelpers.SendText(c, msgStart, mainMenu(h.machine.GenerationEnabled()))
}

func (h *handlers) help(c tele.Context) error {
	return tghelpers.SendText(c, helpText(h.machine.GenerationEnabled()))
}

func (h *handlers) post(c tele.Context) error {
	text := commands.Args(c)
	if text == "" {
		return tghelpers.SendText(c, msgPostUsage)
	}
	return h.submit(c, text, msgPostUsage)
}

func (h *handlers) compose(c tele.Context) error {
	h.machine.AwaitText(tghelpers.BuildContext(c), tghelpers.SenderID(c))
	return tghelpers.SendText(c, msgAskText)
}

// pendingText turns the answer to the compose prompt into a draft.
func (h *handlers) pendingText(c tele.Context) error {
	return h.submit(c, c.Text(), msgComposeEmpty)
}

// submit stores text as the pending draft; onEmpty is the reply for blank text.
func (h *handlers) submit(c tele.Context, text, onEmpty string) error {
	d, err := h.machine.Submit(tghelpers.BuildContext(c), tghelpers.SenderID(c), text)
	if errors.Is(err, drafts.ErrEmptyText) {
		return tghelpers.SendText(c, onEmpty)
	}
	if err != nil {
		return err
	}
	return showDraft(c, d)
}

func (h *handlers) generate(c tele.Context) error {
	return h.generateTopic(c, commands.Args(c))
}

func (h *handlers) generateMenu(c tele.Context) error {
	return h.generateTopic(c, "")
}

func (h *handlers) generateTopic(c tele.Context, topic string) error {
	d, err := h.machine.Generate(tghelpers.BuildContext(c), tghelpers.SenderID(c), topic)
	switch {
	case errors.Is(err, drafts.ErrGenerationDisabled):
		return tghelpers.SendText(c, msgGenDisabled)
	case err != nil:
		return tghelpers.SendText(c, fmt.Sprintf(msgGenFailed, generate.Reason(err)))
	}
	return showDraft(c, d)
}

// showDraft sends the confirmation prompt. Image drafts go out as a photo
// when the prompt fits a caption, otherwise as text with the image link.
func showDraft(c tele.Context, d session.Draft) error {
	kb := confirmKeyboard()
	if d.HasImage() {
		caption := promptText(d.Text)
		if format.Fits(caption, format.CaptionLimit) {
			return tghelpers.SendPhoto(c, d.Image, caption, kb)
		}
		return tghelpers.SendText(c, format.Truncate(promptText(d.Text+"\n\n🖼 "+d.Image), format.MessageLimit), kb)
	}
	return tghelpers.SendText(c, format.Truncate(promptText(d.Text), format.MessageLimit), kb)
}

func (h *handlers) confirm(c tele.Context) error {
	_ = c.Respond()
	res := h.machine.Confirm(tghelpers.BuildContext(c), tghelpers.SenderID(c))
	switch res.Outcome {
	case drafts.OutcomePublished:
		return tghelpers.EditPrompt(c, msgPublished)
	case drafts.OutcomeFailed:
		return tghelpers.EditPrompt(c, fmt.Sprintf(msgPublishFailed, res.Reason))
	default:
		return tghelpers.EditPrompt(c, msgNotFound)
	}
}

func (h *handlers) cancel(c tele.Context) error {
	_ = c.Respond()
	res := h.machine.Cancel(tghelpers.BuildContext(c), tghelpers.SenderID(c))
	if res.Outcome == drafts.OutcomeCancelled {
		return tghelpers.EditPrompt(c, msgCancelled)
	}
	return tghelpers.EditPrompt(c, msgNotFound)
}

// status is the hidden admin diagnostic.
func (h *handlers) status(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %s\n", buildinfo.Summary())
	fmt.Fprintf(&b, "Аптайм: %s\n", time.Since(h.started).Round(time.Second))
	fmt.Fprintf(&b, "Черновиков в ожидании: %d\n", h.machine.Pending())

	stats, err := h.journal.Stats(ctx)
	if err != nil {
		logger.Warn(ctx, logger.CompJournal, "journal.stats",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		b.WriteString("Журнал недоступен")
	} else {
		fmt.Fprintf(&b, "Опубликовано: %d, ошибок: %d, отменено: %d",
			stats[string(drafts.OutcomePublished)],
			stats[string(drafts.OutcomeFailed)],
			stats[string(drafts.OutcomeCancelled)],
		)
	}
	return tghelpers.SendText(c, b.String())
}

func rateLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: msgRateLimited})
	}
	return tghelpers.SendText(c, msgRateLimited)
}
