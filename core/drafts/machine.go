// Package drafts runs the confirm-before-publish lifecycle of user drafts.
package drafts

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/postbot/core/generate"
	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/core/publish"
	"github.com/m3rciful/postbot/core/session"
)

var (
	// ErrEmptyText rejects drafts without a body.
	ErrEmptyText = errors.New("drafts: empty text")
	// ErrGenerationDisabled is returned by Generate when no generator is configured.
	ErrGenerationDisabled = errors.New("drafts: generation disabled")
)

// Outcome is the terminal result of a confirm or cancel.
type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeFailed    Outcome = "failed"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeCancelled Outcome = "cancelled"
)

// Result describes how a confirm or cancel ended. Draft is the zero value for OutcomeNotFound.
type Result struct {
	Outcome Outcome
	// Reason is the user-facing failure text for OutcomeFailed.
	Reason string
	Err    error
	PostID int64
	Draft  session.Draft
}

// Options wires the machine to its collaborators.
type Options struct {
	Store     session.Store
	Publisher publish.Publisher
	// Generator is optional; without it Generate returns ErrGenerationDisabled.
	Generator generate.Generator
	Journal   Journal
	// Images enables image generation for generated drafts.
	Images       bool
	DefaultTopic string
	// SearchLimit is how many source posts Generate collects; 0 skips the search.
	SearchLimit int
}

// Machine moves each user between no draft, a pending draft and back.
// It is safe for concurrent use; per-user transitions rely on the store's atomic operations.
type Machine struct {
	opts Options
}

// NewMachine returns a machine over opts. Store and Publisher are required.
func NewMachine(opts Options) (*Machine, error) {
	if opts.Store == nil {
		return nil, errors.New("drafts: store is required")
	}
	if opts.Publisher == nil {
		return nil, errors.New("drafts: publisher is required")
	}
	if opts.Journal == nil {
		opts.Journal = NopJournal{}
	}
	return &Machine{opts: opts}, nil
}

// GenerationEnabled reports whether Generate can run.
func (m *Machine) GenerationEnabled() bool { return m.opts.Generator != nil }

// AwaitText arms the single-shot request for the user's next text message.
func (m *Machine) AwaitText(ctx context.Context, owner int64) {
	m.opts.Store.AwaitText(owner)
	logger.Debug(ctx, logger.CompDrafts, "draft.await_text", slog.Int64("user_id", owner))
}

// ConsumeAwaitingText reports and clears the user's pending text request.
func (m *Machine) ConsumeAwaitingText(owner int64) bool {
	return m.opts.Store.ConsumeAwaitingText(owner)
}

// Pending returns the number of drafts waiting for a decision.
func (m *Machine) Pending() int { return m.opts.Store.Pending() }

// Submit stores text as the user's pending draft, replacing any previous one.
func (m *Machine) Submit(ctx context.Context, owner int64, text string) (session.Draft, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return session.Draft{}, ErrEmptyText
	}
	return m.store(ctx, session.Draft{Owner: owner, Text: text}), nil
}

// Generate builds a draft about topic (or the default topic) and stores it.
// A failed search is tolerated; a failed text or image generation stores nothing.
func (m *Machine) Generate(ctx context.Context, owner int64, topic string) (session.Draft, error) {
	if m.opts.Generator == nil {
		return session.Draft{}, ErrGenerationDisabled
	}
	topic = cmp.Or(strings.TrimSpace(topic), m.opts.DefaultTopic)

	var sources []string
	if m.opts.SearchLimit > 0 {
		found, err := m.opts.Publisher.Search(ctx, topic, m.opts.SearchLimit)
		if err != nil {
			logger.Warn(ctx, logger.CompDrafts, "draft.search",
				slog.String("status", "fail"),
				slog.String("topic", logger.SanitizeLimit(topic, 64)),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			)
		}
		sources = found
	}

	text, err := m.opts.Generator.GenerateText(ctx, generate.PostPrompt(topic, sources))
	if err != nil {
		return session.Draft{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return session.Draft{}, generate.ErrEmptyResult
	}

	var image string
	if m.opts.Images {
		if image, err = m.opts.Generator.GenerateImage(ctx, generate.ImagePrompt(topic)); err != nil {
			return session.Draft{}, err
		}
	}
	return m.store(ctx, session.Draft{Owner: owner, Text: text, Image: image, SourceMaterial: sources}), nil
}

func (m *Machine) store(ctx context.Context, d session.Draft) session.Draft {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	if replaced := m.opts.Store.PutDraft(d); replaced != nil {
		logger.Info(ctx, logger.CompDrafts, "draft.replaced",
			slog.String("draft_id", replaced.ID.String()),
			slog.Int64("user_id", d.Owner),
		)
	}
	logger.Info(ctx, logger.CompDrafts, "draft.stored",
		slog.String("status", "ok"),
		slog.String("draft_id", d.ID.String()),
		slog.Bool("attachment", d.HasImage()),
		slog.Int("pending", m.opts.Store.Pending()),
	)
	return d
}

// Confirm publishes the user's draft. The draft is taken out of the store
// before any call is made, so a repeated confirm finds nothing to publish.
func (m *Machine) Confirm(ctx context.Context, owner int64) Result {
	start := time.Now()
	d, ok := m.opts.Store.TakeDraft(owner)
	if !ok {
		res := Result{Outcome: OutcomeNotFound}
		m.logResult(ctx, "draft.confirm", start, res)
		return res
	}

	res := m.publish(ctx, d)
	m.logResult(ctx, "draft.confirm", start, res)
	m.record(ctx, res)
	return res
}

func (m *Machine) publish(ctx context.Context, d session.Draft) Result {
	var attachment string
	if d.HasImage() {
		ref, err := m.opts.Publisher.UploadImage(ctx, d.Image)
		if err != nil {
			return Result{Outcome: OutcomeFailed, Reason: publish.Reason(err), Err: err, Draft: d}
		}
		attachment = ref
	}
	postID, err := m.opts.Publisher.Publish(ctx, d.Text, attachment)
	if err != nil {
		return Result{Outcome: OutcomeFailed, Reason: publish.Reason(err), Err: err, Draft: d}
	}
	return Result{Outcome: OutcomePublished, PostID: postID, Draft: d}
}

// Cancel discards the user's draft. Without a draft it reports OutcomeNotFound.
func (m *Machine) Cancel(ctx context.Context, owner int64) Result {
	start := time.Now()
	d, ok := m.opts.Store.TakeDraft(owner)
	res := Result{Outcome: OutcomeNotFound}
	if ok {
		res = Result{Outcome: OutcomeCancelled, Draft: d}
		m.record(ctx, res)
	}
	m.logResult(ctx, "draft.cancel", start, res)
	return res
}

func (m *Machine) record(ctx context.Context, res Result) {
	if err := m.opts.Journal.Record(ctx, EntryFor(res)); err != nil {
		logger.Warn(ctx, logger.CompJournal, "journal.record",
			slog.String("status", "fail"),
			slog.String("draft_id", res.Draft.ID.String()),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

func (m *Machine) logResult(ctx context.Context, event string, start time.Time, res Result) {
	attrs := []slog.Attr{
		slog.String("status", logger.Status(res.Err)),
		slog.String("outcome", string(res.Outcome)),
		slog.Duration("duration", logger.Took(start)),
	}
	if res.Outcome != OutcomeNotFound {
		attrs = append(attrs, slog.String("draft_id", res.Draft.ID.String()))
	}
	if res.PostID != 0 {
		attrs = append(attrs, slog.Int64("post_id", res.PostID))
	}
	if res.Err != nil {
		attrs = append(attrs, slog.String("reason", logger.SanitizeLimit(res.Reason, 256)))
		logger.Warn(ctx, logger.CompDrafts, event, attrs...)
		return
	}
	logger.Info(ctx, logger.CompDrafts, event, attrs...)
}
