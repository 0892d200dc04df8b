// Package session keeps per-user draft state in memory for the lifetime of the process.
package session

import (
	"time"

	"github.com/google/uuid"
)

// State is the single tagged state of one user.
type State string

const (
	// StateIdle means no draft and no pending request for text.
	StateIdle State = "idle"
	// StateAwaitingText means the next plain text message becomes the draft body.
	StateAwaitingText State = "awaiting_text"
	// StatePendingConfirm means a draft waits for confirm or cancel.
	StatePendingConfirm State = "pending_confirm"
)

// Draft is unpublished post content. Drafts are replaced, never edited.
type Draft struct {
	ID    uuid.UUID
	Owner int64
	Text  string
	// Image is an image URL; empty for text-only drafts.
	Image          string
	SourceMaterial []string
	CreatedAt      time.Time
}

// HasImage reports whether the draft carries an image reference.
func (d Draft) HasImage() bool { return d.Image != "" }

// Session is a snapshot of one user's state. Draft is set only in StatePendingConfirm.
type Session struct {
	State State
	Draft *Draft
}

// Store owns all drafts and text requests. Check-and-clear operations are atomic per user.
type Store interface {
	Get(userID int64) Session
	AwaitText(userID int64)
	ConsumeAwaitingText(userID int64) bool
	PutDraft(d Draft) (replaced *Draft)
	TakeDraft(userID int64) (Draft, bool)
	Discard(userID int64) bool
	Clear(userID int64)
	Pending() int
}
