package drafts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Entry is one journaled draft outcome.
type Entry struct {
	DraftID   uuid.UUID `db:"draft_id"`
	UserID    int64     `db:"user_id"`
	Status    string    `db:"status"`
	Text      string    `db:"text"`
	Image     string    `db:"image"`
	PostID    int64     `db:"post_id"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

// EntryFor converts a confirm or cancel result into a journal entry.
func EntryFor(res Result) Entry {
	return Entry{
		DraftID:   res.Draft.ID,
		UserID:    res.Draft.Owner,
		Status:    string(res.Outcome),
		Text:      res.Draft.Text,
		Image:     res.Draft.Image,
		PostID:    res.PostID,
		Reason:    res.Reason,
		CreatedAt: time.Now().UTC(),
	}
}

// Journal is an append-only record of draft outcomes. The machine never reads it back.
type Journal interface {
	Record(ctx context.Context, e Entry) error
	Stats(ctx context.Context) (map[string]int, error)
}

// NopJournal discards entries. Used when no database is configured.
type NopJournal struct{}

func (NopJournal) Record(context.Context, Entry) error { return nil }

func (NopJournal) Stats(context.Context) (map[string]int, error) { return map[string]int{}, nil }

// SQLJournal stores entries in the publications table.
type SQLJournal struct {
	db *sqlx.DB
}

// NewSQLJournal returns a journal over db; the schema comes from migrations.
func NewSQLJournal(db *sqlx.DB) *SQLJournal {
	return &SQLJournal{db: db}
}

const insertEntry = `INSERT INTO publications
	(draft_id, user_id, status, text, image, post_id, reason, created_at)
	VALUES (:draft_id, :user_id, :status, :text, :image, :post_id, :reason, :created_at)`

// Record appends e.
func (j *SQLJournal) Record(ctx context.Context, e Entry) error {
	if _, err := j.db.NamedExecContext(ctx, insertEntry, e); err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

// Stats counts entries per status.
func (j *SQLJournal) Stats(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Status string `db:"status"`
		N      int    `db:"n"`
	}
	if err := j.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS n FROM publications GROUP BY status`); err != nil {
		return nil, fmt.Errorf("journal: stats: %w", err)
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}
