package session

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	state State
	draft *Draft
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore is the in-process Store. Idle users have no entry.
type MemoryStore struct {
	mu    sync.Mutex
	users map[int64]entry
	now   func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[int64]entry), now: time.Now}
}

// Get returns a copy of the user's session; unknown users are idle.
func (s *MemoryStore) Get(userID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.users[userID]
	if !ok {
		return Session{State: StateIdle}
	}
	return Session{State: e.state, Draft: cloneDraft(e.draft)}
}

// AwaitText marks that the user's next plain text is a draft body.
// A pending draft is dropped, since one user is never in both states.
func (s *MemoryStore) AwaitText(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = entry{state: StateAwaitingText}
}

// ConsumeAwaitingText clears the text request and reports whether it was set.
// Of two concurrent callers only one sees true.
func (s *MemoryStore) ConsumeAwaitingText(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.users[userID]
	if !ok || e.state != StateAwaitingText {
		return false
	}
	delete(s.users, userID)
	return true
}

// PutDraft stores d as the user's only draft and returns the one it replaced, if any.
// Missing ID and CreatedAt are filled in.
func (s *MemoryStore) PutDraft(d Draft) *Draft {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = s.now()
	}
	d.SourceMaterial = slices.Clone(d.SourceMaterial)

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.users[d.Owner].draft
	s.users[d.Owner] = entry{state: StatePendingConfirm, draft: &d}
	return prev
}

// TakeDraft removes and returns the user's draft. Of two concurrent callers only one gets it.
func (s *MemoryStore) TakeDraft(userID int64) (Draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.users[userID]
	if !ok || e.draft == nil {
		return Draft{}, false
	}
	delete(s.users, userID)
	return *e.draft, true
}

// Discard drops the user's draft and reports whether there was one.
func (s *MemoryStore) Discard(userID int64) bool {
	_, ok := s.TakeDraft(userID)
	return ok
}

// Clear resets the user to idle.
func (s *MemoryStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
}

// Pending counts drafts waiting for a decision.
func (s *MemoryStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.users {
		if e.draft != nil {
			n++
		}
	}
	return n
}

func cloneDraft(d *Draft) *Draft {
	if d == nil {
		return nil
	}
	c := *d
	c.SourceMaterial = slices.Clone(d.SourceMaterial)
	return &c
}
