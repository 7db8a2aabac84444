package workflow

import (
	"context"
	"sync"
	"time"
)

// MemoryStore holds one session per user. Operations on a user's session are
// serialized by a per-user lock, which is held across collaborator calls.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry
	now      func() time.Time
}

type sessionEntry struct {
	mu      sync.Mutex
	session Session
	removed bool
}

// NewMemoryStore constructs a MemoryStore. now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{sessions: make(map[string]*sessionEntry), now: now}
}

func (m *MemoryStore) entry(userID string) *sessionEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[userID]
	if !ok {
		e = &sessionEntry{session: Session{UserID: userID, UpdatedAt: m.now()}}
		m.sessions[userID] = e
	}
	return e
}

// Get returns a snapshot of the user's session, or an empty one.
func (m *MemoryStore) Get(ctx context.Context, userID string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	m.mu.Lock()
	e, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return Session{UserID: userID}, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// Update runs fn on the user's session under its lock. Changes made by fn are
// kept even when it returns an error; fn is responsible for only mutating
// what should survive.
func (m *MemoryStore) Update(ctx context.Context, userID string, fn func(*Session) error) (Session, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Session{}, err
		}
		e := m.entry(userID)
		e.mu.Lock()
		if e.removed {
			e.mu.Unlock()
			continue
		}
		err := fn(&e.session)
		e.session.UpdatedAt = m.now()
		snap := e.session.Clone()
		e.mu.Unlock()
		return snap, err
	}
}

// IdleSince lists users whose session was last touched before cutoff.
func (m *MemoryStore) IdleSince(cutoff time.Time) []string {
	m.mu.Lock()
	entries := make(map[string]*sessionEntry, len(m.sessions))
	for id, e := range m.sessions {
		entries[id] = e
	}
	m.mu.Unlock()

	var out []string
	for id, e := range entries {
		e.mu.Lock()
		idle := !e.removed && e.session.UpdatedAt.Before(cutoff)
		e.mu.Unlock()
		if idle {
			out = append(out, id)
		}
	}
	return out
}

// Expire runs fn on a session still idle since cutoff and drops it when fn
// succeeds. It reports whether the session was dropped.
func (m *MemoryStore) Expire(ctx context.Context, userID string, cutoff time.Time, fn func(*Session) error) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	e, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed || !e.session.UpdatedAt.Before(cutoff) {
		return false, nil
	}
	if err := fn(&e.session); err != nil {
		return false, err
	}
	e.removed = true

	m.mu.Lock()
	if m.sessions[userID] == e {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()
	return true, nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Guarded reports whether the user's session is under the exit guard.
func (m *MemoryStore) Guarded(ctx context.Context, userID string) (bool, error) {
	s, err := m.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return ShouldGuard(s), nil
}
