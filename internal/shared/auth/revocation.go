package auth

import (
	"sync"
	"time"
)

// RevocationList remembers signed-out token ids until the token would have expired anyway.
type RevocationList struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

// NewRevocationList constructs an empty list. A nil now uses time.Now.
func NewRevocationList(now func() time.Time) *RevocationList {
	if now == nil {
		now = time.Now
	}
	return &RevocationList{entries: make(map[string]time.Time), now: now}
}

// Revoke marks the token id as signed out. A zero exp keeps it for 24h.
func (l *RevocationList) Revoke(jti string, exp time.Time) {
	if l == nil || jti == "" {
		return
	}
	now := l.now()
	if exp.IsZero() {
		exp = now.Add(24 * time.Hour)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, until := range l.entries {
		if now.After(until) {
			delete(l.entries, id)
		}
	}
	l.entries[jti] = exp
}

// IsRevoked reports whether jti was signed out and has not yet expired.
func (l *RevocationList) IsRevoked(jti string) bool {
	if l == nil || jti == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	until, ok := l.entries[jti]
	if !ok {
		return false
	}
	return !l.now().After(until)
}
