// Package ratelimit implements per-key sliding-window request limits.
package ratelimit

import (
	"sync"
	"time"

	"supplierhub/internal/apperrors"
)

// WindowStore keeps the recent request instants for each key. Admit must be
// atomic per key: two concurrent callers can never both take the last slot.
type WindowStore interface {
	// Admit drops instants of key at or before cutoff, then records now if
	// fewer than max remain. It reports whether now was recorded.
	Admit(key string, cutoff, now time.Time, max int) bool
	// Prune drops every instant at or before cutoff and forgets empty keys.
	// It returns the number of keys removed.
	Prune(cutoff time.Time) int
}

type MemoryStore struct {
	mu       sync.Mutex
	requests map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string][]time.Time)}
}

func (s *MemoryStore) Admit(key string, cutoff, now time.Time, max int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := keepAfter(s.requests[key], cutoff)
	if len(filtered) >= max {
		s.requests[key] = filtered
		return false
	}
	s.requests[key] = append(filtered, now)
	return true
}

func (s *MemoryStore) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, reqs := range s.requests {
		filtered := keepAfter(reqs, cutoff)
		if len(filtered) == 0 {
			delete(s.requests, key)
			removed++
			continue
		}
		s.requests[key] = filtered
	}
	return removed
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func keepAfter(reqs []time.Time, cutoff time.Time) []time.Time {
	filtered := make([]time.Time, 0, len(reqs))
	for _, t := range reqs {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// Limiter admits at most Max requests per key within any Window.
type Limiter struct {
	Name   string
	Max    int
	Window time.Duration

	store WindowStore
	now   func() time.Time
}

// New returns a limiter backed by an in-memory store.
func New(name string, max int, window time.Duration) *Limiter {
	return NewWithStore(name, max, window, NewMemoryStore(), time.Now)
}

func NewWithStore(name string, max int, window time.Duration, store WindowStore, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{Name: name, Max: max, Window: window, store: store, now: now}
}

// Allow records a request for key, or returns apperrors.ErrRateLimited
// without recording it when the window is already full.
func (l *Limiter) Allow(key string) error {
	now := l.now()
	if !l.store.Admit(key, now.Add(-l.Window), now, l.Max) {
		return apperrors.New(apperrors.ErrRateLimited, "Too many requests, please try again later")
	}
	return nil
}

// Prune forgets keys with no request inside the window ending at now.
func (l *Limiter) Prune(now time.Time) int {
	return l.store.Prune(now.Add(-l.Window))
}
