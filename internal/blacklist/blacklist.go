// Package blacklist holds tokens revoked by logout ahead of their expiry.
// The per-user watermark is the authoritative revocation mechanism; this
// store only makes revocation of one specific token immediate.
package blacklist

import (
	"context"
	"sync"
	"time"
)

type Store interface {
	Add(ctx context.Context, token string, expiresAt time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// MemoryStore is a process-local Store. Entries are not persisted.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]time.Time)}
}

func (s *MemoryStore) Add(_ context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	s.tokens[token] = expiresAt
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Contains(_ context.Context, token string) (bool, error) {
	s.mu.RLock()
	_, ok := s.tokens[token]
	s.mu.RUnlock()
	return ok, nil
}

func (s *MemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens), nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.tokens = make(map[string]time.Time)
	s.mu.Unlock()
	return nil
}
