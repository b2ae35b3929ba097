package tokenstore

import (
	"context"
	"sync"
)

// MemoryStore keeps the pair in process memory only.
type MemoryStore struct {
	mu   sync.Mutex
	pair *Pair
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pair == nil {
		return Pair{}, ErrNotFound
	}
	return *s.pair, nil
}

func (s *MemoryStore) Save(_ context.Context, p Pair) error {
	if !p.Complete() {
		return ErrInvalidPair
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = &p
	return nil
}

func (s *MemoryStore) SetAccess(_ context.Context, access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pair == nil {
		return ErrNoTokens
	}
	next := Pair{AccessToken: access, RefreshToken: s.pair.RefreshToken}
	if !next.Complete() {
		return ErrInvalidPair
	}
	s.pair = &next
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	return nil
}
