package refreshtokens

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]Record
	clock  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: map[string]Record{}, clock: time.Now}
}

// WithClock overrides the store's notion of now.
func (s *MemoryStore) WithClock(clock func() time.Time) *MemoryStore {
	s.clock = clock
	return s
}

func (s *MemoryStore) Persist(_ context.Context, token, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t, rec := range s.tokens {
		if rec.UserID == userID {
			delete(s.tokens, t)
		}
	}
	s.tokens[token] = Record{Token: token, UserID: userID, ExpiresAt: expiresAt, CreatedAt: s.clock()}
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, token string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.tokens[token]
	if !ok || !rec.ExpiresAt.After(s.clock()) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Revoke(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func (s *MemoryStore) RevokeAll(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t, rec := range s.tokens {
		if rec.UserID == userID {
			delete(s.tokens, t)
		}
	}
	return nil
}

// Len reports stored rows, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
