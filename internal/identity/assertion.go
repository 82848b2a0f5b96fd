package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrAssertionInvalid covers unknown, expired, and already-consumed
// assertion tokens. Callers cannot tell which, on purpose.
var ErrAssertionInvalid = errors.New("assertion token invalid")

// AssertionStore issues single-use, TTL-bound proof tokens after a
// successful face verification. Consume is atomic: under concurrent
// consumers exactly one succeeds.
type AssertionStore interface {
	Issue(ctx context.Context, voterID string) (string, error)
	Consume(ctx context.Context, token string) (string, error)
}

type assertionEntry struct {
	voterID   string
	expiresAt time.Time
}

// InMemoryAssertionStore keeps live assertions in a map. Consume deletes
// the entry under the lock, which gives the single-use guarantee.
type InMemoryAssertionStore struct {
	mu      sync.Mutex
	entries map[string]assertionEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewInMemoryAssertionStore(ttl time.Duration) *InMemoryAssertionStore {
	return &InMemoryAssertionStore{
		entries: make(map[string]assertionEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *InMemoryAssertionStore) Issue(_ context.Context, voterID string) (string, error) {
	token := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[token] = assertionEntry{voterID: voterID, expiresAt: s.now().Add(s.ttl)}
	return token, nil
}

func (s *InMemoryAssertionStore) Consume(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[token]
	if !exists {
		return "", ErrAssertionInvalid
	}
	delete(s.entries, token)

	if s.now().After(entry.expiresAt) {
		return "", ErrAssertionInvalid
	}
	return entry.voterID, nil
}

// Cleanup removes expired entries. Intended to run periodically from a
// background goroutine.
func (s *InMemoryAssertionStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for token, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, token)
		}
	}
}
