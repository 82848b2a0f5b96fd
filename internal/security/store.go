package security

import (
	"sync"
	"time"
)

// InMemoryEventStore is a thread-safe append-only event log.
type InMemoryEventStore struct {
	mu     sync.RWMutex
	events []*AuthEvent
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{}
}

func (s *InMemoryEventStore) Append(e *AuthEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *e
	s.events = append(s.events, &stored)
	return nil
}

func (s *InMemoryEventStore) Since(cutoff time.Time) ([]*AuthEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*AuthEvent
	for _, e := range s.events {
		if !e.At.Before(cutoff) {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryEventStore) ByVoter(voterID string) ([]*AuthEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*AuthEvent
	for _, e := range s.events {
		if e.VoterID == voterID {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryEventStore) All() ([]*AuthEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*AuthEvent, 0, len(s.events))
	for _, e := range s.events {
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}
