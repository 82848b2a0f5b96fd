// Package tally turns the encrypted ballot ledger into ranked,
// deterministic election results.
package tally

import (
	"errors"
	"sync"
	"time"
)

var ErrElectionStillOpen = errors.New("election is still open for voting")

// ResultRow is one candidate's standing within a constituency.
type ResultRow struct {
	ElectionID      string    `json:"election_id"`
	ConstituencyID  string    `json:"constituency_id"`
	CandidateID     string    `json:"candidate_id"`
	CandidateName   string    `json:"candidate_name"`
	Party           string    `json:"party"`
	Votes           int       `json:"votes"`
	Rank            int       `json:"rank"`
	Percentage      float64   `json:"percentage"`
	Margin          int       `json:"margin"`
	CalculatedAt    time.Time `json:"calculated_at"`
}

// Summary reports a fan-out recalculation across constituencies.
type Summary struct {
	Processed int               `json:"processed"`
	Failed    int               `json:"failed"`
	Details   map[string]string `json:"details,omitempty"`
}

// HourlyCount is one bucket of the voting-pattern histogram.
type HourlyCount struct {
	Hour  string `json:"hour"`
	Votes int    `json:"votes"`
}

// ResultStore holds the latest computed rows per (election, constituency)
// scope. ReplaceScope swaps a scope's rows atomically so readers never
// see a half-written tally.
type ResultStore interface {
	ReplaceScope(electionID, constituencyID string, rows []ResultRow) error
	ByElection(electionID string) ([]ResultRow, error)
}

type scopeKey struct {
	electionID     string
	constituencyID string
}

// InMemoryResultStore is a thread-safe in-memory result store.
type InMemoryResultStore struct {
	mu     sync.RWMutex
	scopes map[scopeKey][]ResultRow
}

func NewInMemoryResultStore() *InMemoryResultStore {
	return &InMemoryResultStore{scopes: make(map[scopeKey][]ResultRow)}
}

func (s *InMemoryResultStore) ReplaceScope(electionID, constituencyID string, rows []ResultRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := make([]ResultRow, len(rows))
	copy(copied, rows)
	s.scopes[scopeKey{electionID, constituencyID}] = copied
	return nil
}

func (s *InMemoryResultStore) ByElection(electionID string) ([]ResultRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ResultRow
	for key, rows := range s.scopes {
		if key.electionID == electionID {
			out = append(out, rows...)
		}
	}
	return out, nil
}
