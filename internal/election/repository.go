package election

import (
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu          sync.RWMutex
	elections   map[string]*Election
	privateKeys map[string]string
	candidates  map[string]*Candidate
}

// NewInMemoryRepository creates a new in-memory election repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		elections:   make(map[string]*Election),
		privateKeys: make(map[string]string),
		candidates:  make(map[string]*Candidate),
	}
}

// Insert stores a new election along with its private key.
func (r *InMemoryRepository) Insert(e *Election, privateKeyPEM string) error {
	if !e.StartTime.Before(e.EndTime) {
		return ErrInvalidWindow
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *e
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.elections[stored.ID] = &stored
	r.privateKeys[stored.ID] = privateKeyPEM
	return nil
}

// GetByID retrieves an election by ID.
func (r *InMemoryRepository) GetByID(id string) (*Election, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.elections[id]
	if !ok {
		return nil, ErrElectionNotFound
	}
	copied := *e
	return &copied, nil
}

// List returns all elections, newest start time first.
func (r *InMemoryRepository) List() ([]*Election, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]*Election, 0, len(r.elections))
	for _, e := range r.elections {
		copied := *e
		results = append(results, &copied)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].StartTime.After(results[j].StartTime)
	})
	return results, nil
}

// ListActive returns elections whose window contains the given instant.
func (r *InMemoryRepository) ListActive(at time.Time) ([]*Election, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*Election
	for _, e := range r.elections {
		if e.IsOpen(at) {
			copied := *e
			results = append(results, &copied)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].StartTime.Before(results[j].StartTime)
	})
	return results, nil
}

// PrivateKeyPEM returns the private key PEM for an election. Keyring use only.
func (r *InMemoryRepository) PrivateKeyPEM(electionID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pemStr, ok := r.privateKeys[electionID]
	if !ok {
		return "", ErrElectionNotFound
	}
	return pemStr, nil
}

// InsertCandidate registers a candidate for an election that has not opened yet.
func (r *InMemoryRepository) InsertCandidate(c *Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.elections[c.ElectionID]
	if !ok {
		return ErrElectionNotFound
	}
	if !time.Now().Before(e.StartTime) {
		return ErrElectionOpened
	}

	copied := *c
	r.candidates[copied.ID] = &copied
	return nil
}

// GetCandidate retrieves a candidate by ID.
func (r *InMemoryRepository) GetCandidate(id string) (*Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.candidates[id]
	if !ok {
		return nil, ErrCandidateNotFound
	}
	copied := *c
	return &copied, nil
}

// ListCandidates returns candidates for an election, optionally filtered by
// constituency. Sorted by candidate ID for deterministic output.
func (r *InMemoryRepository) ListCandidates(electionID, constituencyID string) ([]*Candidate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*Candidate
	for _, c := range r.candidates {
		if c.ElectionID != electionID {
			continue
		}
		if constituencyID != "" && c.ConstituencyID != constituencyID {
			continue
		}
		copied := *c
		results = append(results, &copied)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results, nil
}

// Constituencies returns the distinct constituency IDs with candidates in the election.
func (r *InMemoryRepository) Constituencies(electionID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, c := range r.candidates {
		if c.ElectionID == electionID {
			seen[c.ConstituencyID] = true
		}
	}

	results := make([]string, 0, len(seen))
	for id := range seen {
		results = append(results, id)
	}
	sort.Strings(results)
	return results, nil
}
