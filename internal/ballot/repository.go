package ballot

import "sync"

type voterElectionKey struct {
	voterID    string
	electionID string
}

// InMemoryRepository is a thread-safe in-memory ballot store. The
// (voter, election) uniqueness check and the insert happen under one
// lock, which is what makes Insert atomic.
type InMemoryRepository struct {
	mu       sync.RWMutex
	byVoteID map[string]*Ballot
	byVoter  map[voterElectionKey]struct{}
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byVoteID: make(map[string]*Ballot),
		byVoter:  make(map[voterElectionKey]struct{}),
	}
}

func (r *InMemoryRepository) Insert(b *Ballot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := voterElectionKey{voterID: b.VoterID, electionID: b.ElectionID}
	if _, exists := r.byVoter[key]; exists {
		return ErrAlreadyVoted
	}

	stored := *b
	stored.Encrypted = make([]byte, len(b.Encrypted))
	copy(stored.Encrypted, b.Encrypted)

	r.byVoteID[b.VoteID] = &stored
	r.byVoter[key] = struct{}{}
	return nil
}

func (r *InMemoryRepository) GetByVoteID(voteID string) (*Ballot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, exists := r.byVoteID[voteID]
	if !exists {
		return nil, ErrBallotNotFound
	}
	return copyBallot(b), nil
}

// ListByScope returns a stable snapshot of the ballots for an election
// and constituency, taken at call time.
func (r *InMemoryRepository) ListByScope(electionID, constituencyID string) ([]*Ballot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Ballot
	for _, b := range r.byVoteID {
		if b.ElectionID == electionID && b.ConstituencyID == constituencyID {
			out = append(out, copyBallot(b))
		}
	}
	return out, nil
}

func (r *InMemoryRepository) ListByElection(electionID string) ([]*Ballot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Ballot
	for _, b := range r.byVoteID {
		if b.ElectionID == electionID {
			out = append(out, copyBallot(b))
		}
	}
	return out, nil
}

func (r *InMemoryRepository) CountByElection(electionID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, b := range r.byVoteID {
		if b.ElectionID == electionID {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryRepository) CountByScope(electionID, constituencyID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, b := range r.byVoteID {
		if b.ElectionID == electionID && b.ConstituencyID == constituencyID {
			count++
		}
	}
	return count, nil
}

func copyBallot(b *Ballot) *Ballot {
	copied := *b
	copied.Encrypted = make([]byte, len(b.Encrypted))
	copy(copied.Encrypted, b.Encrypted)
	return &copied
}
