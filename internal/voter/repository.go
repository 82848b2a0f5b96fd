package voter

import "sync"

// InMemoryRepository is a thread-safe in-memory voter store.
type InMemoryRepository struct {
	mu         sync.RWMutex
	voters     map[string]*Voter
	byIDNumber map[string]string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		voters:     make(map[string]*Voter),
		byIDNumber: make(map[string]string),
	}
}

func (r *InMemoryRepository) Insert(v *Voter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byIDNumber[v.VoterIDNumber]; exists {
		return ErrDuplicateVoterID
	}

	stored := *v
	r.voters[v.ID] = &stored
	r.byIDNumber[v.VoterIDNumber] = v.ID
	return nil
}

func (r *InMemoryRepository) GetByID(id string) (*Voter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, exists := r.voters[id]
	if !exists {
		return nil, ErrVoterNotFound
	}
	copied := *v
	return &copied, nil
}

func (r *InMemoryRepository) GetByVoterIDNumber(idNumber string) (*Voter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.byIDNumber[idNumber]
	if !exists {
		return nil, ErrVoterNotFound
	}
	copied := *r.voters[id]
	return &copied, nil
}

func (r *InMemoryRepository) CountByConstituency(constituencyID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, v := range r.voters {
		if v.ConstituencyID == constituencyID {
			count++
		}
	}
	return count, nil
}

func (r *InMemoryRepository) Count() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.voters), nil
}
