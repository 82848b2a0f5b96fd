// Package election provides election, candidate and constituency models and
// their repositories, plus scoped access to election private keys.
package election

import (
	"errors"
	"time"
)

var (
	// ErrElectionNotFound is returned when an election does not exist.
	ErrElectionNotFound = errors.New("election not found")
	// ErrCandidateNotFound is returned when a candidate does not exist.
	ErrCandidateNotFound = errors.New("candidate not found")
	// ErrElectionOpened is returned when attempting to modify candidates after
	// the election has opened. Candidates are immutable from that point.
	ErrElectionOpened = errors.New("election has already opened")
	// ErrInvalidWindow is returned when an election's start time is not before its end time.
	ErrInvalidWindow = errors.New("election start time must be before end time")
)

// Election represents a single election with its voting window and the public
// half of its encryption keypair. The private half is only reachable through
// the Keyring.
type Election struct {
	ID           string    `json:"election_id"`
	Title        string    `json:"title"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	PublicKeyPEM string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsOpen reports whether ballots may be cast at the given instant.
// The window is half-open: [StartTime, EndTime).
func (e *Election) IsOpen(at time.Time) bool {
	return !at.Before(e.StartTime) && at.Before(e.EndTime)
}

// Candidate represents a candidate standing in one constituency of one election.
type Candidate struct {
	ID             string `json:"candidate_id"`
	Name           string `json:"name"`
	Party          string `json:"party"`
	ConstituencyID string `json:"constituency_id"`
	ElectionID     string `json:"election_id"`
}

// Constituency represents an electoral district.
type Constituency struct {
	ID       string `json:"constituency_id"`
	Name     string `json:"name"`
	District string `json:"district"`
	State    string `json:"state"`
}

// Repository defines storage operations for elections and candidates.
//
// PrivateKeyPEM exists solely for the Keyring; nothing else may call it.
// The casting path must never see the private key.
type Repository interface {
	// Insert stores a new election along with its private key.
	Insert(e *Election, privateKeyPEM string) error

	// GetByID retrieves an election. Returns ErrElectionNotFound if absent.
	GetByID(id string) (*Election, error)

	// List returns all elections, newest start time first.
	List() ([]*Election, error)

	// ListActive returns elections whose window contains the given instant.
	ListActive(at time.Time) ([]*Election, error)

	// PrivateKeyPEM returns the private key PEM for an election.
	// Keyring use only.
	PrivateKeyPEM(electionID string) (string, error)

	// InsertCandidate registers a candidate. Returns ErrElectionOpened if the
	// election's voting window has already started.
	InsertCandidate(c *Candidate) error

	// GetCandidate retrieves a candidate. Returns ErrCandidateNotFound if absent.
	GetCandidate(id string) (*Candidate, error)

	// ListCandidates returns candidates for an election, optionally filtered
	// by constituency (empty string = all constituencies).
	ListCandidates(electionID, constituencyID string) ([]*Candidate, error)

	// Constituencies returns the distinct constituency IDs that have
	// candidates in the election, sorted.
	Constituencies(electionID string) ([]string, error)
}
