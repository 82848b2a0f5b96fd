// Package ballot implements the append-only vote ledger: one encrypted
// ballot per voter per election, each with a verifiable receipt.
package ballot

import (
	"errors"
	"time"
)

var (
	ErrAlreadyVoted     = errors.New("voter has already cast a ballot in this election")
	ErrElectionClosed   = errors.New("election is not open for voting")
	ErrInvalidCandidate = errors.New("candidate not valid for this voter and election")
	ErrUnauthorized     = errors.New("vote not authorized")
	ErrBallotNotFound   = errors.New("ballot not found")
)

// Ballot is an immutable ledger entry. The plaintext choice exists only
// transiently inside Cast; what's stored is the encrypted payload and
// the receipt hash.
type Ballot struct {
	VoteID         string    `json:"vote_id"`
	ElectionID     string    `json:"election_id"`
	ConstituencyID string    `json:"constituency_id"`
	VoterID        string    `json:"-"`
	Encrypted      []byte    `json:"-"`
	ReceiptHash    string    `json:"-"`
	CastAt         time.Time `json:"cast_at"`
}

// Receipt is returned to the voter after a successful cast.
type Receipt struct {
	VoteID      string `json:"vote_id"`
	ReceiptHash string `json:"vote_hash"`
}

// Repository defines storage operations for ballots. Insert must be an
// atomic check-and-insert on (voter, election): under concurrent casts
// for the same pair, exactly one insert succeeds and the rest return
// ErrAlreadyVoted.
type Repository interface {
	Insert(b *Ballot) error
	GetByVoteID(voteID string) (*Ballot, error)
	ListByScope(electionID, constituencyID string) ([]*Ballot, error)
	ListByElection(electionID string) ([]*Ballot, error)
	CountByElection(electionID string) (int, error)
	CountByScope(electionID, constituencyID string) (int, error)
}
