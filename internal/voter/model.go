package voter

import (
	"errors"
	"time"
)

var (
	ErrVoterNotFound    = errors.New("voter not found")
	ErrDuplicateVoterID = errors.New("voter id number already registered")
	ErrMissingField     = errors.New("missing required field")
)

// Voter is a registered participant. TemplateRef points at the enrolled
// biometric template in the template store; it is never serialized.
type Voter struct {
	ID             string    `json:"id"`
	VoterIDNumber  string    `json:"voter_id_number"`
	Name           string    `json:"name"`
	ConstituencyID string    `json:"constituency_id"`
	PasswordHash   string    `json:"-"`
	TemplateRef    string    `json:"-"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// Repository defines storage operations for voters.
type Repository interface {
	Insert(v *Voter) error
	GetByID(id string) (*Voter, error)
	GetByVoterIDNumber(idNumber string) (*Voter, error)
	CountByConstituency(constituencyID string) (int, error)
	Count() (int, error)
}
