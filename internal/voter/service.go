package voter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/civiclabs/votegrity/internal/auth"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// TemplateStore persists enrolled biometric templates. Satisfied by
// identity.TemplateStore.
type TemplateStore interface {
	Put(ctx context.Context, ref string, template []byte) error
}

// RegisterInput carries everything needed to enroll a new voter.
type RegisterInput struct {
	VoterIDNumber  string
	Name           string
	ConstituencyID string
	Password       string
	FaceTemplate   []byte
}

// Service handles voter registration and password login.
type Service struct {
	repo      Repository
	templates TemplateStore
	logger    *slog.Logger
}

func NewService(repo Repository, templates TemplateStore, logger *slog.Logger) *Service {
	return &Service{repo: repo, templates: templates, logger: logger}
}

// Register enrolls a new voter. The biometric template is written to the
// template store before the voter record is inserted, so a failed write
// never leaves a voter without an enrolled template.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Voter, error) {
	if input.VoterIDNumber == "" || input.Name == "" || input.ConstituencyID == "" {
		return nil, ErrMissingField
	}
	if len(input.FaceTemplate) == 0 {
		return nil, fmt.Errorf("%w: face template", ErrMissingField)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	ref := "templates/" + id

	if err := s.templates.Put(ctx, ref, input.FaceTemplate); err != nil {
		return nil, fmt.Errorf("storing face template: %w", err)
	}

	v := &Voter{
		ID:             id,
		VoterIDNumber:  input.VoterIDNumber,
		Name:           input.Name,
		ConstituencyID: input.ConstituencyID,
		PasswordHash:   hash,
		TemplateRef:    ref,
		RegisteredAt:   time.Now().UTC(),
	}

	if err := s.repo.Insert(v); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "voter registered",
		slog.String("voter_id", v.ID),
		slog.String("constituency_id", v.ConstituencyID),
	)
	return v, nil
}

// Login checks the password for the given voter ID number. Unknown voters
// and wrong passwords both map to ErrInvalidCredentials so callers cannot
// probe for registered ID numbers.
func (s *Service) Login(ctx context.Context, voterIDNumber, password string) (*Voter, error) {
	v, err := s.repo.GetByVoterIDNumber(voterIDNumber)
	if err != nil {
		if errors.Is(err, ErrVoterNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(password, v.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return v, nil
}
