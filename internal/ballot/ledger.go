package ballot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/civiclabs/votegrity/internal/election"
	"github.com/civiclabs/votegrity/internal/identity"
	"github.com/civiclabs/votegrity/internal/voter"
)

// Ledger coordinates a single cast: assertion check, eligibility checks,
// encryption, and the atomic insert. Any failure leaves no partial
// ballot behind.
type Ledger struct {
	ballots     Repository
	elections   election.Repository
	voters      voter.Repository
	assertions  identity.AssertionStore
	receiptSalt string
	logger      *slog.Logger
	now         func() time.Time
}

func NewLedger(
	ballots Repository,
	elections election.Repository,
	voters voter.Repository,
	assertions identity.AssertionStore,
	receiptSalt string,
	logger *slog.Logger,
) *Ledger {
	return &Ledger{
		ballots:     ballots,
		elections:   elections,
		voters:      voters,
		assertions:  assertions,
		receiptSalt: receiptSalt,
		logger:      logger,
		now:         time.Now,
	}
}

// Cast records one encrypted ballot for the voter. The assertion token
// is consumed first and exactly once; a stolen or replayed token fails
// here before anything else happens.
func (l *Ledger) Cast(ctx context.Context, voterID, electionID, candidateID, assertionToken string) (*Receipt, error) {
	assertedVoter, err := l.assertions.Consume(ctx, assertionToken)
	if err != nil {
		if errors.Is(err, identity.ErrAssertionInvalid) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("consuming assertion: %w", err)
	}
	if assertedVoter != voterID {
		return nil, ErrUnauthorized
	}

	e, err := l.elections.GetByID(electionID)
	if err != nil {
		return nil, err
	}
	if !e.IsOpen(l.now()) {
		return nil, ErrElectionClosed
	}

	v, err := l.voters.GetByID(voterID)
	if err != nil {
		return nil, err
	}

	candidate, err := l.elections.GetCandidate(candidateID)
	if err != nil {
		if errors.Is(err, election.ErrCandidateNotFound) {
			return nil, ErrInvalidCandidate
		}
		return nil, err
	}
	if candidate.ElectionID != electionID || candidate.ConstituencyID != v.ConstituencyID {
		return nil, ErrInvalidCandidate
	}

	pub, err := election.ParsePublicKey(e.PublicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parsing election public key: %w", err)
	}

	encrypted, err := SealChoice(pub, candidateID)
	if err != nil {
		return nil, err
	}

	voteID := uuid.New().String()
	b := &Ballot{
		VoteID:         voteID,
		ElectionID:     electionID,
		ConstituencyID: v.ConstituencyID,
		VoterID:        voterID,
		Encrypted:      encrypted,
		ReceiptHash:    ReceiptHash(voteID, encrypted, l.receiptSalt),
		CastAt:         l.now().UTC(),
	}

	if err := l.ballots.Insert(b); err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "ballot cast",
		slog.String("vote_id", voteID),
		slog.String("election_id", electionID),
		slog.String("constituency_id", v.ConstituencyID),
	)
	return &Receipt{VoteID: voteID, ReceiptHash: b.ReceiptHash}, nil
}
