// Package verify lets a voter check that their receipt matches a ballot
// in the ledger, without learning anything else.
package verify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/civiclabs/votegrity/internal/ballot"
)

// Service answers receipt verification queries. Unknown vote IDs and
// mismatched hashes are indistinguishable: both are simply "not valid".
type Service struct {
	ballots     ballot.Repository
	receiptSalt string
	logger      *slog.Logger
}

func NewService(ballots ballot.Repository, receiptSalt string, logger *slog.Logger) *Service {
	return &Service{ballots: ballots, receiptSalt: receiptSalt, logger: logger}
}

// Verify recomputes the receipt hash for the stored ballot and compares
// it in constant time against the presented hash.
func (s *Service) Verify(ctx context.Context, voteID, presentedHash string) bool {
	b, err := s.ballots.GetByVoteID(voteID)
	if err != nil {
		if !errors.Is(err, ballot.ErrBallotNotFound) {
			s.logger.ErrorContext(ctx, "receipt lookup failed",
				slog.String("vote_id", voteID),
				slog.String("error", err.Error()),
			)
		}
		return false
	}

	expected := ballot.ReceiptHash(b.VoteID, b.Encrypted, s.receiptSalt)
	return ballot.ReceiptEqual(expected, presentedHash)
}
