package tally

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/civiclabs/votegrity/internal/ballot"
	"github.com/civiclabs/votegrity/internal/election"
	"github.com/civiclabs/votegrity/internal/voter"
)

// Publisher receives a notification after a scope's results are
// replaced. Satisfied by the stream hub.
type Publisher interface {
	PublishResults(electionID, constituencyID string, rows []ResultRow)
}

// Engine decrypts ballots under keyring-scoped access and produces
// ranked results. Calculation is deterministic: the same ledger always
// yields the same rows.
type Engine struct {
	ballots          ballot.Repository
	elections        election.Repository
	voters           voter.Repository
	keyring          election.Keyring
	results          ResultStore
	publisher        Publisher
	allowBeforeClose bool
	logger           *slog.Logger
	now              func() time.Time
}

func NewEngine(
	ballots ballot.Repository,
	elections election.Repository,
	voters voter.Repository,
	keyring election.Keyring,
	results ResultStore,
	publisher Publisher,
	allowBeforeClose bool,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		ballots:          ballots,
		elections:        elections,
		voters:           voters,
		keyring:          keyring,
		results:          results,
		publisher:        publisher,
		allowBeforeClose: allowBeforeClose,
		logger:           logger,
		now:              time.Now,
	}
}

// Calculate tallies one (election, constituency) scope and replaces its
// stored rows. Zero ballots is a valid outcome: the scope's rows become
// empty, every candidate at zero is still not listed anywhere.
func (e *Engine) Calculate(ctx context.Context, electionID, constituencyID string) ([]ResultRow, error) {
	el, err := e.elections.GetByID(electionID)
	if err != nil {
		return nil, err
	}
	if !e.allowBeforeClose && el.IsOpen(e.now()) {
		return nil, ErrElectionStillOpen
	}

	candidates, err := e.elections.ListCandidates(electionID, constituencyID)
	if err != nil {
		return nil, err
	}
	byCandidate := make(map[string]*election.Candidate, len(candidates))
	for _, c := range candidates {
		byCandidate[c.ID] = c
	}

	// Snapshot of the ledger for this scope, taken at call time.
	ballots, err := e.ballots.ListByScope(electionID, constituencyID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	err = e.keyring.WithPrivateKey(electionID, func(priv *rsa.PrivateKey) error {
		for _, b := range ballots {
			candidateID, err := ballot.OpenChoice(priv, b.Encrypted)
			if err != nil {
				return fmt.Errorf("ballot %s: %w", b.VoteID, err)
			}
			counts[candidateID]++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows := e.rank(electionID, constituencyID, counts, byCandidate)

	if err := e.results.ReplaceScope(electionID, constituencyID, rows); err != nil {
		return nil, err
	}
	if e.publisher != nil {
		e.publisher.PublishResults(electionID, constituencyID, rows)
	}

	e.logger.InfoContext(ctx, "results calculated",
		slog.String("election_id", electionID),
		slog.String("constituency_id", constituencyID),
		slog.Int("ballots", len(ballots)),
		slog.Int("rows", len(rows)),
	)
	return rows, nil
}

// rank orders candidates by votes descending, candidate ID ascending on
// ties, and assigns rank, percentage, and margin. The rank-1 margin is
// the lead over the runner-up; every other row carries its gap to the
// leader.
func (e *Engine) rank(electionID, constituencyID string, counts map[string]int, byCandidate map[string]*election.Candidate) []ResultRow {
	total := 0
	for _, n := range counts {
		total += n
	}

	rows := make([]ResultRow, 0, len(counts))
	calculatedAt := e.now().UTC()
	for candidateID, votes := range counts {
		row := ResultRow{
			ElectionID:     electionID,
			ConstituencyID: constituencyID,
			CandidateID:    candidateID,
			Votes:          votes,
			CalculatedAt:   calculatedAt,
		}
		if c, ok := byCandidate[candidateID]; ok {
			row.CandidateName = c.Name
			row.Party = c.Party
		}
		if total > 0 {
			row.Percentage = float64(votes) / float64(total) * 100
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Votes != rows[j].Votes {
			return rows[i].Votes > rows[j].Votes
		}
		return rows[i].CandidateID < rows[j].CandidateID
	})

	for i := range rows {
		rows[i].Rank = i + 1
		if i == 0 {
			if len(rows) > 1 {
				rows[i].Margin = rows[0].Votes - rows[1].Votes
			}
		} else {
			rows[i].Margin = rows[0].Votes - rows[i].Votes
		}
	}
	return rows
}

// CalculateAll fans out over every constituency with candidates in the
// election. One failing constituency does not stop the rest.
func (e *Engine) CalculateAll(ctx context.Context, electionID string) (*Summary, error) {
	constituencies, err := e.elections.Constituencies(electionID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Details: make(map[string]string)}
	for _, constituencyID := range constituencies {
		if _, err := e.Calculate(ctx, electionID, constituencyID); err != nil {
			summary.Failed++
			summary.Details[constituencyID] = err.Error()
			e.logger.ErrorContext(ctx, "constituency tally failed",
				slog.String("election_id", electionID),
				slog.String("constituency_id", constituencyID),
				slog.String("error", err.Error()),
			)
			continue
		}
		summary.Processed++
	}
	return summary, nil
}

// Results returns the stored rows for an election, ordered by
// constituency then rank.
func (e *Engine) Results(ctx context.Context, electionID string) ([]ResultRow, error) {
	rows, err := e.results.ByElection(electionID)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ConstituencyID != rows[j].ConstituencyID {
			return rows[i].ConstituencyID < rows[j].ConstituencyID
		}
		return rows[i].Rank < rows[j].Rank
	})
	return rows, nil
}

// Turnout is ballots cast over registered voters, as a percentage, for
// one constituency in one election.
func (e *Engine) Turnout(ctx context.Context, constituencyID, electionID string) (float64, error) {
	registered, err := e.voters.CountByConstituency(constituencyID)
	if err != nil {
		return 0, err
	}
	if registered == 0 {
		return 0, nil
	}
	cast, err := e.ballots.CountByScope(electionID, constituencyID)
	if err != nil {
		return 0, err
	}
	return float64(cast) / float64(registered) * 100, nil
}

// TotalVotes counts all ballots in the election's ledger.
func (e *Engine) TotalVotes(ctx context.Context, electionID string) (int, error) {
	return e.ballots.CountByElection(electionID)
}

// VotingPatterns buckets an election's ballots by cast hour (UTC).
func (e *Engine) VotingPatterns(ctx context.Context, electionID string) ([]HourlyCount, error) {
	ballots, err := e.ballots.ListByElection(electionID)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]int)
	for _, b := range ballots {
		buckets[b.CastAt.UTC().Format("2006-01-02T15:00")]++
	}

	hours := make([]string, 0, len(buckets))
	for h := range buckets {
		hours = append(hours, h)
	}
	sort.Strings(hours)

	out := make([]HourlyCount, 0, len(hours))
	for _, h := range hours {
		out = append(out, HourlyCount{Hour: h, Votes: buckets[h]})
	}
	return out, nil
}
