package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/civiclabs/votegrity/internal/security"
	"github.com/civiclabs/votegrity/internal/voter"
)

var (
	ErrNotEnrolled          = errors.New("voter has no enrolled template")
	ErrAuthenticationFailed = errors.New("face authentication failed")
)

// Result is the outcome of a face verification attempt.
type Result struct {
	Verified   bool    `json:"verified"`
	Similarity float64 `json:"similarity"`
	Assertion  string  `json:"assertion,omitempty"`
}

// Gate performs biometric re-verification before a vote may be cast.
// Every attempt is recorded as an auth event, failures included, so the
// security monitor sees the full picture.
type Gate struct {
	voters     voter.Repository
	templates  TemplateStore
	matcher    Matcher
	assertions AssertionStore
	monitor    *security.Monitor
	threshold  float64
	logger     *slog.Logger
}

func NewGate(
	voters voter.Repository,
	templates TemplateStore,
	matcher Matcher,
	assertions AssertionStore,
	monitor *security.Monitor,
	threshold float64,
	logger *slog.Logger,
) *Gate {
	return &Gate{
		voters:     voters,
		templates:  templates,
		matcher:    matcher,
		assertions: assertions,
		monitor:    monitor,
		threshold:  threshold,
		logger:     logger,
	}
}

// Verify scores the live sample against the voter's enrolled template.
// On a pass it issues a single-use assertion token the ballot ledger
// will consume at cast time.
func (g *Gate) Verify(ctx context.Context, voterID string, sample []byte, sourceIP string) (*Result, error) {
	v, err := g.voters.GetByID(voterID)
	if err != nil {
		if errors.Is(err, voter.ErrVoterNotFound) {
			g.recordEvent(ctx, voterID, security.OutcomeFailure, sourceIP)
			return nil, ErrNotEnrolled
		}
		return nil, err
	}
	if v.TemplateRef == "" {
		g.recordEvent(ctx, voterID, security.OutcomeFailure, sourceIP)
		return nil, ErrNotEnrolled
	}

	enrolled, err := g.templates.Get(ctx, v.TemplateRef)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			g.recordEvent(ctx, voterID, security.OutcomeFailure, sourceIP)
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("loading enrolled template: %w", err)
	}

	similarity, err := g.matcher.Score(ctx, enrolled, sample)
	if err != nil {
		g.recordEvent(ctx, voterID, security.OutcomeFailure, sourceIP)
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	if similarity < g.threshold {
		g.recordEvent(ctx, voterID, security.OutcomeFailure, sourceIP)
		g.logger.InfoContext(ctx, "face verification rejected",
			slog.String("voter_id", voterID),
			slog.Float64("similarity", similarity),
		)
		return &Result{Verified: false, Similarity: similarity}, ErrAuthenticationFailed
	}

	g.recordEvent(ctx, voterID, security.OutcomeSuccess, sourceIP)

	token, err := g.assertions.Issue(ctx, voterID)
	if err != nil {
		return nil, fmt.Errorf("issuing assertion: %w", err)
	}

	g.logger.InfoContext(ctx, "face verification passed",
		slog.String("voter_id", voterID),
		slog.Float64("similarity", similarity),
	)
	return &Result{Verified: true, Similarity: similarity, Assertion: token}, nil
}

func (g *Gate) recordEvent(ctx context.Context, voterID string, outcome security.Outcome, sourceIP string) {
	if err := g.monitor.RecordEvent(ctx, voterID, security.ChannelFace, outcome, sourceIP); err != nil {
		g.logger.ErrorContext(ctx, "failed to record face auth event",
			slog.String("voter_id", voterID),
			slog.String("error", err.Error()),
		)
	}
}
