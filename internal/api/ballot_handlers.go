package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/civiclabs/votegrity/internal/ballot"
	"github.com/civiclabs/votegrity/internal/election"
	"github.com/civiclabs/votegrity/internal/middleware"
	"github.com/civiclabs/votegrity/internal/verify"
	"github.com/civiclabs/votegrity/internal/voter"
)

// CastVoteRequest represents the request body for casting a ballot.
type CastVoteRequest struct {
	ElectionID  string `json:"election_id"`
	CandidateID string `json:"candidate_id"`
	Assertion   string `json:"assertion"`
}

// VerifyVoteResponse reports whether a receipt matches the ledger.
type VerifyVoteResponse struct {
	Valid bool `json:"valid"`
}

// BallotHandlers holds dependencies for ballot HTTP handlers.
type BallotHandlers struct {
	ledger   *ballot.Ledger
	verifier *verify.Service
}

// NewBallotHandlers creates a new BallotHandlers instance.
func NewBallotHandlers(ledger *ballot.Ledger, verifier *verify.Service) *BallotHandlers {
	return &BallotHandlers{ledger: ledger, verifier: verifier}
}

// CastVote handles POST /api/voter/cast-vote. Requires a voter token and
// a live assertion from a prior face verification.
func (h *BallotHandlers) CastVote(w http.ResponseWriter, r *http.Request) {
	voterID := middleware.GetVoterID(r.Context())
	if voterID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnauthorized)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return
	}

	var req CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if req.ElectionID == "" || req.CandidateID == "" || req.Assertion == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "election_id, candidate_id, and assertion are required")
		return
	}

	receipt, err := h.ledger.Cast(r.Context(), voterID, req.ElectionID, req.CandidateID, req.Assertion)
	if err != nil {
		switch {
		case errors.Is(err, ballot.ErrUnauthorized):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnauthorized)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeUnauthorized, "Vote not authorized: verify your identity first")
		case errors.Is(err, ballot.ErrAlreadyVoted):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAlreadyVoted)
			WriteError(w, ctx, http.StatusConflict, ErrCodeAlreadyVoted, "A ballot has already been cast in this election")
		case errors.Is(err, ballot.ErrElectionClosed):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeElectionClosed)
			WriteError(w, ctx, http.StatusUnprocessableEntity, ErrCodeElectionClosed, "Election is not open for voting")
		case errors.Is(err, ballot.ErrInvalidCandidate):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidCandidate)
			WriteError(w, ctx, http.StatusUnprocessableEntity, ErrCodeInvalidCandidate, "Candidate is not valid for this voter and election")
		case errors.Is(err, election.ErrElectionNotFound):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Election not found")
		case errors.Is(err, voter.ErrVoterNotFound):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Voter not found")
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to cast vote")
		}
		return
	}

	writeJSON(w, r, http.StatusCreated, receipt)
}

// VerifyVote handles GET /api/vote/verify/{voteID}?hash=. The response
// never distinguishes an unknown vote ID from a wrong hash.
func (h *BallotHandlers) VerifyVote(w http.ResponseWriter, r *http.Request) {
	voteID := strings.TrimPrefix(r.URL.Path, "/api/vote/verify/")
	if voteID == "" || strings.Contains(voteID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Vote ID is required")
		return
	}
	hash := r.URL.Query().Get("hash")
	if hash == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "hash query parameter is required")
		return
	}

	valid := h.verifier.Verify(r.Context(), voteID, hash)
	writeJSON(w, r, http.StatusOK, VerifyVoteResponse{Valid: valid})
}
