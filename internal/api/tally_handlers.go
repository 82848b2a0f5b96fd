package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/civiclabs/votegrity/internal/election"
	"github.com/civiclabs/votegrity/internal/middleware"
	"github.com/civiclabs/votegrity/internal/tally"
)

// TallyHandlers holds dependencies for result calculation HTTP handlers.
type TallyHandlers struct {
	engine *tally.Engine
}

// NewTallyHandlers creates a new TallyHandlers instance.
func NewTallyHandlers(engine *tally.Engine) *TallyHandlers {
	return &TallyHandlers{engine: engine}
}

// Calculate handles POST /api/admin/results/calculate/{electionID}/{constituencyID}.
func (h *TallyHandlers) Calculate(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/admin/results/calculate/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Election ID and constituency ID are required")
		return
	}
	electionID, constituencyID := parts[0], parts[1]

	rows, err := h.engine.Calculate(r.Context(), electionID, constituencyID)
	if err != nil {
		h.writeTallyError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rows)
}

// CalculateAll handles POST /api/admin/results/calculate-all/{electionID}.
func (h *TallyHandlers) CalculateAll(w http.ResponseWriter, r *http.Request) {
	electionID := strings.TrimPrefix(r.URL.Path, "/api/admin/results/calculate-all/")
	if electionID == "" || strings.Contains(electionID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Election ID is required")
		return
	}

	summary, err := h.engine.CalculateAll(r.Context(), electionID)
	if err != nil {
		h.writeTallyError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, summary)
}

// Results handles GET /api/admin/results/{electionID}.
func (h *TallyHandlers) Results(w http.ResponseWriter, r *http.Request) {
	electionID := strings.TrimPrefix(r.URL.Path, "/api/admin/results/")
	if electionID == "" || strings.Contains(electionID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Election ID is required")
		return
	}

	rows, err := h.engine.Results(r.Context(), electionID)
	if err != nil {
		h.writeTallyError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, rows)
}

// Turnout handles GET /api/constituency/{id}/turnout/{electionID}.
func (h *TallyHandlers) Turnout(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/constituency/"), "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] != "turnout" || parts[2] == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Constituency ID and election ID are required")
		return
	}
	constituencyID, electionID := parts[0], parts[2]

	turnout, err := h.engine.Turnout(r.Context(), constituencyID, electionID)
	if err != nil {
		h.writeTallyError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]float64{"turnout_percentage": turnout})
}

// TotalVotes handles GET /api/election/{id}/total-votes.
func (h *TallyHandlers) TotalVotes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/election/")
	electionID := strings.TrimSuffix(path, "/total-votes")
	if electionID == "" || strings.Contains(electionID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Election ID is required")
		return
	}

	total, err := h.engine.TotalVotes(r.Context(), electionID)
	if err != nil {
		h.writeTallyError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]int{"total_votes": total})
}

// VotingPatterns handles GET /api/admin/analytics/voting-patterns?election_id=.
func (h *TallyHandlers) VotingPatterns(w http.ResponseWriter, r *http.Request) {
	electionID := r.URL.Query().Get("election_id")
	if electionID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "election_id query parameter is required")
		return
	}

	patterns, err := h.engine.VotingPatterns(r.Context(), electionID)
	if err != nil {
		h.writeTallyError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, patterns)
}

func (h *TallyHandlers) writeTallyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tally.ErrElectionStillOpen):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeElectionStillOpen)
		WriteError(w, ctx, http.StatusUnprocessableEntity, ErrCodeElectionStillOpen, "Results cannot be calculated while the election is open")
	case errors.Is(err, election.ErrElectionNotFound):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Election not found")
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Result calculation failed")
	}
}
