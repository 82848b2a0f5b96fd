package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civiclabs/votegrity/internal/auth"
	"github.com/civiclabs/votegrity/internal/election"
	"github.com/civiclabs/votegrity/internal/middleware"
	"github.com/civiclabs/votegrity/internal/validate"
)

// AdminLoginRequest represents the request body for admin login.
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateElectionRequest represents the request body for creating an election.
type CreateElectionRequest struct {
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// CreateCandidateRequest represents the request body for registering a candidate.
type CreateCandidateRequest struct {
	Name           string `json:"name"`
	Party          string `json:"party"`
	ConstituencyID string `json:"constituency_id"`
	ElectionID     string `json:"election_id"`
}

// ElectionHandlers holds dependencies for election and admin HTTP handlers.
type ElectionHandlers struct {
	repo              election.Repository
	jwt               *auth.JWTService
	adminUsername     string
	adminPasswordHash string
}

// NewElectionHandlers creates a new ElectionHandlers instance.
func NewElectionHandlers(repo election.Repository, jwt *auth.JWTService, adminUsername, adminPasswordHash string) *ElectionHandlers {
	return &ElectionHandlers{
		repo:              repo,
		jwt:               jwt,
		adminUsername:     adminUsername,
		adminPasswordHash: adminPasswordHash,
	}
}

// AdminLogin handles POST /api/admin/login.
func (h *ElectionHandlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	if h.adminUsername == "" || h.adminPasswordHash == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Admin login is not configured")
		return
	}

	var req AdminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.adminUsername)) == 1
	passwordOK := auth.CheckPassword(req.Password, h.adminPasswordHash)
	if !usernameOK || !passwordOK {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid credentials")
		return
	}

	token, err := h.jwt.GenerateAdminToken(req.Username)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to issue token")
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": time.Now().Add(auth.AdminTokenExpiry),
	})
}

// CreateElection handles POST /api/admin/elections. A fresh keypair is
// generated per election; only the public half is ever exposed.
func (h *ElectionHandlers) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req CreateElectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	title, err := validate.ElectionTitle(req.Title)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "title: "+err.Error())
		return
	}
	if !req.StartTime.Before(req.EndTime) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidTimeRange)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidTimeRange, "start_time must be before end_time")
		return
	}

	pubPEM, privPEM, err := election.GenerateKeypair()
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to generate election keys")
		return
	}

	e := &election.Election{
		ID:           uuid.New().String(),
		Title:        title,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		PublicKeyPEM: pubPEM,
	}
	if err := h.repo.Insert(e, privPEM); err != nil {
		if errors.Is(err, election.ErrInvalidWindow) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidTimeRange)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidTimeRange, "start_time must be before end_time")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create election")
		return
	}

	writeJSON(w, r, http.StatusCreated, e)
}

// CreateCandidate handles POST /api/admin/candidates. Candidates are
// frozen once their election opens.
func (h *ElectionHandlers) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req CreateCandidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	name, err := validate.PersonName(req.Name)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "name: "+err.Error())
		return
	}
	party, err := validate.PartyName(req.Party)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "party: "+err.Error())
		return
	}
	constituencyID, err := validate.ConstituencyID(req.ConstituencyID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "constituency_id: "+err.Error())
		return
	}
	if req.ElectionID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "election_id is required")
		return
	}

	c := &election.Candidate{
		ID:             uuid.New().String(),
		Name:           name,
		Party:          party,
		ConstituencyID: constituencyID,
		ElectionID:     req.ElectionID,
	}
	if err := h.repo.InsertCandidate(c); err != nil {
		switch {
		case errors.Is(err, election.ErrElectionNotFound):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Election not found")
		case errors.Is(err, election.ErrElectionOpened):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeElectionOpened)
			WriteError(w, ctx, http.StatusConflict, ErrCodeElectionOpened, "Candidates cannot change after the election opens")
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to register candidate")
		}
		return
	}

	writeJSON(w, r, http.StatusCreated, c)
}

// ListElections handles GET /api/elections.
func (h *ElectionHandlers) ListElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.repo.List()
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list elections")
		return
	}
	writeJSON(w, r, http.StatusOK, elections)
}

// ListActiveElections handles GET /api/elections/active.
func (h *ElectionHandlers) ListActiveElections(w http.ResponseWriter, r *http.Request) {
	elections, err := h.repo.ListActive(time.Now())
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list elections")
		return
	}
	writeJSON(w, r, http.StatusOK, elections)
}

// ListCandidates handles GET /api/elections/{id}/candidates?constituency_id=.
func (h *ElectionHandlers) ListCandidates(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/elections/")
	electionID := strings.TrimSuffix(path, "/candidates")
	if electionID == "" || strings.Contains(electionID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Election ID is required")
		return
	}

	if _, err := h.repo.GetByID(electionID); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Election not found")
		return
	}

	candidates, err := h.repo.ListCandidates(electionID, r.URL.Query().Get("constituency_id"))
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list candidates")
		return
	}
	writeJSON(w, r, http.StatusOK, candidates)
}
