package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/civiclabs/votegrity/internal/auth"
	"github.com/civiclabs/votegrity/internal/middleware"
	"github.com/civiclabs/votegrity/internal/security"
	"github.com/civiclabs/votegrity/internal/validate"
	"github.com/civiclabs/votegrity/internal/voter"
)

// RegisterVoterRequest represents the request body for voter registration.
type RegisterVoterRequest struct {
	VoterIDNumber  string `json:"voter_id_number"`
	Name           string `json:"name"`
	ConstituencyID string `json:"constituency_id"`
	Password       string `json:"password"`
	FaceTemplate   string `json:"face_template"` // base64-encoded embedding
}

// LoginRequest represents the request body for password login.
type LoginRequest struct {
	VoterIDNumber string `json:"voter_id_number"`
	Password      string `json:"password"`
}

// LoginResponse carries the issued token and voter identity.
type LoginResponse struct {
	Token     string    `json:"token"`
	VoterID   string    `json:"voter_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VoterHandlers holds dependencies for voter HTTP handlers.
type VoterHandlers struct {
	service *voter.Service
	monitor *security.Monitor
	jwt     *auth.JWTService
}

// NewVoterHandlers creates a new VoterHandlers instance.
func NewVoterHandlers(service *voter.Service, monitor *security.Monitor, jwt *auth.JWTService) *VoterHandlers {
	return &VoterHandlers{service: service, monitor: monitor, jwt: jwt}
}

// Register handles POST /api/voter/register.
func (h *VoterHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterVoterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	idNumber, err := validate.VoterIDNumber(req.VoterIDNumber)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "voter_id_number: "+err.Error())
		return
	}
	name, err := validate.PersonName(req.Name)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "name: "+err.Error())
		return
	}
	constituencyID, err := validate.ConstituencyID(req.ConstituencyID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "constituency_id: "+err.Error())
		return
	}

	template, err := base64.StdEncoding.DecodeString(req.FaceTemplate)
	if err != nil || len(template) == 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "face_template must be non-empty base64")
		return
	}

	v, err := h.service.Register(r.Context(), voter.RegisterInput{
		VoterIDNumber:  idNumber,
		Name:           name,
		ConstituencyID: constituencyID,
		Password:       req.Password,
		FaceTemplate:   template,
	})
	if err != nil {
		switch {
		case errors.Is(err, voter.ErrDuplicateVoterID):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeDuplicateVoter)
			WriteError(w, ctx, http.StatusConflict, ErrCodeDuplicateVoter, "Voter ID number is already registered")
		case errors.Is(err, voter.ErrMissingField), errors.Is(err, auth.ErrPasswordTooShort):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to register voter")
		}
		return
	}

	writeJSON(w, r, http.StatusCreated, v)
}

// Login handles POST /api/voter/login. Every attempt, successful or not,
// is recorded as a password auth event for the security monitor.
func (h *VoterHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if strings.TrimSpace(req.VoterIDNumber) == "" || req.Password == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "voter_id_number and password are required")
		return
	}

	sourceIP := clientIP(r)

	v, err := h.service.Login(r.Context(), strings.ToUpper(strings.TrimSpace(req.VoterIDNumber)), req.Password)
	if err != nil {
		// The failed attempt is attributed to the claimed ID number
		// because no voter record may exist.
		_ = h.monitor.RecordEvent(r.Context(), strings.ToUpper(strings.TrimSpace(req.VoterIDNumber)), security.ChannelPassword, security.OutcomeFailure, sourceIP)

		if errors.Is(err, voter.ErrInvalidCredentials) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Invalid credentials")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Login failed")
		return
	}

	_ = h.monitor.RecordEvent(r.Context(), v.ID, security.ChannelPassword, security.OutcomeSuccess, sourceIP)

	token, err := h.jwt.GenerateVoterToken(v.ID, v.VoterIDNumber)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to issue token")
		return
	}

	writeJSON(w, r, http.StatusOK, LoginResponse{
		Token:     token,
		VoterID:   v.ID,
		ExpiresAt: time.Now().Add(auth.VoterTokenExpiry),
	})
}

// clientIP resolves the originating address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host
}
