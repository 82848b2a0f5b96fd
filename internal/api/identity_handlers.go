package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/civiclabs/votegrity/internal/identity"
	"github.com/civiclabs/votegrity/internal/middleware"
)

// VerifyFaceRequest represents the request body for face verification.
type VerifyFaceRequest struct {
	FaceSample string `json:"face_sample"` // base64-encoded embedding
}

// VerifyFaceResponse reports the verification outcome. The assertion
// token is present only on a pass.
type VerifyFaceResponse struct {
	Verified   bool    `json:"verified"`
	Similarity float64 `json:"similarity"`
	Assertion  string  `json:"assertion,omitempty"`
}

// IdentityHandlers holds dependencies for biometric verification handlers.
type IdentityHandlers struct {
	gate *identity.Gate
}

// NewIdentityHandlers creates a new IdentityHandlers instance.
func NewIdentityHandlers(gate *identity.Gate) *IdentityHandlers {
	return &IdentityHandlers{gate: gate}
}

// VerifyFace handles POST /api/voter/verify-face. The voter identity
// comes from the authenticated token, never from the request body.
func (h *IdentityHandlers) VerifyFace(w http.ResponseWriter, r *http.Request) {
	voterID := middleware.GetVoterID(r.Context())
	if voterID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnauthorized)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return
	}

	var req VerifyFaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	sample, err := base64.StdEncoding.DecodeString(req.FaceSample)
	if err != nil || len(sample) == 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "face_sample must be non-empty base64")
		return
	}

	result, err := h.gate.Verify(r.Context(), voterID, sample, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrNotEnrolled):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotEnrolled)
			WriteError(w, ctx, http.StatusForbidden, ErrCodeNotEnrolled, "No enrolled biometric template")
		case errors.Is(err, identity.ErrAuthenticationFailed):
			// Report the similarity so the client can prompt a retry.
			similarity := 0.0
			if result != nil {
				similarity = result.Similarity
			}
			writeJSON(w, r, http.StatusUnauthorized, VerifyFaceResponse{Verified: false, Similarity: similarity})
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Face verification failed")
		}
		return
	}

	writeJSON(w, r, http.StatusOK, VerifyFaceResponse{
		Verified:   result.Verified,
		Similarity: result.Similarity,
		Assertion:  result.Assertion,
	})
}
