// Package api provides HTTP API utilities including standardized error handling.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/civiclabs/votegrity/internal/middleware"
)

// Common error codes used throughout the API.
const (
	// ErrCodeValidation indicates input validation failure.
	ErrCodeValidation = "validation_error"

	// ErrCodeAuthFailed indicates authentication failure.
	ErrCodeAuthFailed = "auth_failed"

	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound = "not_found"

	// ErrCodeRateLimited indicates rate limit exceeded.
	ErrCodeRateLimited = "rate_limited"

	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal = "internal_error"

	// ErrCodeForbidden indicates the request is forbidden.
	ErrCodeForbidden = "forbidden"

	// ErrCodeConflict indicates a conflict with the current state.
	ErrCodeConflict = "conflict"

	// ErrCodeBadRequest indicates a malformed request.
	ErrCodeBadRequest = "bad_request"

	// ErrCodeUnauthorized indicates a missing or invalid credential.
	ErrCodeUnauthorized = "unauthorized"

	// ErrCodeAlreadyVoted indicates the voter already has a ballot in this election.
	ErrCodeAlreadyVoted = "already_voted"

	// ErrCodeElectionClosed indicates the election is outside its voting window.
	ErrCodeElectionClosed = "election_closed"

	// ErrCodeElectionStillOpen indicates results cannot be calculated yet.
	ErrCodeElectionStillOpen = "election_still_open"

	// ErrCodeInvalidCandidate indicates the candidate is not valid for this voter.
	ErrCodeInvalidCandidate = "invalid_candidate"

	// ErrCodeAuthenticationFailed indicates face similarity below the threshold.
	ErrCodeAuthenticationFailed = "authentication_failed"

	// ErrCodeNotEnrolled indicates the voter has no enrolled biometric template.
	ErrCodeNotEnrolled = "not_enrolled"

	// ErrCodeDuplicateVoter indicates the voter ID number is already registered.
	ErrCodeDuplicateVoter = "duplicate_voter"

	// ErrCodeElectionOpened indicates candidates cannot change after opening.
	ErrCodeElectionOpened = "election_opened"

	// ErrCodeInvalidTimeRange indicates election start time is not before end time.
	ErrCodeInvalidTimeRange = "invalid_time_range"
)

// ErrorResponse represents the standard error response format.
// All API errors return JSON in this structure: {"error": {"code": "...", "message": "..."}}
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError writes a standardized JSON error response.
//
// Format: {"error": {"code": "error_code", "message": "Error description"}}
//
// The error_code will be automatically logged by the logging middleware
// for all 4xx and 5xx responses if you call SetErrorCode on the context
// and pass the updated context to WriteError.
//
// Example:
//
//	ctx := middleware.SetErrorCode(r.Context(), api.ErrCodeNotFound)
//	api.WriteError(w, ctx, http.StatusNotFound, api.ErrCodeNotFound, "Election not found")
func WriteError(w http.ResponseWriter, ctx context.Context, status int, code, message string) {
	// Update the context in the response writer if supported (for logging middleware)
	middleware.UpdateResponseContext(w, ctx)

	errResp := ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}

	data, err := json.Marshal(errResp)
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		slog.ErrorContext(ctx, "failed to marshal error response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(ctx, "failed to write error response", "error", err)
	}
}

// StatusCodeMapping returns the recommended HTTP status code for common error codes.
func StatusCodeMapping(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeBadRequest, ErrCodeInvalidTimeRange:
		return http.StatusBadRequest
	case ErrCodeAuthFailed, ErrCodeUnauthorized, ErrCodeAuthenticationFailed:
		return http.StatusUnauthorized
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeForbidden, ErrCodeNotEnrolled:
		return http.StatusForbidden
	case ErrCodeConflict, ErrCodeAlreadyVoted, ErrCodeDuplicateVoter, ErrCodeElectionOpened:
		return http.StatusConflict
	case ErrCodeElectionClosed, ErrCodeElectionStillOpen, ErrCodeInvalidCandidate:
		return http.StatusUnprocessableEntity
	case ErrCodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
