package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/civiclabs/votegrity/internal/middleware"
	"github.com/civiclabs/votegrity/internal/security"
)

// SecurityHandlers holds dependencies for security monitoring HTTP handlers.
type SecurityHandlers struct {
	monitor *security.Monitor
}

// NewSecurityHandlers creates a new SecurityHandlers instance.
func NewSecurityHandlers(monitor *security.Monitor) *SecurityHandlers {
	return &SecurityHandlers{monitor: monitor}
}

// SuspiciousActivities handles GET /api/admin/security/suspicious-activities.
func (h *SecurityHandlers) SuspiciousActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.monitor.SuspiciousActivities(r.Context())
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to scan auth events")
		return
	}
	if activities == nil {
		activities = []security.SuspiciousActivity{}
	}
	writeJSON(w, r, http.StatusOK, activities)
}

// AuditLogs handles GET /api/admin/audit-logs?limit=.
func (h *SecurityHandlers) AuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	logs, err := h.monitor.AuditLogs(r.Context(), limit)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to read audit logs")
		return
	}
	if logs == nil {
		logs = []security.AuditEntry{}
	}
	writeJSON(w, r, http.StatusOK, logs)
}

// AuthSuccessRate handles GET /api/voter/{id}/auth-success-rate.
func (h *SecurityHandlers) AuthSuccessRate(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/voter/")
	voterID := strings.TrimSuffix(path, "/auth-success-rate")
	if voterID == "" || strings.Contains(voterID, "/") {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Voter ID is required")
		return
	}

	rate, err := h.monitor.AuthSuccessRate(r.Context(), voterID)
	if err != nil {
		if errors.Is(err, security.ErrNoEvents) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "No authentication events for this voter")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to compute success rate")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]float64{"success_rate": rate})
}
