// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// normalizePath converts paths with dynamic segments to route patterns to prevent
// cardinality explosion in metrics. This maps paths like /api/vote/verify/123 to
// /api/vote/verify/{id}.
func normalizePath(path string) string {
	// Exact matches for static routes (no normalization needed)
	staticRoutes := map[string]bool{
		"/":                           true,
		"/api/voter/register":         true,
		"/api/voter/login":            true,
		"/api/voter/verify-face":      true,
		"/api/voter/cast-vote":        true,
		"/api/admin/login":            true,
		"/api/admin/elections":        true,
		"/api/admin/candidates":       true,
		"/api/elections":              true,
		"/api/elections/active":       true,
		"/api/admin/audit-logs":       true,
		"/api/admin/security/suspicious-activities": true,
		"/api/admin/analytics/voting-patterns":      true,
		"/health":     true,
		"/metrics":    true,
		"/ws/results": true,
	}

	if staticRoutes[path] {
		return path
	}

	// Pattern-based normalization for dynamic routes

	// /api/vote/verify/{voteID}
	if strings.HasPrefix(path, "/api/vote/verify/") {
		return "/api/vote/verify/{id}"
	}

	// /api/elections/{id}/candidates
	if strings.HasPrefix(path, "/api/elections/") {
		parts := strings.Split(path, "/")
		if len(parts) == 5 && parts[4] == "candidates" {
			return "/api/elections/{id}/candidates"
		}
	}

	// /api/election/{id}/total-votes
	if strings.HasPrefix(path, "/api/election/") {
		parts := strings.Split(path, "/")
		if len(parts) == 5 && parts[4] == "total-votes" {
			return "/api/election/{id}/total-votes"
		}
	}

	// /api/constituency/{id}/turnout/{electionID}
	if strings.HasPrefix(path, "/api/constituency/") {
		parts := strings.Split(path, "/")
		if len(parts) == 6 && parts[4] == "turnout" {
			return "/api/constituency/{id}/turnout/{election_id}"
		}
	}

	// /api/voter/{id}/auth-success-rate
	if strings.HasPrefix(path, "/api/voter/") {
		parts := strings.Split(path, "/")
		if len(parts) == 5 && parts[4] == "auth-success-rate" {
			return "/api/voter/{id}/auth-success-rate"
		}
	}

	// /api/admin/results/calculate/{electionID}/{constituencyID} and friends
	if strings.HasPrefix(path, "/api/admin/results/") {
		parts := strings.Split(path, "/")
		if len(parts) >= 5 {
			switch parts[4] {
			case "calculate":
				return "/api/admin/results/calculate/{election_id}/{constituency_id}"
			case "calculate-all":
				return "/api/admin/results/calculate-all/{election_id}"
			default:
				return "/api/admin/results/{election_id}"
			}
		}
	}

	// Fallback: return as-is for unknown patterns
	// This ensures we don't accidentally break metrics for new routes
	return path
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// newMetricsResponseWriter creates a new metricsResponseWriter with default 200 status.
func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// HTTPMetrics is a middleware that records HTTP request metrics.
// It captures duration, request/response sizes, and request counts.
// Health check endpoints are excluded from metrics to avoid cardinality issues.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			mrw := newMetricsResponseWriter(w)

			requestSize := int64(0)
			if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
				if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
					requestSize = size
				}
			}

			next.ServeHTTP(mrw, r)

			duration := time.Since(start).Seconds()

			normalizedPath := normalizePath(r.URL.Path)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizedPath,
				strconv.Itoa(mrw.statusCode),
				duration,
				requestSize,
				mrw.size,
			)
		})
	}
}
