package api

import (
	"net/http"

	"github.com/civiclabs/votegrity/internal/auth"
	"github.com/civiclabs/votegrity/internal/middleware"
)

// Handlers bundles every handler group the server exposes.
type Handlers struct {
	Voters   *VoterHandlers
	Identity *IdentityHandlers
	Ballots  *BallotHandlers
	Election *ElectionHandlers
	Tally    *TallyHandlers
	Security *SecurityHandlers
	Health   *HealthHandlers
	Results  *ResultsWebSocketHandlers
}

// RouterConfig carries the cross-cutting dependencies for route registration.
type RouterConfig struct {
	JWT            *auth.JWTService
	RateLimitStore middleware.RateLimitStore
	AuthLimit      middleware.RateLimitConfig
}

// RegisterRoutes mounts all API endpoints on the mux.
//
// Voter credential endpoints (register, login, verify-face) are rate limited
// by client IP. Vote casting and face verification require a voter session
// token; everything under /api/admin requires an admin token.
func RegisterRoutes(mux *http.ServeMux, h Handlers, cfg RouterConfig) {
	voterAuth := middleware.Authenticate(cfg.JWT)
	adminAuth := func(next http.Handler) http.Handler {
		return middleware.Authenticate(cfg.JWT)(middleware.RequireRole(auth.RoleAdmin)(next))
	}
	authLimit := middleware.RateLimiter(cfg.RateLimitStore, cfg.AuthLimit, middleware.IPKeyFunc())

	// Voter registration and authentication
	mux.Handle("/api/voter/register", authLimit(method(http.MethodPost, h.Voters.Register)))
	mux.Handle("/api/voter/login", authLimit(method(http.MethodPost, h.Voters.Login)))
	mux.Handle("/api/voter/verify-face", authLimit(voterAuth(method(http.MethodPost, h.Identity.VerifyFace))))

	// Voting
	mux.Handle("/api/voter/cast-vote", voterAuth(method(http.MethodPost, h.Ballots.CastVote)))
	mux.Handle("/api/vote/verify/", method(http.MethodGet, h.Ballots.VerifyVote))

	// Elections (public reads)
	mux.Handle("/api/elections", method(http.MethodGet, h.Election.ListElections))
	mux.Handle("/api/elections/active", method(http.MethodGet, h.Election.ListActiveElections))
	mux.Handle("/api/elections/", method(http.MethodGet, h.Election.ListCandidates))

	// Turnout and totals (public reads)
	mux.Handle("/api/constituency/", method(http.MethodGet, h.Tally.Turnout))
	mux.Handle("/api/election/", method(http.MethodGet, h.Tally.TotalVotes))

	// Per-voter auth success rate
	mux.Handle("/api/voter/", method(http.MethodGet, h.Security.AuthSuccessRate))

	// Admin
	mux.Handle("/api/admin/login", authLimit(method(http.MethodPost, h.Election.AdminLogin)))
	mux.Handle("/api/admin/elections", adminAuth(method(http.MethodPost, h.Election.CreateElection)))
	mux.Handle("/api/admin/candidates", adminAuth(method(http.MethodPost, h.Election.CreateCandidate)))
	mux.Handle("/api/admin/results/calculate/", adminAuth(method(http.MethodPost, h.Tally.Calculate)))
	mux.Handle("/api/admin/results/calculate-all/", adminAuth(method(http.MethodPost, h.Tally.CalculateAll)))
	mux.Handle("/api/admin/results/", adminAuth(method(http.MethodGet, h.Tally.Results)))
	mux.Handle("/api/admin/analytics/voting-patterns", adminAuth(method(http.MethodGet, h.Tally.VotingPatterns)))
	mux.Handle("/api/admin/security/suspicious-activities", adminAuth(method(http.MethodGet, h.Security.SuspiciousActivities)))
	mux.Handle("/api/admin/audit-logs", adminAuth(method(http.MethodGet, h.Security.AuditLogs)))

	// Real-time results
	mux.HandleFunc("/ws/results", h.Results.SubscribeToResults)

	// Probes
	mux.HandleFunc("/health", h.Health.Health)
	mux.HandleFunc("/ready", h.Health.Ready)
}

// method rejects requests whose HTTP method does not match.
func method(want string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != want {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
			WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
			return
		}
		next(w, r)
	})
}
