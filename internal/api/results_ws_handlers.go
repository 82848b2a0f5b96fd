// Package api provides HTTP handlers for real-time results WebSocket subscriptions.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/civiclabs/votegrity/internal/election"
	"github.com/civiclabs/votegrity/internal/middleware"
	"github.com/civiclabs/votegrity/internal/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper CORS checking based on configuration
		// For now, allow all origins (should be restricted in production)
		return true
	},
}

// ResultsWebSocketHandlers holds dependencies for WebSocket handlers.
type ResultsWebSocketHandlers struct {
	elections election.Repository
	hub       *stream.Hub
}

// NewResultsWebSocketHandlers creates a new ResultsWebSocketHandlers instance.
func NewResultsWebSocketHandlers(elections election.Repository, hub *stream.Hub) *ResultsWebSocketHandlers {
	return &ResultsWebSocketHandlers{
		elections: elections,
		hub:       hub,
	}
}

// SubscribeToResults handles WebSocket connections for real-time tally updates.
// GET /ws/results?election_id={id}
func (h *ResultsWebSocketHandlers) SubscribeToResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	electionID := r.URL.Query().Get("election_id")
	if electionID == "" {
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "election_id query parameter is required")
		return
	}

	// Verify election exists
	if _, err := h.elections.GetByID(electionID); err != nil {
		if errors.Is(err, election.ErrElectionNotFound) {
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Election not found")
		} else {
			slog.ErrorContext(ctx, "failed to get election", "error", err)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Internal server error")
		}
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(ctx, "failed to upgrade websocket connection",
			"error", err,
			"election_id", electionID,
		)
		return
	}

	h.hub.Subscribe(electionID, conn)

	requestID := middleware.GetRequestID(ctx)
	slog.InfoContext(ctx, "websocket client subscribed to results",
		"election_id", electionID,
		"request_id", requestID,
	)

	defer func() {
		h.hub.Unsubscribe(conn)
		conn.Close()
		slog.InfoContext(ctx, "websocket client unsubscribed",
			"election_id", electionID,
			"request_id", requestID,
		)
	}()

	// Keep connection alive - read messages to detect disconnection
	// We don't expect clients to send messages, but we need to read to detect when they disconnect
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.WarnContext(ctx, "websocket connection closed unexpectedly",
					"error", err,
					"election_id", electionID,
				)
			}
			break
		}
	}
}
