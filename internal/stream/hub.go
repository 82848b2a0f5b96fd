// Package stream broadcasts result recalculations to WebSocket
// subscribers in real time.
package stream

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/civiclabs/votegrity/internal/tally"
)

// ResultsEvent is the wire message pushed after a scope recalculation.
type ResultsEvent struct {
	Type           string            `json:"type"`
	ElectionID     string            `json:"election_id"`
	ConstituencyID string            `json:"constituency_id"`
	Rows           []tally.ResultRow `json:"rows"`
	At             time.Time         `json:"at"`
}

// Hub manages WebSocket connections and fans result events out to
// subscribers of an election.
type Hub struct {
	mu          sync.RWMutex
	connections map[string]map[*websocket.Conn]bool // electionID -> connections
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]map[*websocket.Conn]bool),
	}
}

// Subscribe registers a WebSocket connection for an election's results.
func (h *Hub) Subscribe(electionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.connections[electionID] == nil {
		h.connections[electionID] = make(map[*websocket.Conn]bool)
	}
	h.connections[electionID][conn] = true
}

// Unsubscribe removes a WebSocket connection from all elections.
func (h *Hub) Unsubscribe(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for electionID, conns := range h.connections {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.connections, electionID)
		}
	}
}

// PublishResults satisfies tally.Publisher: the tally engine calls this
// after replacing a scope's rows.
func (h *Hub) PublishResults(electionID, constituencyID string, rows []tally.ResultRow) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns, exists := h.connections[electionID]
	if !exists || len(conns) == 0 {
		return
	}

	event := ResultsEvent{
		Type:           "results_updated",
		ElectionID:     electionID,
		ConstituencyID: constituencyID,
		Rows:           rows,
		At:             time.Now().UTC(),
	}
	// Serialize once for all subscribers
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal results event", "error", err)
		return
	}

	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Warn("failed to send results to websocket client",
				"error", err,
				"election_id", electionID,
			)
			// Connection will be cleaned up when client disconnects
		}
	}
}

// ConnectionCount returns the number of active subscribers for an election.
func (h *Hub) ConnectionCount(electionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if conns, exists := h.connections[electionID]; exists {
		return len(conns)
	}
	return 0
}
