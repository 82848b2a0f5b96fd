package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/civiclabs/votegrity/internal/tally"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// dialHub spins up a test server that subscribes each incoming
// connection to the given election, and dials it.
func dialHub(t *testing.T, hub *Hub, electionID string) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		hub.Subscribe(electionID, conn)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_PublishResults(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "e1")

	// Wait for the server side to register the subscription.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount("e1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rows := []tally.ResultRow{
		{ElectionID: "e1", ConstituencyID: "north", CandidateID: "alice", Votes: 5, Rank: 1},
	}
	hub.PublishResults("e1", "north", rows)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var event ResultsEvent
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if event.Type != "results_updated" {
		t.Errorf("expected results_updated, got %s", event.Type)
	}
	if event.ElectionID != "e1" || event.ConstituencyID != "north" {
		t.Errorf("unexpected scope: %s/%s", event.ElectionID, event.ConstituencyID)
	}
	if len(event.Rows) != 1 || event.Rows[0].CandidateID != "alice" {
		t.Errorf("unexpected rows: %+v", event.Rows)
	}
}

func TestHub_SubscriptionScopedToElection(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "e1")

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount("e1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// An event for another election must not reach this subscriber.
	hub.PublishResults("e2", "north", nil)
	hub.PublishResults("e1", "south", []tally.ResultRow{{CandidateID: "bob"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var event ResultsEvent
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if event.ElectionID != "e1" {
		t.Errorf("received event for wrong election: %s", event.ElectionID)
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := NewHub()
	conn := dialHub(t, hub, "e1")

	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectionCount("e1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// The server-side conn is what's registered; unsubscribing the
	// client-side dialer conn is a no-op, so drop them all instead.
	hub.mu.Lock()
	var registered []*websocket.Conn
	for c := range hub.connections["e1"] {
		registered = append(registered, c)
	}
	hub.mu.Unlock()

	for _, c := range registered {
		hub.Unsubscribe(c)
	}
	if hub.ConnectionCount("e1") != 0 {
		t.Errorf("expected 0 connections after unsubscribe, got %d", hub.ConnectionCount("e1"))
	}
	_ = conn
}
