package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/civiclabs/votegrity/internal/auth"
	"github.com/civiclabs/votegrity/internal/election"
)

const (
	testAdminUsername = "returning-officer"
	testAdminPassword = "hunter2hunter2"
)

func newElectionFixture(t *testing.T) (*ElectionHandlers, election.Repository) {
	t.Helper()
	repo := election.NewInMemoryRepository()
	jwt := auth.NewJWTService("test-signing-secret")
	hash, err := auth.HashPassword(testAdminPassword)
	if err != nil {
		t.Fatalf("failed to hash admin password: %v", err)
	}
	return NewElectionHandlers(repo, jwt, testAdminUsername, hash), repo
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestAdminLogin_Success(t *testing.T) {
	h, _ := newElectionFixture(t)

	w := postJSON(t, h.AdminLogin, "/api/admin/login", AdminLoginRequest{
		Username: testAdminUsername,
		Password: testAdminPassword,
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["token"] == "" {
		t.Error("expected admin token")
	}
}

func TestAdminLogin_Rejected(t *testing.T) {
	h, _ := newElectionFixture(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", testAdminUsername, "not the password"},
		{"wrong username", "intruder", testAdminPassword},
		{"both wrong", "intruder", "nope nope nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, h.AdminLogin, "/api/admin/login", AdminLoginRequest{
				Username: tt.username,
				Password: tt.password,
			})
			if w.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", w.Code)
			}
		})
	}
}

func TestAdminLogin_NotConfigured(t *testing.T) {
	repo := election.NewInMemoryRepository()
	h := NewElectionHandlers(repo, auth.NewJWTService("test-signing-secret"), "", "")

	w := postJSON(t, h.AdminLogin, "/api/admin/login", AdminLoginRequest{
		Username: testAdminUsername,
		Password: testAdminPassword,
	})

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403 when admin is not configured, got %d", w.Code)
	}
}

func TestCreateElection_Success(t *testing.T) {
	h, repo := newElectionFixture(t)

	start := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	w := postJSON(t, h.CreateElection, "/api/admin/elections", CreateElectionRequest{
		Title:     "General Election 2026",
		StartTime: start,
		EndTime:   start.Add(8 * time.Hour),
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var created election.Election
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated election ID")
	}

	stored, err := repo.GetByID(created.ID)
	if err != nil {
		t.Fatalf("election not stored: %v", err)
	}
	if stored.PublicKeyPEM == "" {
		t.Error("expected a generated public key")
	}
	if _, err := election.ParsePublicKey(stored.PublicKeyPEM); err != nil {
		t.Errorf("stored public key does not parse: %v", err)
	}
}

func TestCreateElection_NeverLeaksKeyMaterial(t *testing.T) {
	h, _ := newElectionFixture(t)

	start := time.Now().Add(time.Hour)
	w := postJSON(t, h.CreateElection, "/api/admin/elections", CreateElectionRequest{
		Title:     "Key Material Check",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "KEY") || strings.Contains(w.Body.String(), "key_pem") {
		t.Errorf("response leaks key material: %s", w.Body.String())
	}
}

func TestCreateElection_InvalidTimeRange(t *testing.T) {
	h, _ := newElectionFixture(t)

	start := time.Now().Add(time.Hour)
	w := postJSON(t, h.CreateElection, "/api/admin/elections", CreateElectionRequest{
		Title:     "Backwards Window",
		StartTime: start,
		EndTime:   start.Add(-time.Hour),
	})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if errResp.Error.Code != ErrCodeInvalidTimeRange {
		t.Errorf("expected error code %s, got %s", ErrCodeInvalidTimeRange, errResp.Error.Code)
	}
}

func TestCreateCandidate_Success(t *testing.T) {
	h, _ := newElectionFixture(t)

	start := time.Now().Add(time.Hour)
	created := postJSON(t, h.CreateElection, "/api/admin/elections", CreateElectionRequest{
		Title:     "Candidate Test",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	var e election.Election
	if err := json.NewDecoder(created.Body).Decode(&e); err != nil {
		t.Fatalf("failed to decode election: %v", err)
	}

	w := postJSON(t, h.CreateCandidate, "/api/admin/candidates", CreateCandidateRequest{
		Name:           "Dana Smith",
		Party:          "Independent",
		ConstituencyID: "C-001",
		ElectionID:     e.ID,
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	var c election.Candidate
	if err := json.NewDecoder(w.Body).Decode(&c); err != nil {
		t.Fatalf("failed to decode candidate: %v", err)
	}
	if c.ID == "" {
		t.Error("expected generated candidate ID")
	}
}

func TestCreateCandidate_UnknownElection(t *testing.T) {
	h, _ := newElectionFixture(t)

	w := postJSON(t, h.CreateCandidate, "/api/admin/candidates", CreateCandidateRequest{
		Name:           "Dana Smith",
		ConstituencyID: "C-001",
		ElectionID:     "no-such-election",
	})

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestCreateCandidate_AfterElectionOpened(t *testing.T) {
	_, repo := newElectionFixture(t)
	jwt := auth.NewJWTService("test-signing-secret")
	h := NewElectionHandlers(repo, jwt, testAdminUsername, "unused")

	pub, priv, err := election.GenerateKeypair()
	if err != nil {
		t.Fatalf("failed to generate keypair: %v", err)
	}
	open := &election.Election{
		ID:           "open-election",
		Title:        "Already Open",
		StartTime:    time.Now().Add(-time.Hour),
		EndTime:      time.Now().Add(time.Hour),
		PublicKeyPEM: pub,
	}
	if err := repo.Insert(open, priv); err != nil {
		t.Fatalf("failed to insert election: %v", err)
	}

	w := postJSON(t, h.CreateCandidate, "/api/admin/candidates", CreateCandidateRequest{
		Name:           "Late Entry",
		ConstituencyID: "C-001",
		ElectionID:     "open-election",
	})

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}
	var errResp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&errResp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if errResp.Error.Code != ErrCodeElectionOpened {
		t.Errorf("expected error code %s, got %s", ErrCodeElectionOpened, errResp.Error.Code)
	}
}

func TestListElections(t *testing.T) {
	h, _ := newElectionFixture(t)

	for _, title := range []string{"First", "Second"} {
		start := time.Now().Add(time.Hour)
		w := postJSON(t, h.CreateElection, "/api/admin/elections", CreateElectionRequest{
			Title:     title,
			StartTime: start,
			EndTime:   start.Add(time.Hour),
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("failed to create election %s: %d", title, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/elections", nil)
	w := httptest.NewRecorder()
	h.ListElections(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var elections []election.Election
	if err := json.NewDecoder(w.Body).Decode(&elections); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(elections) != 2 {
		t.Errorf("expected 2 elections, got %d", len(elections))
	}
}

func TestListCandidates(t *testing.T) {
	h, _ := newElectionFixture(t)

	start := time.Now().Add(time.Hour)
	created := postJSON(t, h.CreateElection, "/api/admin/elections", CreateElectionRequest{
		Title:     "Listing Test",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	var e election.Election
	if err := json.NewDecoder(created.Body).Decode(&e); err != nil {
		t.Fatalf("failed to decode election: %v", err)
	}

	for _, c := range []CreateCandidateRequest{
		{Name: "North Candidate", ConstituencyID: "C-001", ElectionID: e.ID},
		{Name: "South Candidate", ConstituencyID: "C-002", ElectionID: e.ID},
	} {
		if w := postJSON(t, h.CreateCandidate, "/api/admin/candidates", c); w.Code != http.StatusCreated {
			t.Fatalf("failed to create candidate: %d", w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/elections/"+e.ID+"/candidates?constituency_id=C-001", nil)
	w := httptest.NewRecorder()
	h.ListCandidates(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var candidates []election.Candidate
	if err := json.NewDecoder(w.Body).Decode(&candidates); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate after filtering, got %d", len(candidates))
	}
	if candidates[0].Name != "North Candidate" {
		t.Errorf("expected North Candidate, got %s", candidates[0].Name)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/elections/no-such-election/candidates", nil)
	w = httptest.NewRecorder()
	h.ListCandidates(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown election, got %d", w.Code)
	}
}
