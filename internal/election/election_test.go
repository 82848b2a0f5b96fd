package election

import (
	"crypto/rsa"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestGenerateKeypair_RoundTrip(t *testing.T) {
	pubPEM, privPEM, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("failed to generate keypair: %v", err)
	}

	if !strings.Contains(pubPEM, "PUBLIC KEY") {
		t.Error("public PEM missing PUBLIC KEY block")
	}
	if !strings.Contains(privPEM, "PRIVATE KEY") {
		t.Error("private PEM missing PRIVATE KEY block")
	}

	pub, err := ParsePublicKey(pubPEM)
	if err != nil {
		t.Fatalf("failed to parse public key: %v", err)
	}
	if pub.Size()*8 != keySize {
		t.Errorf("expected %d-bit key, got %d", keySize, pub.Size()*8)
	}

	priv, err := parsePrivateKey(privPEM)
	if err != nil {
		t.Fatalf("failed to parse private key: %v", err)
	}
	if priv.PublicKey.N.Cmp(pub.N) != 0 {
		t.Error("private key does not match public key")
	}
}

func TestParsePublicKey_Malformed(t *testing.T) {
	if _, err := ParsePublicKey("not a pem"); !errors.Is(err, ErrMalformedKey) {
		t.Errorf("expected ErrMalformedKey, got %v", err)
	}
}

func TestElection_IsOpen(t *testing.T) {
	start := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 1, 20, 0, 0, 0, time.UTC)
	e := &Election{StartTime: start, EndTime: end}

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"before start", start.Add(-time.Second), false},
		{"at start", start, true},
		{"mid window", start.Add(6 * time.Hour), true},
		{"at end (half-open)", end, false},
		{"after end", end.Add(time.Second), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.IsOpen(tt.at); got != tt.want {
				t.Errorf("IsOpen(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func newTestElection(t *testing.T, repo *InMemoryRepository, id string, start, end time.Time) *Election {
	t.Helper()
	pubPEM, privPEM, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("failed to generate keypair: %v", err)
	}
	e := &Election{ID: id, Title: "General Election", StartTime: start, EndTime: end, PublicKeyPEM: pubPEM}
	if err := repo.Insert(e, privPEM); err != nil {
		t.Fatalf("failed to insert election: %v", err)
	}
	return e
}

func TestRepository_InsertAndGet(t *testing.T) {
	repo := NewInMemoryRepository()
	now := time.Now()
	newTestElection(t, repo, "e1", now.Add(time.Hour), now.Add(2*time.Hour))

	e, err := repo.GetByID("e1")
	if err != nil {
		t.Fatalf("failed to get election: %v", err)
	}
	if e.Title != "General Election" {
		t.Errorf("unexpected title %q", e.Title)
	}

	if _, err := repo.GetByID("missing"); !errors.Is(err, ErrElectionNotFound) {
		t.Errorf("expected ErrElectionNotFound, got %v", err)
	}
}

func TestRepository_InsertInvalidWindow(t *testing.T) {
	repo := NewInMemoryRepository()
	now := time.Now()
	e := &Election{ID: "e1", StartTime: now.Add(2 * time.Hour), EndTime: now.Add(time.Hour)}
	if err := repo.Insert(e, "pem"); !errors.Is(err, ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestRepository_CandidateImmutableAfterOpen(t *testing.T) {
	repo := NewInMemoryRepository()
	now := time.Now()

	// Election already open: candidates are frozen.
	newTestElection(t, repo, "open", now.Add(-time.Hour), now.Add(time.Hour))
	err := repo.InsertCandidate(&Candidate{ID: "c1", ElectionID: "open", ConstituencyID: "north"})
	if !errors.Is(err, ErrElectionOpened) {
		t.Errorf("expected ErrElectionOpened, got %v", err)
	}

	// Future election: candidates may still be added.
	newTestElection(t, repo, "future", now.Add(time.Hour), now.Add(2*time.Hour))
	if err := repo.InsertCandidate(&Candidate{ID: "c2", ElectionID: "future", ConstituencyID: "north"}); err != nil {
		t.Errorf("expected candidate insert to succeed, got %v", err)
	}
}

func TestRepository_ListCandidatesAndConstituencies(t *testing.T) {
	repo := NewInMemoryRepository()
	now := time.Now()
	newTestElection(t, repo, "e1", now.Add(time.Hour), now.Add(2*time.Hour))

	candidates := []*Candidate{
		{ID: "c3", Name: "Carol", Party: "Green", ConstituencyID: "south", ElectionID: "e1"},
		{ID: "c1", Name: "Alice", Party: "Blue", ConstituencyID: "north", ElectionID: "e1"},
		{ID: "c2", Name: "Bob", Party: "Red", ConstituencyID: "north", ElectionID: "e1"},
	}
	for _, c := range candidates {
		if err := repo.InsertCandidate(c); err != nil {
			t.Fatalf("failed to insert candidate: %v", err)
		}
	}

	north, err := repo.ListCandidates("e1", "north")
	if err != nil {
		t.Fatalf("failed to list candidates: %v", err)
	}
	if len(north) != 2 {
		t.Fatalf("expected 2 north candidates, got %d", len(north))
	}
	if north[0].ID != "c1" || north[1].ID != "c2" {
		t.Errorf("expected deterministic candidate order, got %s, %s", north[0].ID, north[1].ID)
	}

	all, err := repo.ListCandidates("e1", "")
	if err != nil {
		t.Fatalf("failed to list all candidates: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 candidates, got %d", len(all))
	}

	constituencies, err := repo.Constituencies("e1")
	if err != nil {
		t.Fatalf("failed to list constituencies: %v", err)
	}
	if len(constituencies) != 2 || constituencies[0] != "north" || constituencies[1] != "south" {
		t.Errorf("expected [north south], got %v", constituencies)
	}
}

func TestKeyring_ScopedAccess(t *testing.T) {
	repo := NewInMemoryRepository()
	now := time.Now()
	newTestElection(t, repo, "e1", now.Add(time.Hour), now.Add(2*time.Hour))

	keyring := NewKeyring(repo)

	var sawKey bool
	err := keyring.WithPrivateKey("e1", func(priv *rsa.PrivateKey) error {
		if priv == nil {
			t.Fatal("expected a private key")
		}
		sawKey = true
		return nil
	})
	if err != nil {
		t.Fatalf("WithPrivateKey failed: %v", err)
	}
	if !sawKey {
		t.Error("callback was not invoked")
	}

	// Errors from the callback propagate.
	wantErr := errors.New("boom")
	if err := keyring.WithPrivateKey("e1", func(*rsa.PrivateKey) error { return wantErr }); !errors.Is(err, wantErr) {
		t.Errorf("expected callback error, got %v", err)
	}

	// Unknown election.
	if err := keyring.WithPrivateKey("missing", func(*rsa.PrivateKey) error { return nil }); !errors.Is(err, ErrElectionNotFound) {
		t.Errorf("expected ErrElectionNotFound, got %v", err)
	}
}
