package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/civiclabs/votegrity/internal/auth"
)

func okHandler(captured *struct{ voterID, role string }) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.voterID = GetVoterID(r.Context())
		captured.role = GetRole(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_ValidToken(t *testing.T) {
	svc := auth.NewJWTService("test-secret")
	token, err := svc.GenerateVoterToken("voter-1", "VID-1")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	var captured struct{ voterID, role string }
	handler := Authenticate(svc)(okHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if captured.voterID != "voter-1" {
		t.Errorf("expected voter-1 in context, got %q", captured.voterID)
	}
	if captured.role != auth.RoleVoter {
		t.Errorf("expected voter role in context, got %q", captured.role)
	}
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	svc := auth.NewJWTService("test-secret")
	var captured struct{ voterID, role string }
	handler := Authenticate(svc)(okHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	svc := auth.NewJWTService("test-secret")
	var captured struct{ voterID, role string }
	handler := Authenticate(svc)(okHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestRequireRole(t *testing.T) {
	svc := auth.NewJWTService("test-secret")
	voterToken, _ := svc.GenerateVoterToken("voter-1", "VID-1")
	adminToken, _ := svc.GenerateAdminToken("admin-1")

	var captured struct{ voterID, role string }
	handler := Authenticate(svc)(RequireRole(auth.RoleAdmin)(okHandler(&captured)))

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"admin allowed", adminToken, http.StatusOK},
		{"voter forbidden", voterToken, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}
