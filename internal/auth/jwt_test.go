package auth

import (
	"errors"
	"testing"
)

func TestGenerateVoterToken_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.GenerateVoterToken("voter-123", "VID-99881")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}

	if claims.Subject != "voter-123" {
		t.Errorf("expected subject voter-123, got %s", claims.Subject)
	}
	if claims.Role != RoleVoter {
		t.Errorf("expected role %q, got %q", RoleVoter, claims.Role)
	}
	if claims.VoterIDNumber != "VID-99881" {
		t.Errorf("expected voter id number VID-99881, got %s", claims.VoterIDNumber)
	}
}

func TestGenerateAdminToken_RoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.GenerateAdminToken("admin-1")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("failed to validate token: %v", err)
	}
	if claims.Role != RoleAdmin {
		t.Errorf("expected role %q, got %q", RoleAdmin, claims.Role)
	}
	if claims.VoterIDNumber != "" {
		t.Errorf("admin token should not carry a voter id number, got %s", claims.VoterIDNumber)
	}
}

func TestGenerateToken_EmptySubject(t *testing.T) {
	svc := NewJWTService("test-secret")

	if _, err := svc.GenerateVoterToken("", "VID-1"); !errors.Is(err, ErrEmptySubject) {
		t.Errorf("expected ErrEmptySubject, got %v", err)
	}
	if _, err := svc.GenerateAdminToken(""); !errors.Is(err, ErrEmptySubject) {
		t.Errorf("expected ErrEmptySubject, got %v", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := NewJWTService("correct-secret")
	other := NewJWTService("wrong-secret")

	token, err := svc.GenerateVoterToken("voter-123", "VID-1")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewJWTService("test-secret")

	if _, err := svc.ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateToken_Rotation(t *testing.T) {
	oldSvc := NewJWTService("old-secret")
	token, err := oldSvc.GenerateVoterToken("voter-123", "VID-1")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	// A service rotated to a new secret still accepts tokens signed with the old one.
	rotated := NewJWTServiceWithRotation("new-secret", "old-secret")
	claims, err := rotated.ValidateToken(token)
	if err != nil {
		t.Fatalf("rotated service should accept old token: %v", err)
	}
	if claims.Subject != "voter-123" {
		t.Errorf("expected subject voter-123, got %s", claims.Subject)
	}

	// Without the previous secret the token is rejected.
	unrotated := NewJWTService("new-secret")
	if _, err := unrotated.ValidateToken(token); err == nil {
		t.Error("expected validation failure without previous secret")
	}
}

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	if !CheckPassword("correct horse battery", hash) {
		t.Error("expected matching password to verify")
	}
	if CheckPassword("wrong password", hash) {
		t.Error("expected non-matching password to fail")
	}
}

func TestHashPassword_TooShort(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("expected ErrPasswordTooShort, got %v", err)
	}
}
