package validate

import (
	"errors"
	"strings"
	"testing"
)

func TestString_Lengths(t *testing.T) {
	constraints := StringConstraints{MinLength: 3, MaxLength: 10}

	if _, err := String("ab", constraints); !errors.Is(err, ErrStringTooShort) {
		t.Errorf("expected ErrStringTooShort, got %v", err)
	}
	if _, err := String(strings.Repeat("x", 11), constraints); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("expected ErrStringTooLong, got %v", err)
	}
	if _, err := String("hello", constraints); err != nil {
		t.Errorf("expected valid string, got %v", err)
	}
	// Multibyte runes count as one character.
	if _, err := String("héllo", constraints); err != nil {
		t.Errorf("expected multibyte string to pass, got %v", err)
	}
}

func TestString_Empty(t *testing.T) {
	if _, err := String("", StringConstraints{}); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if _, err := String("", StringConstraints{AllowEmpty: true}); err != nil {
		t.Errorf("expected empty string allowed, got %v", err)
	}
	// Whitespace-only trims to empty.
	if _, err := String("   ", StringConstraints{TrimSpace: true}); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty after trim, got %v", err)
	}
}

func TestString_SQLKeywords(t *testing.T) {
	constraints := StringConstraints{CheckSQLKeywords: true}

	if _, err := String("DROP TABLE voters", constraints); !errors.Is(err, ErrSQLKeyword) {
		t.Errorf("expected ErrSQLKeyword, got %v", err)
	}
	if _, err := String("a perfectly normal name", constraints); err != nil {
		t.Errorf("expected clean string to pass, got %v", err)
	}
}

func TestSanitizeHTML(t *testing.T) {
	got := SanitizeHTML(`<script>alert("xss")</script>`)
	if strings.Contains(got, "<script>") {
		t.Errorf("HTML not escaped: %s", got)
	}
}

func TestVoterIDNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"valid", "AB1234567", "AB1234567", false},
		{"lowercase normalized", "ab1234567", "AB1234567", false},
		{"with dash", "AB-123-456", "AB-123-456", false},
		{"too short", "AB1", "", true},
		{"too long", strings.Repeat("A", 21), "", true},
		{"invalid characters", "AB 123!567", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VoterIDNumber(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPersonName(t *testing.T) {
	valid := []string{"Alice", "Mary-Jane O'Brien", "J. R. Ewing", "Zoë"}
	for _, name := range valid {
		if _, err := PersonName(name); err != nil {
			t.Errorf("expected %q to be valid, got %v", name, err)
		}
	}

	invalid := []string{"", "Robert; DROP TABLE voters", "a<b>", strings.Repeat("x", 101)}
	for _, name := range invalid {
		if _, err := PersonName(name); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}

func TestElectionTitle(t *testing.T) {
	if _, err := ElectionTitle("General Election 2026"); err != nil {
		t.Errorf("expected valid title, got %v", err)
	}
	if _, err := ElectionTitle(""); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}
	if _, err := ElectionTitle(strings.Repeat("x", 201)); !errors.Is(err, ErrStringTooLong) {
		t.Errorf("expected ErrStringTooLong, got %v", err)
	}
}

func TestPartyName_Optional(t *testing.T) {
	if _, err := PartyName(""); err != nil {
		t.Errorf("independents carry no party, got %v", err)
	}
	if _, err := PartyName("Green Alliance"); err != nil {
		t.Errorf("expected valid party, got %v", err)
	}
}

func TestConstituencyID(t *testing.T) {
	if _, err := ConstituencyID("north-district_7"); err != nil {
		t.Errorf("expected valid constituency, got %v", err)
	}
	if _, err := ConstituencyID("north district"); err == nil {
		t.Error("expected spaces to be rejected")
	}
	if _, err := ConstituencyID(""); err == nil {
		t.Error("expected empty to be rejected")
	}
}
