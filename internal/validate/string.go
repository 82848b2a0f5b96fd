// Package validate provides centralized input validation and sanitization
// utilities for the voting API. It includes protection against SQL
// injection, XSS, and other common web vulnerabilities.
package validate

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"
)

// String validation errors
var (
	ErrStringTooShort    = errors.New("string is too short")
	ErrStringTooLong     = errors.New("string is too long")
	ErrInvalidCharacters = errors.New("string contains invalid characters")
	ErrSQLKeyword        = errors.New("string contains SQL keywords")
	ErrEmpty             = errors.New("string is empty")
)

// Common SQL keywords to detect potential SQL injection attempts
// This is a basic defense layer; parameterized queries are the primary defense
var sqlKeywords = []string{
	"SELECT", "INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER",
	"TRUNCATE", "EXEC", "EXECUTE", "UNION", "JOIN", "WHERE", "FROM",
	"--", "/*", "*/", ";--", "xp_", "sp_",
}

// StringConstraints defines validation constraints for a string.
type StringConstraints struct {
	MinLength        int            // Minimum length (0 = no minimum)
	MaxLength        int            // Maximum length (0 = no maximum)
	AllowedPattern   *regexp.Regexp // Optional regex pattern for allowed characters
	CheckSQLKeywords bool           // Whether to check for SQL keywords
	AllowEmpty       bool           // Whether empty strings are allowed
	TrimSpace        bool           // Whether to trim whitespace before validation
}

// String validates a string against the given constraints.
// Returns the validated (and optionally trimmed) string and an error if validation fails.
func String(s string, constraints StringConstraints) (string, error) {
	if constraints.TrimSpace {
		s = strings.TrimSpace(s)
	}

	if s == "" {
		if !constraints.AllowEmpty {
			return "", ErrEmpty
		}
		return s, nil
	}

	// Character count, not byte count
	length := utf8.RuneCountInString(s)

	if constraints.MinLength > 0 && length < constraints.MinLength {
		return "", fmt.Errorf("%w: got %d chars, need at least %d", ErrStringTooShort, length, constraints.MinLength)
	}
	if constraints.MaxLength > 0 && length > constraints.MaxLength {
		return "", fmt.Errorf("%w: got %d chars, maximum is %d", ErrStringTooLong, length, constraints.MaxLength)
	}

	if constraints.AllowedPattern != nil && !constraints.AllowedPattern.MatchString(s) {
		return "", fmt.Errorf("%w: does not match required pattern", ErrInvalidCharacters)
	}

	if constraints.CheckSQLKeywords {
		if err := checkSQLKeywords(s); err != nil {
			return "", err
		}
	}

	return s, nil
}

// checkSQLKeywords checks if the string contains common SQL keywords.
// This is a basic heuristic check; parameterized queries are the real defense.
func checkSQLKeywords(s string) error {
	upper := strings.ToUpper(s)
	for _, keyword := range sqlKeywords {
		if strings.Contains(upper, keyword) {
			return fmt.Errorf("%w: contains %q", ErrSQLKeyword, keyword)
		}
	}
	return nil
}

// SanitizeHTML escapes HTML special characters to prevent XSS attacks.
func SanitizeHTML(s string) string {
	return html.EscapeString(s)
}

// SanitizeString performs both validation and HTML sanitization.
func SanitizeString(s string, constraints StringConstraints) (string, error) {
	validated, err := String(s, constraints)
	if err != nil {
		return "", err
	}
	return SanitizeHTML(validated), nil
}

var voterIDNumberPattern = regexp.MustCompile(`^[A-Z0-9\-]+$`)

// VoterIDNumber validates a government-issued voter ID number:
// - 5-20 characters
// - Uppercase letters, digits, and dashes only
func VoterIDNumber(idNumber string) (string, error) {
	return String(strings.ToUpper(idNumber), StringConstraints{
		MinLength:      5,
		MaxLength:      20,
		AllowedPattern: voterIDNumberPattern,
		AllowEmpty:     false,
		TrimSpace:      true,
	})
}

// PersonName validates a voter or candidate name:
// - 1-100 characters
// - Letters, spaces, apostrophes, dashes, and periods only
// - No SQL keywords
func PersonName(name string) (string, error) {
	pattern := regexp.MustCompile(`^[\p{L} '\-\.]+$`)
	return SanitizeString(name, StringConstraints{
		MinLength:        1,
		MaxLength:        100,
		AllowedPattern:   pattern,
		CheckSQLKeywords: true,
		AllowEmpty:       false,
		TrimSpace:        true,
	})
}

// ElectionTitle validates an election title:
// - 1-200 characters
// - No SQL keywords
func ElectionTitle(title string) (string, error) {
	return SanitizeString(title, StringConstraints{
		MinLength:        1,
		MaxLength:        200,
		CheckSQLKeywords: true,
		AllowEmpty:       false,
		TrimSpace:        true,
	})
}

// PartyName validates a party name:
// - Optional (independents carry no party)
// - Max 100 characters
func PartyName(party string) (string, error) {
	return SanitizeString(party, StringConstraints{
		MinLength:        0,
		MaxLength:        100,
		CheckSQLKeywords: true,
		AllowEmpty:       true,
		TrimSpace:        true,
	})
}

// ConstituencyID validates a constituency identifier:
// - 1-50 characters
// - Letters, numbers, dash, underscore only
func ConstituencyID(id string) (string, error) {
	pattern := regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
	return String(id, StringConstraints{
		MinLength:      1,
		MaxLength:      50,
		AllowedPattern: pattern,
		AllowEmpty:     false,
		TrimSpace:      true,
	})
}
