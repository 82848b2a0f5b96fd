package security

import (
	"errors"
	"time"
)

var ErrNoEvents = errors.New("no auth events for voter")

// Outcome of an authentication attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Channel identifies the authentication mechanism that produced an event.
type Channel string

const (
	ChannelPassword Channel = "password"
	ChannelFace     Channel = "face"
)

// AuthEvent is an immutable record of a single authentication attempt.
type AuthEvent struct {
	ID       string    `json:"id"`
	VoterID  string    `json:"voter_id"`
	At       time.Time `json:"at"`
	Outcome  Outcome   `json:"outcome"`
	SourceIP string    `json:"source_ip"`
	Channel  Channel   `json:"channel"`
}

// SuspiciousActivity summarizes a voter whose recent failures came from
// multiple source addresses.
type SuspiciousActivity struct {
	VoterID        string    `json:"voter_id"`
	FailedAttempts int       `json:"failed_attempts"`
	DistinctIPs    int       `json:"distinct_ips"`
	IPList         []string  `json:"ip_list"`
	FirstSeen      time.Time `json:"first_seen"`
	LastSeen       time.Time `json:"last_seen"`
}

// AuditEntry aggregates a voter's authentication history.
type AuditEntry struct {
	VoterID          string    `json:"voter_id"`
	PasswordSuccess  int       `json:"password_success"`
	PasswordFailures int       `json:"password_failures"`
	FaceSuccess      int       `json:"face_success"`
	FaceFailures     int       `json:"face_failures"`
	FirstActivity    time.Time `json:"first_activity"`
	LastActivity     time.Time `json:"last_activity"`
}

// EventStore is append-only. Events are never updated or deleted.
type EventStore interface {
	Append(e *AuthEvent) error
	Since(cutoff time.Time) ([]*AuthEvent, error)
	ByVoter(voterID string) ([]*AuthEvent, error)
	All() ([]*AuthEvent, error)
}
