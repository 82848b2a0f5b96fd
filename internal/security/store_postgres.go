package security

import (
	"database/sql"
	"fmt"
	"time"
)

// PostgresEventStore implements EventStore using PostgreSQL. The table is
// append-only; nothing here updates or deletes.
type PostgresEventStore struct {
	db *sql.DB
}

// NewPostgresEventStore creates a new PostgresEventStore.
func NewPostgresEventStore(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

// Append stores a new auth event.
func (s *PostgresEventStore) Append(e *AuthEvent) error {
	query := `
		INSERT INTO auth_events (id, voter_id, at, outcome, source_ip, channel)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.Exec(query, e.ID, e.VoterID, e.At, string(e.Outcome), e.SourceIP, string(e.Channel))
	if err != nil {
		return fmt.Errorf("failed to append auth event: %w", err)
	}
	return nil
}

// Since returns all events at or after the cutoff.
func (s *PostgresEventStore) Since(cutoff time.Time) ([]*AuthEvent, error) {
	query := `
		SELECT id, voter_id, at, outcome, source_ip, channel
		FROM auth_events
		WHERE at >= $1
		ORDER BY at
	`
	return s.queryEvents(query, cutoff)
}

// ByVoter returns all events for one voter, oldest first.
func (s *PostgresEventStore) ByVoter(voterID string) ([]*AuthEvent, error) {
	query := `
		SELECT id, voter_id, at, outcome, source_ip, channel
		FROM auth_events
		WHERE voter_id = $1
		ORDER BY at
	`
	return s.queryEvents(query, voterID)
}

// All returns every recorded event, oldest first.
func (s *PostgresEventStore) All() ([]*AuthEvent, error) {
	query := `
		SELECT id, voter_id, at, outcome, source_ip, channel
		FROM auth_events
		ORDER BY at
	`
	return s.queryEvents(query)
}

func (s *PostgresEventStore) queryEvents(query string, args ...any) ([]*AuthEvent, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list auth events: %w", err)
	}
	defer rows.Close()

	var events []*AuthEvent
	for rows.Next() {
		e := &AuthEvent{}
		var outcome, channel string
		if err := rows.Scan(&e.ID, &e.VoterID, &e.At, &outcome, &e.SourceIP, &channel); err != nil {
			return nil, fmt.Errorf("failed to scan auth event: %w", err)
		}
		e.Outcome = Outcome(outcome)
		e.Channel = Channel(channel)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate auth events: %w", err)
	}
	return events, nil
}
