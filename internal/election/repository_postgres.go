package election

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresRepository implements Repository using PostgreSQL.
//
// Private key PEMs live in the same row as the election. Only the
// PrivateKeyPEM method ever selects that column.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a new election along with its private key.
func (r *PostgresRepository) Insert(e *Election, privateKeyPEM string) error {
	if !e.StartTime.Before(e.EndTime) {
		return ErrInvalidWindow
	}

	query := `
		INSERT INTO elections (id, title, start_time, end_time, public_key_pem, private_key_pem, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(
		query,
		e.ID,
		e.Title,
		e.StartTime,
		e.EndTime,
		e.PublicKeyPEM,
		privateKeyPEM,
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert election: %w", err)
	}
	return nil
}

// GetByID retrieves an election by ID.
func (r *PostgresRepository) GetByID(id string) (*Election, error) {
	query := `
		SELECT id, title, start_time, end_time, public_key_pem, created_at
		FROM elections
		WHERE id = $1
	`

	e := &Election{}
	err := r.db.QueryRow(query, id).Scan(&e.ID, &e.Title, &e.StartTime, &e.EndTime, &e.PublicKeyPEM, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrElectionNotFound
		}
		return nil, fmt.Errorf("failed to get election: %w", err)
	}
	return e, nil
}

// List returns all elections, newest start time first.
func (r *PostgresRepository) List() ([]*Election, error) {
	query := `
		SELECT id, title, start_time, end_time, public_key_pem, created_at
		FROM elections
		ORDER BY start_time DESC
	`
	return r.queryElections(query)
}

// ListActive returns elections whose window contains the given instant.
func (r *PostgresRepository) ListActive(at time.Time) ([]*Election, error) {
	query := `
		SELECT id, title, start_time, end_time, public_key_pem, created_at
		FROM elections
		WHERE start_time <= $1 AND end_time > $1
		ORDER BY start_time DESC
	`
	return r.queryElections(query, at)
}

func (r *PostgresRepository) queryElections(query string, args ...any) ([]*Election, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list elections: %w", err)
	}
	defer rows.Close()

	var elections []*Election
	for rows.Next() {
		e := &Election{}
		if err := rows.Scan(&e.ID, &e.Title, &e.StartTime, &e.EndTime, &e.PublicKeyPEM, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan election: %w", err)
		}
		elections = append(elections, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate elections: %w", err)
	}
	return elections, nil
}

// PrivateKeyPEM returns the private key PEM for an election. Keyring use only.
func (r *PostgresRepository) PrivateKeyPEM(electionID string) (string, error) {
	var pemStr string
	err := r.db.QueryRow(`SELECT private_key_pem FROM elections WHERE id = $1`, electionID).Scan(&pemStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrElectionNotFound
		}
		return "", fmt.Errorf("failed to get private key: %w", err)
	}
	return pemStr, nil
}

// InsertCandidate registers a candidate for an election that has not opened yet.
// The insert and the window check run in one statement so a concurrent open
// cannot slip a late candidate in.
func (r *PostgresRepository) InsertCandidate(c *Candidate) error {
	query := `
		INSERT INTO candidates (id, name, party, constituency_id, election_id)
		SELECT $1, $2, $3, $4, $5
		WHERE EXISTS (
			SELECT 1 FROM elections WHERE id = $5 AND start_time > NOW()
		)
	`

	res, err := r.db.Exec(query, c.ID, c.Name, c.Party, c.ConstituencyID, c.ElectionID)
	if err != nil {
		return fmt.Errorf("failed to insert candidate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read insert result: %w", err)
	}
	if affected == 0 {
		// Nothing inserted: the election does not exist or has opened.
		var exists bool
		if err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM elections WHERE id = $1)`, c.ElectionID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check election: %w", err)
		}
		if !exists {
			return ErrElectionNotFound
		}
		return ErrElectionOpened
	}
	return nil
}

// GetCandidate retrieves a candidate by ID.
func (r *PostgresRepository) GetCandidate(id string) (*Candidate, error) {
	query := `
		SELECT id, name, party, constituency_id, election_id
		FROM candidates
		WHERE id = $1
	`

	c := &Candidate{}
	err := r.db.QueryRow(query, id).Scan(&c.ID, &c.Name, &c.Party, &c.ConstituencyID, &c.ElectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return c, nil
}

// ListCandidates returns candidates for an election, optionally filtered by
// constituency, ordered by candidate ID.
func (r *PostgresRepository) ListCandidates(electionID, constituencyID string) ([]*Candidate, error) {
	query := `
		SELECT id, name, party, constituency_id, election_id
		FROM candidates
		WHERE election_id = $1 AND ($2 = '' OR constituency_id = $2)
		ORDER BY id
	`

	rows, err := r.db.Query(query, electionID, constituencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*Candidate
	for rows.Next() {
		c := &Candidate{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Party, &c.ConstituencyID, &c.ElectionID); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate candidates: %w", err)
	}
	return candidates, nil
}

// Constituencies returns the distinct constituency IDs with candidates in the
// election, sorted.
func (r *PostgresRepository) Constituencies(electionID string) ([]string, error) {
	query := `
		SELECT DISTINCT constituency_id
		FROM candidates
		WHERE election_id = $1
		ORDER BY constituency_id
	`

	rows, err := r.db.Query(query, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list constituencies: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan constituency: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate constituencies: %w", err)
	}
	return ids, nil
}
