package voter

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a new voter. The voter ID number is unique; a duplicate
// returns ErrDuplicateVoterID.
func (r *PostgresRepository) Insert(v *Voter) error {
	query := `
		INSERT INTO voters (id, voter_id_number, name, constituency_id, password_hash, template_ref, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(
		query,
		v.ID,
		v.VoterIDNumber,
		v.Name,
		v.ConstituencyID,
		v.PasswordHash,
		v.TemplateRef,
		v.RegisteredAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateVoterID
		}
		return fmt.Errorf("failed to insert voter: %w", err)
	}
	return nil
}

// GetByID retrieves a voter by internal ID.
func (r *PostgresRepository) GetByID(id string) (*Voter, error) {
	return r.getBy("id", id)
}

// GetByVoterIDNumber retrieves a voter by government ID number.
func (r *PostgresRepository) GetByVoterIDNumber(idNumber string) (*Voter, error) {
	return r.getBy("voter_id_number", idNumber)
}

func (r *PostgresRepository) getBy(column, value string) (*Voter, error) {
	query := fmt.Sprintf(`
		SELECT id, voter_id_number, name, constituency_id, password_hash, template_ref, registered_at
		FROM voters
		WHERE %s = $1
	`, column)

	v := &Voter{}
	err := r.db.QueryRow(query, value).Scan(
		&v.ID,
		&v.VoterIDNumber,
		&v.Name,
		&v.ConstituencyID,
		&v.PasswordHash,
		&v.TemplateRef,
		&v.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVoterNotFound
		}
		return nil, fmt.Errorf("failed to get voter: %w", err)
	}
	return v, nil
}

// CountByConstituency returns the number of registered voters in a constituency.
func (r *PostgresRepository) CountByConstituency(constituencyID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM voters WHERE constituency_id = $1`, constituencyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count voters: %w", err)
	}
	return count, nil
}

// Count returns the total number of registered voters.
func (r *PostgresRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM voters`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count voters: %w", err)
	}
	return count, nil
}
