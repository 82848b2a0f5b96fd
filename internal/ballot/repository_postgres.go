package ballot

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresRepository implements Repository using PostgreSQL.
//
// The one-vote-per-(voter, election) rule is enforced by a unique
// constraint, so concurrent casts race in the database and exactly one
// insert wins.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores a new ballot. A second ballot for the same (voter, election)
// pair returns ErrAlreadyVoted.
func (r *PostgresRepository) Insert(b *Ballot) error {
	query := `
		INSERT INTO ballots (vote_id, election_id, constituency_id, voter_id, encrypted, receipt_hash, cast_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(
		query,
		b.VoteID,
		b.ElectionID,
		b.ConstituencyID,
		b.VoterID,
		b.Encrypted,
		b.ReceiptHash,
		b.CastAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyVoted
		}
		return fmt.Errorf("failed to insert ballot: %w", err)
	}
	return nil
}

// GetByVoteID retrieves a ballot by vote ID.
func (r *PostgresRepository) GetByVoteID(voteID string) (*Ballot, error) {
	query := `
		SELECT vote_id, election_id, constituency_id, voter_id, encrypted, receipt_hash, cast_at
		FROM ballots
		WHERE vote_id = $1
	`

	b := &Ballot{}
	err := r.db.QueryRow(query, voteID).Scan(
		&b.VoteID,
		&b.ElectionID,
		&b.ConstituencyID,
		&b.VoterID,
		&b.Encrypted,
		&b.ReceiptHash,
		&b.CastAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBallotNotFound
		}
		return nil, fmt.Errorf("failed to get ballot: %w", err)
	}
	return b, nil
}

// ListByScope returns all ballots for one (election, constituency) scope.
func (r *PostgresRepository) ListByScope(electionID, constituencyID string) ([]*Ballot, error) {
	query := `
		SELECT vote_id, election_id, constituency_id, voter_id, encrypted, receipt_hash, cast_at
		FROM ballots
		WHERE election_id = $1 AND constituency_id = $2
		ORDER BY cast_at
	`
	return r.queryBallots(query, electionID, constituencyID)
}

// ListByElection returns all ballots in an election.
func (r *PostgresRepository) ListByElection(electionID string) ([]*Ballot, error) {
	query := `
		SELECT vote_id, election_id, constituency_id, voter_id, encrypted, receipt_hash, cast_at
		FROM ballots
		WHERE election_id = $1
		ORDER BY cast_at
	`
	return r.queryBallots(query, electionID)
}

func (r *PostgresRepository) queryBallots(query string, args ...any) ([]*Ballot, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ballots: %w", err)
	}
	defer rows.Close()

	var ballots []*Ballot
	for rows.Next() {
		b := &Ballot{}
		if err := rows.Scan(
			&b.VoteID,
			&b.ElectionID,
			&b.ConstituencyID,
			&b.VoterID,
			&b.Encrypted,
			&b.ReceiptHash,
			&b.CastAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ballot: %w", err)
		}
		ballots = append(ballots, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ballots: %w", err)
	}
	return ballots, nil
}

// CountByElection returns the number of ballots cast in an election.
func (r *PostgresRepository) CountByElection(electionID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM ballots WHERE election_id = $1`, electionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ballots: %w", err)
	}
	return count, nil
}

// CountByScope returns the number of ballots in one (election, constituency) scope.
func (r *PostgresRepository) CountByScope(electionID, constituencyID string) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM ballots WHERE election_id = $1 AND constituency_id = $2`,
		electionID, constituencyID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ballots: %w", err)
	}
	return count, nil
}
