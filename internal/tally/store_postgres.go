package tally

import (
	"database/sql"
	"fmt"
)

// PostgresResultStore implements ResultStore using PostgreSQL.
type PostgresResultStore struct {
	db *sql.DB
}

// NewPostgresResultStore creates a new PostgresResultStore.
func NewPostgresResultStore(db *sql.DB) *PostgresResultStore {
	return &PostgresResultStore{db: db}
}

// ReplaceScope swaps one scope's rows inside a transaction so readers never
// see a half-written tally.
func (s *PostgresResultStore) ReplaceScope(electionID, constituencyID string, rows []ResultRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM results WHERE election_id = $1 AND constituency_id = $2`,
		electionID, constituencyID,
	); err != nil {
		return fmt.Errorf("failed to clear result scope: %w", err)
	}

	query := `
		INSERT INTO results (
			election_id, constituency_id, candidate_id, candidate_name, party,
			votes, rank, percentage, margin, calculated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, row := range rows {
		if _, err := tx.Exec(
			query,
			row.ElectionID,
			row.ConstituencyID,
			row.CandidateID,
			row.CandidateName,
			row.Party,
			row.Votes,
			row.Rank,
			row.Percentage,
			row.Margin,
			row.CalculatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert result row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// ByElection returns every stored row for an election, ordered by
// constituency then rank.
func (s *PostgresResultStore) ByElection(electionID string) ([]ResultRow, error) {
	query := `
		SELECT election_id, constituency_id, candidate_id, candidate_name, party,
		       votes, rank, percentage, margin, calculated_at
		FROM results
		WHERE election_id = $1
		ORDER BY constituency_id, rank
	`

	dbRows, err := s.db.Query(query, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer dbRows.Close()

	var rows []ResultRow
	for dbRows.Next() {
		var row ResultRow
		if err := dbRows.Scan(
			&row.ElectionID,
			&row.ConstituencyID,
			&row.CandidateID,
			&row.CandidateName,
			&row.Party,
			&row.Votes,
			&row.Rank,
			&row.Percentage,
			&row.Margin,
			&row.CalculatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		rows = append(rows, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate results: %w", err)
	}
	return rows, nil
}
