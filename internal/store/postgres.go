package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgInsertDecision = `
INSERT INTO decisions (id, session_id, candidate_id, outcome, decided_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`

	pgSelectDecision = `
SELECT id, session_id, candidate_id, outcome, decided_at
FROM decisions WHERE id = $1`

	pgListDecisions = `
SELECT id, session_id, candidate_id, outcome, decided_at
FROM decisions
WHERE ($1 = '' OR session_id = $1) AND ($2 = '' OR outcome = $2)
ORDER BY decided_at DESC, id DESC
LIMIT $3`
)

// PostgresStore is a PostgreSQL implementation of the Store interface.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store. The schema must
// already exist (see db.Migrate).
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// RecordDecision inserts a decision, ignoring duplicates.
func (p *PostgresStore) RecordDecision(ctx context.Context, d Decision) error {
	_, err := p.pool.Exec(ctx, pgInsertDecision, d.ID, d.SessionID, d.CandidateID, d.Outcome, d.DecidedAt)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// GetDecision retrieves a single decision by id from the database.
func (p *PostgresStore) GetDecision(ctx context.Context, id string) (*Decision, error) {
	var d Decision
	err := p.pool.QueryRow(ctx, pgSelectDecision, id).
		Scan(&d.ID, &d.SessionID, &d.CandidateID, &d.Outcome, &d.DecidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDecisionNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListDecisions returns matching decisions, newest first.
func (p *PostgresStore) ListDecisions(ctx context.Context, q Query) ([]Decision, error) {
	rows, err := p.pool.Query(ctx, pgListDecisions, q.SessionID, q.Outcome, q.limit())
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	decisions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Decision, error) {
		var d Decision
		err := row.Scan(&d.ID, &d.SessionID, &d.CandidateID, &d.Outcome, &d.DecidedAt)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan decisions: %w", err)
	}
	return decisions, nil
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
