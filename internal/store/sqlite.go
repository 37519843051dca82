package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS decisions (
	id           TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL,
	candidate_id TEXT NOT NULL,
	outcome      TEXT NOT NULL CHECK (outcome IN ('accept', 'reject')),
	decided_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS decisions_session_idx ON decisions (session_id, decided_at);`

// SQLiteStore keeps decisions in a local SQLite file. It suits single-node
// deployments that want durability without running Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and applies
// the schema. Use ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// RecordDecision inserts a decision, ignoring duplicates.
func (s *SQLiteStore) RecordDecision(ctx context.Context, d Decision) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO decisions (id, session_id, candidate_id, outcome, decided_at) VALUES (?, ?, ?, ?, ?)`,
		d.ID, d.SessionID, d.CandidateID, d.Outcome, d.DecidedAt.UTC().Format(sqliteTimeLayout))
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// GetDecision retrieves a single decision by id.
func (s *SQLiteStore) GetDecision(ctx context.Context, id string) (*Decision, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, candidate_id, outcome, decided_at FROM decisions WHERE id = ?`, id)
	d, err := scanSQLiteDecision(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDecisionNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListDecisions returns matching decisions, newest first.
func (s *SQLiteStore) ListDecisions(ctx context.Context, q Query) ([]Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, candidate_id, outcome, decided_at
FROM decisions
WHERE (? = '' OR session_id = ?) AND (? = '' OR outcome = ?)
ORDER BY decided_at DESC, id DESC
LIMIT ?`, q.SessionID, q.SessionID, q.Outcome, q.Outcome, q.limit())
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	decisions := make([]Decision, 0)
	for rows.Next() {
		d, err := scanSQLiteDecision(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Fixed-width so that lexical order in SQL matches chronological order.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteDecision(r rowScanner) (Decision, error) {
	var (
		d         Decision
		decidedAt string
	)
	if err := r.Scan(&d.ID, &d.SessionID, &d.CandidateID, &d.Outcome, &decidedAt); err != nil {
		return Decision{}, err
	}
	t, err := time.Parse(sqliteTimeLayout, decidedAt)
	if err != nil {
		return Decision{}, fmt.Errorf("parse decided_at %q: %w", decidedAt, err)
	}
	d.DecidedAt = t
	return d, nil
}
