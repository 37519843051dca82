package store

import (
	"context"
	"errors"
	"time"
)

// ErrDecisionNotFound is returned when a decision id is unknown.
var ErrDecisionNotFound = errors.New("decision not found")

// Store defines the interface for decision persistence operations.
// Implementations must be thread-safe and support concurrent access.
type Store interface {
	// RecordDecision persists a decision. Recording an id that already
	// exists is a no-op, so retried deliveries are harmless.
	RecordDecision(ctx context.Context, d Decision) error

	// GetDecision retrieves a single decision by id.
	GetDecision(ctx context.Context, id string) (*Decision, error)

	// ListDecisions returns decisions matching q, newest first.
	// Returns an empty slice if none are found.
	ListDecisions(ctx context.Context, q Query) ([]Decision, error)

	// Close releases any resources held by the store.
	Close() error
}

// Decision is a persisted swipe outcome.
type Decision struct {
	ID          string    `json:"id" yaml:"id"`
	SessionID   string    `json:"sessionId" yaml:"session_id"`
	CandidateID string    `json:"candidateId" yaml:"candidate_id"`
	Outcome     string    `json:"outcome" yaml:"outcome"`
	DecidedAt   time.Time `json:"decidedAt" yaml:"decided_at"`
}

// Query filters ListDecisions. Zero fields do not filter; Limit <= 0 means
// DefaultLimit.
type Query struct {
	SessionID string
	Outcome   string
	Limit     int
}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

func (q Query) limit() int {
	switch {
	case q.Limit <= 0:
		return DefaultLimit
	case q.Limit > MaxLimit:
		return MaxLimit
	default:
		return q.Limit
	}
}

func (q Query) matches(d Decision) bool {
	if q.SessionID != "" && d.SessionID != q.SessionID {
		return false
	}
	if q.Outcome != "" && d.Outcome != q.Outcome {
		return false
	}
	return true
}
