package swipe

import (
	"time"

	"github.com/google/uuid"
)

// Decision is emitted once per committed swipe. The engine keeps no copy.
type Decision struct {
	ID          string    `json:"id"`
	CandidateID string    `json:"candidateId"`
	Outcome     Outcome   `json:"outcome"`
	Cursor      int       `json:"cursor"`
	Timestamp   time.Time `json:"timestamp"`
}

// Liked reports whether the decision marks the candidate as liked.
func (d Decision) Liked() bool { return d.Outcome == Accept }

// recorder stamps and emits decisions.
type recorder struct {
	now   func() time.Time
	emit  func(Decision)
	count uint64
}

func (r *recorder) record(candidateID string, o Outcome, cursor int) Decision {
	d := Decision{
		ID:          uuid.NewString(),
		CandidateID: candidateID,
		Outcome:     o,
		Cursor:      cursor,
		Timestamp:   r.now().UTC(),
	}
	r.count++
	if r.emit != nil {
		r.emit(d)
	}
	return d
}
