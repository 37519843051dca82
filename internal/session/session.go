package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TimurManjosov/pawswipe/internal/catalog"
	"github.com/TimurManjosov/pawswipe/internal/deck"
	"github.com/TimurManjosov/pawswipe/internal/swipe"
)

// ErrUnknownPointer is returned for pointer event types other than
// down, move and up.
var ErrUnknownPointer = errors.New("unknown pointer event type")

// Pointer event types accepted by Session.Pointer.
const (
	PointerDown = "down"
	PointerMove = "move"
	PointerUp   = "up"
)

// Session is one browsing session: a running engine plus the filter its deck
// was built from.
type Session struct {
	id        string
	createdAt time.Time
	engine    *swipe.Engine
	notices   *notifier
	now       func() time.Time

	mu      sync.Mutex // guards filter and shuffle
	filter  catalog.Filter
	shuffle bool

	deck       atomic.Pointer[deck.Deck]
	lastActive atomic.Int64 // unix nanos
	lastViewed atomic.Pointer[deck.Candidate]
	watchers   atomic.Int32
}

// Info is a point-in-time description of a session.
type Info struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"createdAt"`
	LastActive time.Time       `json:"lastActive"`
	Filter     catalog.Filter  `json:"filter"`
	Shuffle    bool            `json:"shuffle"`
	LastViewed *deck.Candidate `json:"lastViewed,omitempty"`
	Watchers   int             `json:"watchers"`
	Frame      swipe.Frame     `json:"frame"`
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Frame returns the engine's current frame.
func (s *Session) Frame() swipe.Frame { return s.engine.Frame() }

// Commit performs a programmatic swipe. It reports false when the swipe was
// dropped (transition in flight, empty deck or closed session).
func (s *Session) Commit(o swipe.Outcome) bool {
	s.touch()
	return s.engine.Commit(o)
}

// Pointer forwards one raw pointer event to the engine.
func (s *Session) Pointer(kind string, x, y float64) error {
	switch kind {
	case PointerDown:
		s.engine.PointerDown(x, y)
	case PointerMove:
		s.engine.PointerMove(x, y)
	case PointerUp:
		s.engine.PointerUp(x, y)
	default:
		return ErrUnknownPointer
	}
	s.touch()
	return nil
}

// Subscribe streams frames and notices until cancel is called or the
// session closes, at which point both channels are closed.
func (s *Session) Subscribe() (frames <-chan swipe.Frame, notices <-chan Notice, cancel func()) {
	f, unsubFrames := s.engine.Subscribe()
	n, unsubNotices := s.notices.subscribe()
	s.watchers.Add(1)

	var once sync.Once
	return f, n, func() {
		once.Do(func() {
			unsubFrames()
			unsubNotices()
			s.watchers.Add(-1)
		})
	}
}

// Info describes the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	f, shuffle := s.filter, s.shuffle
	s.mu.Unlock()
	return Info{
		ID:         s.id,
		CreatedAt:  s.createdAt,
		LastActive: s.LastActive(),
		Filter:     f,
		Shuffle:    shuffle,
		LastViewed: s.lastViewed.Load(),
		Watchers:   int(s.watchers.Load()),
		Frame:      s.engine.Frame(),
	}
}

// LastActive is the time of the most recent input or reload.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

func (s *Session) touch() {
	s.lastActive.Store(s.now().UnixNano())
}

// idle reports whether nothing has touched the session for ttl and nobody is
// watching it.
func (s *Session) idle(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 || s.watchers.Load() > 0 {
		return false
	}
	return now.Sub(s.LastActive()) > ttl
}

// candidateAt resolves a decision's cursor against the current deck. The
// id check guards against a reload racing the decision.
func (s *Session) candidateAt(cursor int, id string) deck.Candidate {
	if d := s.deck.Load(); d != nil {
		if c, ok := d.At(cursor); ok && c.ID == id {
			return c
		}
	}
	return deck.Candidate{ID: id}
}

func (s *Session) close() {
	s.engine.Close()
	s.notices.close()
}
