package audit

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// LogSink writes each event as a structured log line.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{log: logger.With().Str("component", "audit").Logger()}
}

func (s *LogSink) Write(_ context.Context, e Event) error {
	s.log.Info().
		Str("audit_id", e.ID).
		Str("request_id", e.RequestID).
		Str("actor", e.Actor).
		Str("ip", e.IPAddress).
		Str("action", e.Action).
		Str("resource_type", e.ResourceType).
		Str("resource_id", e.ResourceID).
		Str("status", e.Status).
		Interface("details", e.Details).
		Msg("audit")
	return nil
}

// RingSink keeps the most recent events in memory for the admin API.
type RingSink struct {
	mu     sync.RWMutex
	events []Event
	next   int
	full   bool
}

func NewRingSink(capacity int) *RingSink {
	if capacity <= 0 {
		capacity = 500
	}
	return &RingSink{events: make([]Event, capacity)}
}

func (s *RingSink) Write(_ context.Context, e Event) error {
	s.mu.Lock()
	s.events[s.next] = e
	s.next = (s.next + 1) % len(s.events)
	if s.next == 0 {
		s.full = true
	}
	s.mu.Unlock()
	return nil
}

// Recent returns up to limit events, newest first.
func (s *RingSink) Recent(limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.next
	if s.full {
		n = len(s.events)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Event, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + len(s.events)) % len(s.events)
		out = append(out, s.events[idx])
	}
	return out
}

// MultiSink fans an event out to several sinks, returning the first error.
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, e Event) error {
	var firstErr error
	for _, s := range slices.Clip(m) {
		if err := s.Write(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
