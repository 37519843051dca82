package webhook

import (
	"github.com/TimurManjosov/pawswipe/internal/deck"
	"github.com/TimurManjosov/pawswipe/internal/swipe"
)

// EventBuilder provides a fluent API for constructing webhook events.
// The event type is derived from the decision outcome.
//
// Usage:
//
//	event := webhook.NewEventBuilder(sessionID).
//		WithDecision(d).
//		WithCandidate(c).
//		WithDeck(state.Fingerprint, state.DeckSize).
//		Build()
//
//	dispatcher.Dispatch(event)
type EventBuilder struct {
	event Event
}

// NewEventBuilder creates a new builder for the given session.
func NewEventBuilder(sessionID string) *EventBuilder {
	return &EventBuilder{event: Event{SessionID: sessionID}}
}

// WithDecision copies the decision and sets the event type from its outcome.
func (b *EventBuilder) WithDecision(d swipe.Decision) *EventBuilder {
	b.event.Decision = Decision{
		ID:        d.ID,
		Outcome:   string(d.Outcome),
		Cursor:    d.Cursor,
		DecidedAt: d.Timestamp,
	}
	b.event.Timestamp = d.Timestamp
	if d.Liked() {
		b.event.Type = EventDecisionAccepted
	} else {
		b.event.Type = EventDecisionRejected
	}
	if b.event.Candidate.ID == "" {
		b.event.Candidate.ID = d.CandidateID
	}
	return b
}

// WithCandidate attaches the candidate's display fields.
func (b *EventBuilder) WithCandidate(c deck.Candidate) *EventBuilder {
	b.event.Candidate = Candidate{ID: c.ID, Name: c.Name, Attributes: c.Attributes}
	return b
}

// WithDeck records which deck the decision was made against.
func (b *EventBuilder) WithDeck(fingerprint string, size int) *EventBuilder {
	b.event.Metadata.DeckFingerprint = fingerprint
	b.event.Metadata.DeckSize = size
	return b
}

// Build returns the constructed Event.
func (b *EventBuilder) Build() Event {
	return b.event
}
