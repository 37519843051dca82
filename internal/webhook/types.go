package webhook

import (
	"time"
)

// Event types that can trigger webhooks
const (
	EventDecisionAccepted = "decision.accepted"
	EventDecisionRejected = "decision.rejected"
)

// Event is the JSON body POSTed to every configured endpoint.
type Event struct {
	Type      string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"sessionId"`
	Decision  Decision  `json:"decision"`
	Candidate Candidate `json:"candidate"`
	Metadata  Metadata  `json:"metadata"`
}

// Decision describes the swipe that produced the event.
type Decision struct {
	ID        string    `json:"id"`
	Outcome   string    `json:"outcome"`
	Cursor    int       `json:"cursor"`
	DecidedAt time.Time `json:"decidedAt"`
}

// Candidate identifies the adoption candidate the decision is about.
type Candidate struct {
	ID         string            `json:"id"`
	Name       string            `json:"name,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Metadata contains additional context about the event
type Metadata struct {
	DeckFingerprint string `json:"deckFingerprint,omitempty"`
	DeckSize        int    `json:"deckSize,omitempty"`
}

// Endpoint is one delivery target.
type Endpoint struct {
	URL        string
	Secret     string
	MaxRetries int
	Timeout    time.Duration
}
