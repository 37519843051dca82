// Package audit records operator actions (session eviction, deck reloads,
// catalog refreshes) without slowing down the request that caused them.
package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Action constants for audit logging
const (
	ActionCreated    = "created"
	ActionDeleted    = "deleted"
	ActionReloaded   = "reloaded"
	ActionEvicted    = "evicted"
	ActionAuthFailed = "auth_failed"
)

// ResourceType constants for audit logging
const (
	ResourceTypeSession = "session"
	ResourceTypeDeck    = "deck"
	ResourceTypeCatalog = "catalog"
)

// Status constants for audit logging
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Clock interface for testable time operations
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using time.Now()
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// IDGenerator interface for testable ID generation
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator implements IDGenerator using UUID v4
type UUIDGenerator struct{}

func (UUIDGenerator) Generate() string { return uuid.NewString() }

// Redactor removes sensitive values from event details.
type Redactor interface {
	Redact(data map[string]any) map[string]any
}

// DefaultRedactor masks a fixed set of keys at any depth.
type DefaultRedactor struct {
	sensitiveKeys map[string]struct{}
}

func NewDefaultRedactor() *DefaultRedactor {
	keys := []string{"password", "secret", "token", "api_key", "authorization", "cookie", "dsn"}
	r := &DefaultRedactor{sensitiveKeys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		r.sensitiveKeys[k] = struct{}{}
	}
	return r
}

func (r *DefaultRedactor) Redact(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	redacted := make(map[string]any, len(data))
	for k, v := range data {
		if _, sensitive := r.sensitiveKeys[k]; sensitive {
			redacted[k] = "[REDACTED]"
		} else if nested, ok := v.(map[string]any); ok {
			redacted[k] = r.Redact(nested)
		} else {
			redacted[k] = v
		}
	}
	return redacted
}

// Event is one audited action.
type Event struct {
	ID           string         `json:"id"`
	OccurredAt   time.Time      `json:"occurredAt"`
	RequestID    string         `json:"requestId,omitempty"`
	Actor        string         `json:"actor"` // role of the caller, or "system"
	IPAddress    string         `json:"ipAddress,omitempty"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resourceType"`
	ResourceID   string         `json:"resourceId,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	Status       string         `json:"status"`
}

// Sink persists audit events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Service queues events and writes them to a sink on a background worker.
type Service struct {
	sink     Sink
	clock    Clock
	idgen    IDGenerator
	redactor Redactor
	log      zerolog.Logger
	queue    chan Event
	done     chan struct{}
	closed   atomic.Bool
	mu       sync.RWMutex // guards queue send vs close
}

// Option customizes a Service.
type Option func(*Service)

func WithClock(c Clock) Option             { return func(s *Service) { s.clock = c } }
func WithIDGenerator(g IDGenerator) Option { return func(s *Service) { s.idgen = g } }
func WithRedactor(r Redactor) Option       { return func(s *Service) { s.redactor = r } }

// NewService creates a new audit service and starts its worker.
func NewService(sink Sink, logger zerolog.Logger, queueSize int, opts ...Option) *Service {
	if queueSize <= 0 {
		queueSize = 256
	}
	s := &Service{
		sink:     sink,
		clock:    SystemClock{},
		idgen:    UUIDGenerator{},
		redactor: NewDefaultRedactor(),
		log:      logger.With().Str("component", "audit").Logger(),
		queue:    make(chan Event, queueSize),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.worker()
	return s
}

func (s *Service) worker() {
	defer close(s.done)
	for event := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.sink.Write(ctx, event); err != nil {
			s.log.Warn().Err(err).Str("action", event.Action).Msg("failed to write event")
		}
		cancel()
	}
}

// Close drains pending events and stops the worker. Safe to call multiple times.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	close(s.queue)
	s.mu.Unlock()
	<-s.done
	return nil
}

// Log stamps, redacts and queues an event. It never blocks; events are
// dropped when the queue is full or the service is closed.
func (s *Service) Log(event Event) {
	if event.ID == "" {
		event.ID = s.idgen.Generate()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.clock.Now().UTC()
	}
	if event.Actor == "" {
		event.Actor = "system"
	}
	if event.Status == "" {
		event.Status = StatusSuccess
	}
	event.Details = s.redactor.Redact(event.Details)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		return
	}
	select {
	case s.queue <- event:
	default:
		s.log.Warn().Str("resource", event.ResourceType+"/"+event.ResourceID).Msg("queue full, dropping event")
	}
}
