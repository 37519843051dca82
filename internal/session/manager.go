// Package session hosts one swipe engine per browsing session. It builds
// decks from the catalog, persists and publishes decisions, and evicts idle
// sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TimurManjosov/pawswipe/internal/audit"
	"github.com/TimurManjosov/pawswipe/internal/catalog"
	"github.com/TimurManjosov/pawswipe/internal/deck"
	"github.com/TimurManjosov/pawswipe/internal/store"
	"github.com/TimurManjosov/pawswipe/internal/swipe"
	"github.com/TimurManjosov/pawswipe/internal/telemetry"
	"github.com/TimurManjosov/pawswipe/internal/webhook"
)

var (
	// ErrSessionNotFound is returned for unknown or evicted session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrManagerClosed is returned by Create after Close.
	ErrManagerClosed = errors.New("session manager closed")
)

const (
	persistQueueSize     = 1024
	defaultRecordTimeout = 5 * time.Second
)

// Dispatcher is the webhook side of the manager.
type Dispatcher interface {
	Dispatch(webhook.Event) bool
}

// Config tunes the manager.
type Config struct {
	Engine          swipe.Options
	IdleTTL         time.Duration // 0 disables eviction
	JanitorInterval time.Duration // defaults to IdleTTL/4, at least one second
	RecordTimeout   time.Duration
}

// CreateOptions selects the deck for a new session or a reload.
type CreateOptions struct {
	Filter  catalog.Filter `json:"filter"`
	Shuffle bool           `json:"shuffle"`
}

// Option customizes a Manager.
type Option func(*Manager)

// WithWebhooks publishes every decision through d.
func WithWebhooks(d Dispatcher) Option { return func(m *Manager) { m.webhooks = d } }

// WithAudit records evictions and catalog reloads.
func WithAudit(a *audit.Service) Option { return func(m *Manager) { m.audit = a } }

// WithClock overrides time.Now for idle bookkeeping.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// Manager owns all live sessions.
type Manager struct {
	cfg      Config
	src      catalog.Source
	store    store.Store
	webhooks Dispatcher
	audit    *audit.Service
	log      zerolog.Logger
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	persist   chan store.Decision
	persistWG sync.WaitGroup
	closeOnce sync.Once
}

// NewManager creates a manager and starts its persistence worker. Call Run
// to enable eviction and catalog-driven reloads.
func NewManager(cfg Config, src catalog.Source, st store.Store, logger zerolog.Logger, opts ...Option) *Manager {
	if cfg.RecordTimeout <= 0 {
		cfg.RecordTimeout = defaultRecordTimeout
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = max(cfg.IdleTTL/4, time.Second)
	}
	m := &Manager{
		cfg:      cfg,
		src:      src,
		store:    st,
		log:      logger.With().Str("component", "session").Logger(),
		now:      time.Now,
		sessions: make(map[string]*Session),
		persist:  make(chan store.Decision, persistQueueSize),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.persistWG.Add(1)
	go m.persistWorker()
	return m
}

// Create builds a deck from the catalog and starts a new session on it.
func (m *Manager) Create(ctx context.Context, opts CreateOptions) (*Session, error) {
	if err := opts.Filter.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	d, err := m.buildDeck(ctx, id, opts)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:        id,
		createdAt: m.now().UTC(),
		notices:   newNotifier(),
		now:       m.now,
		filter:    opts.Filter,
		shuffle:   opts.Shuffle,
	}
	s.touch()

	engineOpts := m.cfg.Engine
	engineOpts.Logger = m.log.With().Str("session", id).Logger()
	s.engine = swipe.New(engineOpts, m.hooksFor(s))

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	m.sessions[id] = s
	m.mu.Unlock()

	s.engine.Start()
	s.deck.Store(&d)
	s.engine.LoadDeck(d)

	telemetry.SessionsActive.Inc()
	m.log.Info().Str("session", id).Int("deck_size", d.Size()).Msg("session created")
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List describes every live session, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(all))
	for _, s := range all {
		infos = append(infos, s.Info())
	}
	slices.SortFunc(infos, func(a, b Info) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return infos
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	telemetry.SessionsActive.Dec()
	m.log.Info().Str("session", id).Msg("session closed")
	return nil
}

// Reload rebuilds one session's deck with new options and replaces it
// wholesale. Cursor, slots and pose are reset.
func (m *Manager) Reload(ctx context.Context, id string, opts CreateOptions) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	if err := opts.Filter.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.filter, s.shuffle = opts.Filter, opts.Shuffle
	s.mu.Unlock()
	s.touch()
	return m.reload(ctx, s)
}

// ReloadAll rebuilds every session's deck from its remembered filter, as
// after a catalog change. It returns how many sessions were reloaded.
func (m *Manager) ReloadAll(ctx context.Context) (int, error) {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	var errs []error
	n := 0
	for _, s := range all {
		if err := m.reload(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", s.id, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

func (m *Manager) reload(ctx context.Context, s *Session) error {
	s.mu.Lock()
	opts := CreateOptions{Filter: s.filter, Shuffle: s.shuffle}
	s.mu.Unlock()

	d, err := m.buildDeck(ctx, s.id, opts)
	if err != nil {
		return err
	}
	s.deck.Store(&d)
	if !s.engine.LoadDeck(d) {
		return ErrSessionNotFound
	}
	telemetry.DeckReloads.Inc()
	m.log.Debug().Str("session", s.id).Int("deck_size", d.Size()).Str("fingerprint", d.Fingerprint()).Msg("deck reloaded")
	return nil
}

func (m *Manager) buildDeck(ctx context.Context, seed string, opts CreateOptions) (deck.Deck, error) {
	cands, err := m.src.Candidates(ctx, opts.Filter)
	if err != nil {
		return deck.Deck{}, fmt.Errorf("load candidates: %w", err)
	}
	if opts.Shuffle {
		cands = catalog.Shuffle(cands, seed)
	}
	return deck.New(cands), nil
}

// hooksFor wires a session's engine to persistence, webhooks, metrics and
// stream notices. Hooks run on the engine's logic loop and must not block.
func (m *Manager) hooksFor(s *Session) swipe.Hooks {
	return swipe.Hooks{
		OnDecision: func(d swipe.Decision) {
			telemetry.Decisions.WithLabelValues(string(d.Outcome)).Inc()
			m.enqueue(store.Decision{
				ID:          d.ID,
				SessionID:   s.id,
				CandidateID: d.CandidateID,
				Outcome:     string(d.Outcome),
				DecidedAt:   d.Timestamp,
			})

			cand := s.candidateAt(d.Cursor, d.CandidateID)
			if m.webhooks != nil {
				dk := s.deck.Load()
				m.webhooks.Dispatch(webhook.NewEventBuilder(s.id).
					WithCandidate(cand).
					WithDecision(d).
					WithDeck(dk.Fingerprint(), dk.Size()).
					Build())
			}
			s.notices.publish(Notice{Kind: NoticeDecision, Decision: &d, Candidate: &cand})
		},
		OnActivate: func(c deck.Candidate) {
			s.lastViewed.Store(&c)
			s.notices.publish(Notice{Kind: NoticeActivate, Candidate: &c})
			m.log.Debug().Str("session", s.id).Str("candidate", c.ID).Msg("candidate active")
		},
		OnDrop: func(kind string) {
			telemetry.DroppedInputs.WithLabelValues(kind).Inc()
		},
		OnReset: func() {
			telemetry.Resets.Inc()
		},
	}
}

// enqueue hands a decision to the persistence worker. When the queue is full
// it falls back to writing inline, which slows the engine instead of losing
// the decision.
func (m *Manager) enqueue(d store.Decision) {
	select {
	case m.persist <- d:
	default:
		m.log.Warn().Str("decision", d.ID).Msg("persist queue full, writing inline")
		m.record(d)
	}
}

func (m *Manager) persistWorker() {
	defer m.persistWG.Done()
	for d := range m.persist {
		m.record(d)
	}
}

func (m *Manager) record(d store.Decision) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.RecordTimeout)
	defer cancel()
	if err := m.store.RecordDecision(ctx, d); err != nil {
		m.log.Error().Err(err).Str("decision", d.ID).Str("session", d.SessionID).Msg("failed to record decision")
	}
}

// Run evicts idle sessions and reloads decks when the catalog changes until
// ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.JanitorInterval)
	defer ticker.Stop()

	changes := m.src.Changes()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.EvictIdle()
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			n, err := m.ReloadAll(ctx)
			if err != nil {
				m.log.Error().Err(err).Msg("catalog reload failed for some sessions")
			}
			m.log.Info().Int("sessions", n).Msg("catalog changed, decks reloaded")
			m.auditSystem(audit.ActionReloaded, audit.ResourceTypeCatalog, "", map[string]any{"sessions": n})
		}
	}
}

// EvictIdle closes sessions idle for longer than the configured TTL and
// returns their ids.
func (m *Manager) EvictIdle() []string {
	now := m.now()
	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if s.idle(now, m.cfg.IdleTTL) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		if err := m.Delete(id); err == nil {
			m.auditSystem(audit.ActionEvicted, audit.ResourceTypeSession, id, map[string]any{"idle_ttl": m.cfg.IdleTTL.String()})
		}
	}
	return stale
}

func (m *Manager) auditSystem(action, resourceType, resourceID string, details map[string]any) {
	if m.audit == nil {
		return
	}
	m.audit.Log(audit.Event{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
	})
}

// Close closes every session and flushes pending decisions to the store.
// The store itself is left open. Safe to call more than once.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		all := m.sessions
		m.sessions = make(map[string]*Session)
		m.mu.Unlock()

		for _, s := range all {
			s.close()
			telemetry.SessionsActive.Dec()
		}
		close(m.persist)
		m.persistWG.Wait()
	})
	return nil
}
