package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of the Store interface.
// It uses a map for storage and RWMutex for thread-safe concurrent access.
// This implementation is suitable for development, testing, or single-instance deployments.
type MemoryStore struct {
	mu        sync.RWMutex
	decisions map[string]Decision // id -> Decision
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		decisions: make(map[string]Decision),
	}
}

// RecordDecision stores a decision in memory.
func (m *MemoryStore) RecordDecision(ctx context.Context, d Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.decisions[d.ID]; exists {
		return nil
	}
	m.decisions[d.ID] = d
	return nil
}

// GetDecision retrieves a single decision by id.
func (m *MemoryStore) GetDecision(ctx context.Context, id string) (*Decision, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, exists := m.decisions[id]
	if !exists {
		return nil, ErrDecisionNotFound
	}
	return &d, nil
}

// ListDecisions returns matching decisions, newest first.
func (m *MemoryStore) ListDecisions(ctx context.Context, q Query) ([]Decision, error) {
	m.mu.RLock()
	result := make([]Decision, 0, len(m.decisions))
	for _, d := range m.decisions {
		if q.matches(d) {
			result = append(result, d)
		}
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].DecidedAt.Equal(result[j].DecidedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].DecidedAt.After(result[j].DecidedAt)
	})
	if limit := q.limit(); len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Close is a no-op for MemoryStore as there are no resources to release.
func (m *MemoryStore) Close() error {
	return nil
}
