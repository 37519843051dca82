package swipe

import "sync"

// mailbox is an unbounded FIFO used to hand messages between the engine's
// loops. Posting never blocks, so the animation loop can hand a completion to
// the logic loop without waiting on it.
type mailbox[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{} // buffered, size 1; coalesces wakeups
}

func newMailbox[T any]() *mailbox[T] {
	return &mailbox[T]{
		items:  make([]T, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// post appends v. It returns false once the mailbox is closed.
func (m *mailbox[T]) post(v T) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	m.items = append(m.items, v)

	select {
	case m.signal <- struct{}{}:
	default:
	}
	return true
}

// ready fires when at least one message may be waiting.
func (m *mailbox[T]) ready() <-chan struct{} { return m.signal }

// drain takes every queued message in post order.
func (m *mailbox[T]) drain() []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.items) == 0 {
		return nil
	}
	out := m.items
	m.items = make([]T, 0, cap(out))
	return out
}

func (m *mailbox[T]) close() {
	m.mu.Lock()
	m.closed = true
	m.items = nil
	m.mu.Unlock()
}
