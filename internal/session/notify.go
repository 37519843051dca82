package session

import (
	"sync"

	"github.com/TimurManjosov/pawswipe/internal/deck"
	"github.com/TimurManjosov/pawswipe/internal/swipe"
)

// Notice kinds delivered alongside frames.
const (
	NoticeDecision = "decision"
	NoticeActivate = "activate"
)

// Notice is a discrete session event for stream clients.
type Notice struct {
	Kind      string          `json:"kind"`
	Decision  *swipe.Decision `json:"decision,omitempty"`
	Candidate *deck.Candidate `json:"candidate,omitempty"`
}

const noticeBuffer = 32

// notifier fans notices out to listeners without blocking the engine's
// logic loop. A slow listener misses notices instead of stalling it.
type notifier struct {
	mu     sync.Mutex
	subs   map[chan Notice]struct{}
	closed bool
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[chan Notice]struct{})}
}

// subscribe registers a listener and returns its channel and an unsubscribe func.
func (n *notifier) subscribe() (<-chan Notice, func()) {
	ch := make(chan Notice, noticeBuffer)
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			if _, ok := n.subs[ch]; ok {
				delete(n.subs, ch)
				close(ch)
			}
			n.mu.Unlock()
		})
	}
}

func (n *notifier) publish(v Notice) {
	n.mu.Lock()
	for ch := range n.subs {
		select {
		case ch <- v:
		default:
		}
	}
	n.mu.Unlock()
}

func (n *notifier) close() {
	n.mu.Lock()
	n.closed = true
	for ch := range n.subs {
		close(ch)
		delete(n.subs, ch)
	}
	n.mu.Unlock()
}
