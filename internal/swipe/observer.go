package swipe

import "sync"

// subscriberBuffer is how many frames a slow subscriber may lag before older
// frames are discarded in favor of newer ones.
const subscriberBuffer = 16

// broadcaster fans frames out to subscribers without ever blocking the loop
// that publishes.
type broadcaster struct {
	mu     sync.Mutex
	subs   map[chan Frame]struct{}
	seq    uint64
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[chan Frame]struct{})}
}

// subscribe registers a listener and returns its channel and an unsubscribe
// func. The channel is closed on unsubscribe or when the engine closes.
func (b *broadcaster) subscribe() (<-chan Frame, func()) {
	ch := make(chan Frame, subscriberBuffer)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if _, ok := b.subs[ch]; ok {
				delete(b.subs, ch)
				close(ch)
			}
		})
	}
	return ch, unsub
}

// publish stamps the frame built by build with the next sequence number and
// offers it to every subscriber. A full subscriber loses its oldest frame.
func (b *broadcaster) publish(build func() Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.seq++
	f := build()
	f.Seq = b.seq

	for ch := range b.subs {
		select {
		case ch <- f:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- f:
		default:
		}
	}
}

func (b *broadcaster) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}
