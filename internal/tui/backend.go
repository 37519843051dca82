// Package tui is a terminal swipe client: it renders a session's frames as a
// card and turns key presses into commits and keyboard drags.
package tui

import (
	"context"
	"errors"
	"sync"

	"github.com/TimurManjosov/pawswipe/internal/client"
	"github.com/TimurManjosov/pawswipe/internal/session"
	"github.com/TimurManjosov/pawswipe/internal/swipe"
)

// Update is one change pushed by a backend. Exactly one field is set.
type Update struct {
	Info   *session.Info
	Frame  *swipe.Frame
	Notice *session.Notice
	// Dropped reports a commit the backend refused.
	Dropped bool
	Err     error
}

// Backend is the session the model drives.
type Backend interface {
	// Updates delivers session changes until the backend closes, then closes.
	Updates() <-chan Update
	Commit(o swipe.Outcome) error
	Pointer(kind string, x, y float64) error
	Close() error
}

const updateBuffer = 64

// localBackend drives an in-process session.
type localBackend struct {
	sess    *session.Session
	updates chan Update
	cancel  func()
	done    chan struct{}
	once    sync.Once
}

// NewLocal wraps a session owned by an in-process manager.
func NewLocal(sess *session.Session) Backend {
	frames, notices, cancel := sess.Subscribe()
	b := &localBackend{
		sess:    sess,
		updates: make(chan Update, updateBuffer),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	info := sess.Info()
	b.updates <- Update{Info: &info}
	go b.pump(frames, notices)
	return b
}

func (b *localBackend) pump(frames <-chan swipe.Frame, notices <-chan session.Notice) {
	defer close(b.updates)
	for {
		var u Update
		select {
		case <-b.done:
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			u.Frame = &f
		case n, ok := <-notices:
			if !ok {
				notices = nil
				continue
			}
			u.Notice = &n
		}
		select {
		case b.updates <- u:
		case <-b.done:
			return
		}
	}
}

func (b *localBackend) Updates() <-chan Update { return b.updates }

func (b *localBackend) Commit(o swipe.Outcome) error {
	if !b.sess.Commit(o) {
		return client.ErrDropped
	}
	return nil
}

func (b *localBackend) Pointer(kind string, x, y float64) error {
	return b.sess.Pointer(kind, x, y)
}

func (b *localBackend) Close() error {
	b.once.Do(func() {
		b.cancel()
		close(b.done)
	})
	return nil
}

// remoteBackend drives a server session over its WebSocket.
type remoteBackend struct {
	conn    *client.Conn
	updates chan Update
	done    chan struct{}
	mu      sync.Mutex // serializes writes
	once    sync.Once
}

// NewRemote dials a server session.
func NewRemote(ctx context.Context, c *client.Client, id string) (Backend, error) {
	conn, err := c.Dial(ctx, id)
	if err != nil {
		return nil, err
	}
	b := &remoteBackend{conn: conn, updates: make(chan Update, updateBuffer), done: make(chan struct{})}
	go b.pump()
	return b, nil
}

func (b *remoteBackend) pump() {
	defer close(b.updates)
	for {
		msg, err := b.conn.Next()
		if err != nil {
			select {
			case <-b.done:
			case b.updates <- Update{Err: err}:
			}
			return
		}
		var u Update
		switch {
		case msg.Info != nil:
			u.Info = msg.Info
		case msg.Frame != nil:
			u.Frame = msg.Frame
		case msg.Notice != nil:
			u.Notice = msg.Notice
		case msg.Accepted != nil:
			if *msg.Accepted {
				continue
			}
			u.Dropped = true
		case msg.Error != "":
			u.Err = errors.New(msg.Error)
		default:
			continue
		}
		select {
		case b.updates <- u:
		case <-b.done:
			return
		}
	}
}

func (b *remoteBackend) Updates() <-chan Update { return b.updates }

func (b *remoteBackend) Commit(o swipe.Outcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.Commit(o)
}

func (b *remoteBackend) Pointer(kind string, x, y float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn.Pointer(kind, x, y)
}

func (b *remoteBackend) Close() error {
	var err error
	b.once.Do(func() {
		close(b.done)
		b.mu.Lock()
		defer b.mu.Unlock()
		err = b.conn.Close()
	})
	return err
}
