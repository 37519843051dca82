package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// MockSink is a test implementation of Sink
type MockSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (m *MockSink) Write(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *MockSink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// MockClock is a test implementation of Clock
type MockClock struct {
	now time.Time
}

func (m *MockClock) Now() time.Time {
	return m.now
}

// MockIDGen is a test implementation of IDGenerator
type MockIDGen struct {
	id string
}

func (m *MockIDGen) Generate() string {
	return m.id
}

func TestService_Log(t *testing.T) {
	sink := &MockSink{}
	clock := &MockClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	idgen := &MockIDGen{id: "audit-123"}

	svc := NewService(sink, zerolog.Nop(), 10, WithClock(clock), WithIDGenerator(idgen))

	svc.Log(Event{
		Action:       ActionEvicted,
		ResourceType: ResourceTypeSession,
		ResourceID:   "session-1",
		Details:      map[string]any{"idle": "30m"},
	})

	// Close drains the queue.
	svc.Close()

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event := events[0]

	if event.Action != ActionEvicted {
		t.Errorf("expected action %s, got %s", ActionEvicted, event.Action)
	}
	if event.ID != "audit-123" {
		t.Errorf("expected ID audit-123, got %s", event.ID)
	}
	if !event.OccurredAt.Equal(clock.now) {
		t.Errorf("expected occurred_at %v, got %v", clock.now, event.OccurredAt)
	}
	if event.Actor != "system" || event.Status != StatusSuccess {
		t.Errorf("defaults not applied: actor=%q status=%q", event.Actor, event.Status)
	}
}

func TestService_Redaction(t *testing.T) {
	sink := &MockSink{}
	svc := NewService(sink, zerolog.Nop(), 10)

	svc.Log(Event{
		Action:       ActionReloaded,
		ResourceType: ResourceTypeCatalog,
		Details: map[string]any{
			"path":   "/etc/pawswipe/pets.yaml",
			"secret": "hunter2",
			"store":  map[string]any{"dsn": "postgres://u:p@db/x"},
		},
	})
	svc.Close()

	events := sink.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	d := events[0].Details
	if d["secret"] != "[REDACTED]" {
		t.Errorf("secret not redacted: %v", d["secret"])
	}
	if nested := d["store"].(map[string]any); nested["dsn"] != "[REDACTED]" {
		t.Errorf("nested dsn not redacted: %v", nested["dsn"])
	}
	if d["path"] != "/etc/pawswipe/pets.yaml" {
		t.Errorf("path should not be redacted: %v", d["path"])
	}
}

func TestService_SinkErrorDoesNotStopWorker(t *testing.T) {
	sink := &MockSink{err: errors.New("disk full")}
	svc := NewService(sink, zerolog.Nop(), 10)
	svc.Log(Event{Action: ActionDeleted, ResourceType: ResourceTypeSession})
	svc.Log(Event{Action: ActionDeleted, ResourceType: ResourceTypeSession})
	if err := svc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestService_LogAfterCloseIsDropped(t *testing.T) {
	sink := &MockSink{}
	svc := NewService(sink, zerolog.Nop(), 10)
	svc.Close()
	svc.Close()
	svc.Log(Event{Action: ActionCreated})

	if n := len(sink.Events()); n != 0 {
		t.Errorf("expected no events after Close, got %d", n)
	}
}

func TestRingSink_Recent(t *testing.T) {
	ring := NewRingSink(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		ring.Write(context.Background(), Event{ID: id})
	}

	got := ring.Recent(0)
	want := []string{"d", "c", "b"}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}

	if got := ring.Recent(1); len(got) != 1 || got[0].ID != "d" {
		t.Errorf("Recent(1) = %+v", got)
	}
}

func TestRingSink_PartiallyFilled(t *testing.T) {
	ring := NewRingSink(5)
	ring.Write(context.Background(), Event{ID: "a"})
	ring.Write(context.Background(), Event{ID: "b"})

	got := ring.Recent(10)
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Errorf("unexpected events: %+v", got)
	}
}

func TestMultiSink(t *testing.T) {
	a, b := &MockSink{}, &MockSink{err: errors.New("boom")}
	err := MultiSink{a, b}.Write(context.Background(), Event{ID: "x"})
	if err == nil {
		t.Error("expected error from failing sink")
	}
	if len(a.Events()) != 1 {
		t.Error("healthy sink should still receive the event")
	}
}
