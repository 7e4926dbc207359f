package realtime

import (
	"errors"
	"testing"

	"github.com/shaiso/Fabrika/internal/domain"
)

type fakeSender struct {
	events  []domain.Event
	failErr error
	closed  bool
}

func (f *fakeSender) WriteJSON(v any) error {
	if f.failErr != nil {
		return f.failErr
	}
	ev, ok := v.(domain.Event)
	if !ok {
		return errors.New("unexpected payload type")
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeSender) Close() error {
	f.closed = true
	return nil
}

func TestSendFansOutToAllConnections(t *testing.T) {
	hub := NewHub(nil)
	first := &fakeSender{}
	second := &fakeSender{}
	hub.add("user-1", first)
	hub.add("user-1", second)

	ev := domain.Event{Type: domain.EventTaskStarted}
	delivered := hub.Send("user-1", ev)

	if delivered != 2 {
		t.Fatalf("delivered = %d, want 2", delivered)
	}
	for i, s := range []*fakeSender{first, second} {
		if len(s.events) != 1 {
			t.Fatalf("sender %d got %d events, want 1", i, len(s.events))
		}
		if s.events[0].Type != domain.EventTaskStarted {
			t.Errorf("sender %d event type = %s", i, s.events[0].Type)
		}
	}
}

func TestSendNoConnectionsIsNotAnError(t *testing.T) {
	hub := NewHub(nil)

	delivered := hub.Send("nobody", domain.Event{Type: domain.EventTaskCompleted})
	if delivered != 0 {
		t.Fatalf("delivered = %d, want 0", delivered)
	}
}

func TestSendIsolatedPerUser(t *testing.T) {
	hub := NewHub(nil)
	mine := &fakeSender{}
	theirs := &fakeSender{}
	hub.add("user-1", mine)
	hub.add("user-2", theirs)

	hub.Send("user-1", domain.Event{Type: domain.EventTaskStarted})

	if len(mine.events) != 1 {
		t.Fatalf("user-1 got %d events, want 1", len(mine.events))
	}
	if len(theirs.events) != 0 {
		t.Fatalf("user-2 got %d events, want 0", len(theirs.events))
	}
}

func TestSendDropsFailedConnection(t *testing.T) {
	hub := NewHub(nil)
	healthy := &fakeSender{}
	broken := &fakeSender{failErr: errors.New("broken pipe")}
	hub.add("user-1", healthy)
	hub.add("user-1", broken)

	delivered := hub.Send("user-1", domain.Event{Type: domain.EventTaskStarted})
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
	if !broken.closed {
		t.Error("broken connection was not closed")
	}
	if got := hub.Connections("user-1"); got != 1 {
		t.Fatalf("connections after drop = %d, want 1", got)
	}

	// Повторная отправка идёт только в живое соединение.
	hub.Send("user-1", domain.Event{Type: domain.EventTaskCompleted})
	if len(healthy.events) != 2 {
		t.Fatalf("healthy sender got %d events, want 2", len(healthy.events))
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	hub := NewHub(nil)
	ws := &fakeSender{}
	c := hub.add("user-1", ws)

	hub.remove("user-1", c)
	hub.remove("user-1", c)

	if got := hub.Connections("user-1"); got != 0 {
		t.Fatalf("connections = %d, want 0", got)
	}
}
