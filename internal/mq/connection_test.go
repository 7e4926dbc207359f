package mq

import (
	"log/slog"
	"testing"
)

// Пул consumers подписывается на reconnect независимо: один разрыв
// соединения должен перезапустить каждого, а не первого успевшего.
func TestReconnectNotifyFansOutToAllSubscribers(t *testing.T) {
	c := &Connection{logger: slog.Default(), closedCh: make(chan struct{})}

	subs := make([]<-chan struct{}, 0, 3)
	for i := 0; i < 3; i++ {
		subs = append(subs, c.ReconnectNotify())
	}

	c.notifyReconnected()

	for i, sub := range subs {
		select {
		case <-sub:
		default:
			t.Fatalf("subscriber %d missed the reconnect signal", i)
		}
	}
}

func TestReconnectNotifyCollapsesUnreadSignals(t *testing.T) {
	c := &Connection{logger: slog.Default(), closedCh: make(chan struct{})}
	sub := c.ReconnectNotify()

	c.notifyReconnected()
	c.notifyReconnected()

	<-sub
	select {
	case <-sub:
		t.Fatal("unread signals must collapse into one")
	default:
	}
}
