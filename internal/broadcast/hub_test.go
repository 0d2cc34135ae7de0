package broadcast

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courtside/internal/domain"
)

func startHub(t *testing.T, queueSize int) *Hub {
	t.Helper()
	hub := NewHub(queueSize, zerolog.Nop())
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func snapshotEvent(seq int) domain.Event {
	return domain.Event{
		Type:      domain.EventSnapshot,
		Timestamp: time.Now(),
		Data:      fmt.Sprintf("snapshot-%d", seq),
	}
}

func recvEvent(t *testing.T, sub *Subscriber) domain.Event {
	t.Helper()
	select {
	case ev := <-sub.C:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.Event{}
	}
}

func TestSubscriberReceivesBroadcast(t *testing.T) {
	hub := startHub(t, 16)
	sub := hub.Subscribe()
	defer sub.Close()

	hub.Broadcast(snapshotEvent(1))

	ev := recvEvent(t, sub)
	assert.Equal(t, domain.EventSnapshot, ev.Type)
	assert.Equal(t, "snapshot-1", ev.Data)
}

func TestAllSubscribersReceiveEveryEvent(t *testing.T) {
	hub := startHub(t, 64)

	subs := make([]*Subscriber, 5)
	for i := range subs {
		subs[i] = hub.Subscribe()
		defer subs[i].Close()
	}

	for seq := 1; seq <= 10; seq++ {
		hub.Broadcast(snapshotEvent(seq))
	}

	for _, sub := range subs {
		for seq := 1; seq <= 10; seq++ {
			ev := recvEvent(t, sub)
			assert.Equal(t, fmt.Sprintf("snapshot-%d", seq), ev.Data)
		}
	}
}

func TestSlowConsumerDoesNotBlockOthers(t *testing.T) {
	hub := startHub(t, 64)

	// 50 subscribers, one of which never drains its queue
	slow := hub.Subscribe()
	defer slow.Close()

	fast := make([]*Subscriber, 49)
	for i := range fast {
		fast[i] = hub.Subscribe()
		defer fast[i].Close()
	}

	const total = 20
	done := make(chan struct{})
	go func() {
		for seq := 1; seq <= total; seq++ {
			hub.Broadcast(snapshotEvent(seq))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("broadcasting blocked on a slow consumer")
	}

	// Every draining subscriber sees every event in order
	for _, sub := range fast {
		for seq := 1; seq <= total; seq++ {
			ev := recvEvent(t, sub)
			assert.Equal(t, fmt.Sprintf("snapshot-%d", seq), ev.Data)
		}
	}
}

func TestSlowConsumerGetsNewestEvent(t *testing.T) {
	hub := NewHub(1, zerolog.Nop())
	go hub.Run()
	t.Cleanup(hub.Stop)

	slow := hub.Subscribe()
	defer slow.Close()

	hub.Broadcast(snapshotEvent(1))
	require.Eventually(t, func() bool {
		return len(slow.C) == 1
	}, 2*time.Second, 5*time.Millisecond)

	// The queue is full: the older buffered event gives way
	hub.Broadcast(snapshotEvent(2))

	require.Eventually(t, func() bool {
		select {
		case ev := <-slow.C:
			return ev.Data == "snapshot-2"
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}

func TestCloseAfterStopReturns(t *testing.T) {
	hub := NewHub(16, zerolog.Nop())
	go hub.Run()

	sub := hub.Subscribe()
	hub.Stop()

	// Connection teardown can outlive the hub; releasing the handle
	// must not park the caller once the loop is gone.
	closed := make(chan struct{})
	go func() {
		sub.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked after hub stop")
	}

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.C:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSubscribeAfterStopReturnsClosedHandle(t *testing.T) {
	hub := NewHub(16, zerolog.Nop())
	go hub.Run()
	hub.Stop()

	done := make(chan *Subscriber, 1)
	go func() {
		done <- hub.Subscribe()
	}()

	select {
	case sub := <-done:
		_, ok := <-sub.C
		assert.False(t, ok)
		sub.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe blocked after hub stop")
	}
}

func TestCloseUnsubscribes(t *testing.T) {
	hub := startHub(t, 16)

	sub := hub.Subscribe()
	sub.Close()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.C:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)

	// Broadcasting after the unsubscribe must not panic
	hub.Broadcast(snapshotEvent(1))
}
