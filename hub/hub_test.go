package hub

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func newTestHub(t *testing.T) (*Hub, func()) {
	t.Helper()
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	done := make(chan struct{})
	go h.Run(done)
	t.Cleanup(func() { close(done) })
	return h, func() {}
}

func TestHub_BroadcastDeliversToAllClients(t *testing.T) {
	h, _ := newTestHub(t)

	c1 := h.NewClient(8)
	c2 := h.NewClient(8)
	h.Register(c1)
	h.Register(c2)

	waitForCount(t, h, 2)

	h.Broadcast([]byte(`{"type":"STATE_UPDATE"}`))

	for _, c := range []*Client{c1, c2} {
		select {
		case frame := <-c.send:
			if string(frame) != `{"type":"STATE_UPDATE"}` {
				t.Errorf("unexpected frame: %s", frame)
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestHub_EvictsClientAtCapacity(t *testing.T) {
	h, _ := newTestHub(t)

	slow := h.NewClient(1) // capacity 1, never drained
	h.Register(slow)
	waitForCount(t, h, 1)

	// Fill the one slot, then force a second broadcast that cannot enqueue.
	h.Broadcast([]byte("first"))
	time.Sleep(50 * time.Millisecond)
	h.Broadcast([]byte("second"))
	time.Sleep(50 * time.Millisecond)

	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount = %d, want 0 (slow client evicted)", h.ClientCount())
	}
	if h.Evictions() != 1 {
		t.Fatalf("Evictions = %d, want 1", h.Evictions())
	}

	// send queue must be closed exactly once: a second read returns
	// zero-value, ok=false without panicking.
	if _, ok := <-slow.send; ok {
		// one pending frame may still be in the buffer; drain once more
		_, ok = <-slow.send
		if ok {
			t.Fatal("expected send channel to be closed after eviction")
		}
	}
}

func TestHub_BroadcastContinuesAfterEviction(t *testing.T) {
	h, _ := newTestHub(t)

	slow := h.NewClient(1)
	fast := h.NewClient(8)
	h.Register(slow)
	h.Register(fast)
	waitForCount(t, h, 2)

	h.Broadcast([]byte("first"))
	time.Sleep(50 * time.Millisecond)
	h.Broadcast([]byte("second")) // slow's queue is full, evicted here

	select {
	case <-fast.send:
	case <-time.After(time.Second):
		t.Fatal("fast client did not receive first broadcast")
	}
	select {
	case frame := <-fast.send:
		if string(frame) != "second" {
			t.Errorf("fast client got %q, want second", frame)
		}
	case <-time.After(time.Second):
		t.Fatal("fast client did not receive second broadcast")
	}
}

func waitForCount(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("ClientCount never reached %d", n)
}
