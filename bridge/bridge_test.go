package bridge

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/devswarm/devswarm/bus"
	"github.com/devswarm/devswarm/snapshot"
	"github.com/devswarm/devswarm/state"
	"github.com/devswarm/devswarm/store"
)

type fakeSource struct {
	mu      sync.Mutex
	version int64
}

func (f *fakeSource) GetFullState(_ context.Context, _ int) (store.FullState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return store.FullState{Agents: map[string]state.Agent{}, Version: f.version}, nil
}

func (f *fakeSource) bump() {
	f.mu.Lock()
	f.version++
	f.mu.Unlock()
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recordingBroadcaster) Broadcast(frame []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
}

func (r *recordingBroadcaster) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func TestBridge_ForwardsAgentEventsVerbatim(t *testing.T) {
	b := bus.NewMemoryBus(true)
	source := &fakeSource{}
	assembler := snapshot.New(source, 20)
	rec := &recordingBroadcaster{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	br := New(assembler, b, rec, 50*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go br.Run(ctx)

	time.Sleep(20 * time.Millisecond) // allow the immediate poll to land

	if err := b.PublishAgentEvent(ctx, `{"type":"DELTA_UPDATE"}`); err != nil {
		t.Fatalf("PublishAgentEvent: %v", err)
	}

	deadline := time.After(time.Second)
	for {
		rec.mu.Lock()
		found := false
		for _, f := range rec.frames {
			if string(f) == `{"type":"DELTA_UPDATE"}` {
				found = true
			}
		}
		rec.mu.Unlock()
		if found {
			return
		}
		select {
		case <-deadline:
			t.Fatal("delta frame was not forwarded verbatim")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestBridge_DegradesToHeartbeatOnlyWhenBusUnavailable(t *testing.T) {
	b := bus.NewMemoryBus(false)
	source := &fakeSource{}
	assembler := snapshot.New(source, 20)
	rec := &recordingBroadcaster{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	br := New(assembler, b, rec, 30*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go br.Run(ctx)

	time.Sleep(20 * time.Millisecond) // allow the immediate poll to land before the change
	source.bump()
	time.Sleep(150 * time.Millisecond)

	if rec.count() < 2 {
		t.Fatalf("expected at least 2 heartbeat broadcasts (initial + change), got %d", rec.count())
	}
}
