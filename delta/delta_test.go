package delta

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/devswarm/devswarm/bus"
	"github.com/devswarm/devswarm/state"
)

func TestPublish_EmitsDeltaThenStateChanged(t *testing.T) {
	b := bus.NewMemoryBus(true)
	ctx := context.Background()

	events, err := b.SubscribeAgentEvents(ctx)
	if err != nil {
		t.Fatalf("SubscribeAgentEvents: %v", err)
	}
	changed, err := b.SubscribeStateChanged(ctx)
	if err != nil {
		t.Fatalf("SubscribeStateChanged: %v", err)
	}

	p := New(b, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.Publish(ctx, state.CategoryAgents, "a1", state.Agent{ID: "a1", Name: "A1"})

	select {
	case payload := <-events:
		var frame state.DeltaUpdate
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			t.Fatalf("unmarshal delta frame: %v", err)
		}
		if frame.Type != state.FrameDeltaUpdate || frame.Category != string(state.CategoryAgents) || frame.ID != "a1" {
			t.Errorf("unexpected frame: %+v", frame)
		}
	case <-time.After(time.Second):
		t.Fatal("did not receive agent_events payload")
	}

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("did not receive state_changed signal")
	}
}
