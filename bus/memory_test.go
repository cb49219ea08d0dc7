package bus

import (
	"context"
	"testing"
	"time"
)

func TestMemoryBus_StateChangedFanOut(t *testing.T) {
	b := NewMemoryBus(true)
	ctx := context.Background()

	ch, err := b.SubscribeStateChanged(ctx)
	if err != nil {
		t.Fatalf("SubscribeStateChanged: %v", err)
	}
	if ch == nil {
		t.Fatal("expected a live channel when available")
	}

	if err := b.PublishStateChanged(ctx); err != nil {
		t.Fatalf("PublishStateChanged: %v", err)
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("did not receive state_changed signal")
	}
}

func TestMemoryBus_DegradedSubscribeReturnsNil(t *testing.T) {
	b := NewMemoryBus(false)
	ch, err := b.SubscribeStateChanged(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ch != nil {
		t.Fatal("expected nil channel when bus unavailable")
	}
}

func TestMemoryBus_TaskQueueAckRemovesPending(t *testing.T) {
	b := NewMemoryBus(true)
	ctx := context.Background()

	if err := b.EnqueueTask(ctx, `{"goal":"research"}`); err != nil {
		t.Fatalf("EnqueueTask: %v", err)
	}

	deliveries, err := b.ConsumeTasks(ctx, "worker-1")
	if err != nil {
		t.Fatalf("ConsumeTasks: %v", err)
	}
	if len(deliveries) != 1 {
		t.Fatalf("got %d deliveries, want 1", len(deliveries))
	}

	if err := b.Ack(ctx, deliveries[0].ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	remaining, err := b.ConsumeTasks(ctx, "worker-1")
	if err != nil {
		t.Fatalf("ConsumeTasks after ack: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("got %d remaining deliveries after ack, want 0", len(remaining))
	}
}

func TestMemoryBus_BecomesAvailableAfterOutage(t *testing.T) {
	b := NewMemoryBus(false)
	ctx := context.Background()

	if ch, _ := b.SubscribeStateChanged(ctx); ch != nil {
		t.Fatal("expected nil channel while degraded")
	}

	b.SetAvailable(true)

	ch, err := b.SubscribeStateChanged(ctx)
	if err != nil {
		t.Fatalf("SubscribeStateChanged after recovery: %v", err)
	}
	if ch == nil {
		t.Fatal("expected a live channel after recovery")
	}
}
