package bus

import (
	"context"
	"strconv"
	"sync"
)

// MemoryBus is an in-process Bus implementation, adapted from the teacher's
// comms.InMemoryBus. It serves two roles: a test double, and the degraded
// path when the real event bus cannot be reached — per spec §4.2, its
// publishes are silent no-ops beyond fan-out to whatever subscribers already
// exist in this process, and a fresh subscribe after the bus is known to be
// unreachable returns (nil, nil) rather than ever blocking.
type MemoryBus struct {
	mu              sync.Mutex
	stateChangedSub []chan struct{}
	agentEventsSub  []chan string
	stream          []Delivery
	pending         map[string]bool
	nextSeq         int
	available       bool
}

// NewMemoryBus returns a MemoryBus. available controls whether Subscribe
// calls return a live channel (true) or (nil, nil) to simulate an outage
// (false).
func NewMemoryBus(available bool) *MemoryBus {
	return &MemoryBus{pending: make(map[string]bool), available: available}
}

func (b *MemoryBus) PublishStateChanged(_ context.Context) error {
	b.mu.Lock()
	subs := append([]chan struct{}{}, b.stateChangedSub...)
	b.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) PublishAgentEvent(_ context.Context, payload string) error {
	b.mu.Lock()
	subs := append([]chan string{}, b.agentEventsSub...)
	b.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) SubscribeStateChanged(_ context.Context) (<-chan struct{}, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.available {
		return nil, nil
	}
	ch := make(chan struct{}, 16)
	b.stateChangedSub = append(b.stateChangedSub, ch)
	return ch, nil
}

func (b *MemoryBus) SubscribeAgentEvents(_ context.Context) (<-chan string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.available {
		return nil, nil
	}
	ch := make(chan string, 16)
	b.agentEventsSub = append(b.agentEventsSub, ch)
	return ch, nil
}

func (b *MemoryBus) EnqueueTask(_ context.Context, payload string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSeq++
	id := strconv.Itoa(b.nextSeq)
	b.stream = append(b.stream, Delivery{ID: id, Payload: payload})
	b.pending[id] = true
	return nil
}

func (b *MemoryBus) EnsureConsumerGroup(_ context.Context) error { return nil }

func (b *MemoryBus) ConsumeTasks(_ context.Context, _ string) ([]Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Delivery
	for _, d := range b.stream {
		if b.pending[d.ID] {
			out = append(out, d)
		}
	}
	return out, nil
}

func (b *MemoryBus) Ack(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, id)
	return nil
}

func (b *MemoryBus) Close() error { return nil }

// SetAvailable flips the simulated outage state, used by tests exercising
// subscription resilience (spec property 9).
func (b *MemoryBus) SetAvailable(available bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.available = available
}
