// Package bridge is the C7 state bridge: it reconciles push events
// (pub/sub) with a pull heartbeat (version poll of the store) and forwards
// both delta frames and freshly-assembled snapshots to the hub. Grounded on
// original_source/backend/internal/state/poller.go.
package bridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/devswarm/devswarm/bus"
	"github.com/devswarm/devswarm/snapshot"
)

// Broadcaster is the subset of hub.Hub the bridge needs.
type Broadcaster interface {
	Broadcast(frame []byte)
}

// Bridge holds the last broadcast version; touched only by its own loop.
type Bridge struct {
	assembler   *snapshot.Assembler
	bus         bus.Bus
	broadcaster Broadcaster
	heartbeat   time.Duration
	logger      *slog.Logger

	lastVersion int64
}

// New returns a Bridge with lastVersion initialized to -1, so the very
// first poll always broadcasts.
func New(assembler *snapshot.Assembler, b bus.Bus, broadcaster Broadcaster, heartbeat time.Duration, logger *slog.Logger) *Bridge {
	return &Bridge{
		assembler:   assembler,
		bus:         b,
		broadcaster: broadcaster,
		heartbeat:   heartbeat,
		logger:      logger,
		lastVersion: -1,
	}
}

// Run blocks until ctx is cancelled. It emits one snapshot immediately,
// then attempts to subscribe to both channels; on success it runs the
// dual-source loop, on failure (bus unavailable) it degrades to the
// heartbeat-only loop for the remainder of the process, per the open
// question in the spec about resubscription policy being
// implementation-defined.
func (b *Bridge) Run(ctx context.Context) {
	b.poll(ctx)

	stateChanged, err := b.bus.SubscribeStateChanged(ctx)
	if err != nil {
		b.logger.Warn("subscribe state_changed failed, degrading to heartbeat-only", "error", err)
		b.heartbeatOnlyLoop(ctx)
		return
	}
	agentEvents, err := b.bus.SubscribeAgentEvents(ctx)
	if err != nil {
		b.logger.Warn("subscribe agent_events failed, degrading to heartbeat-only", "error", err)
		b.heartbeatOnlyLoop(ctx)
		return
	}
	if stateChanged == nil || agentEvents == nil {
		b.logger.Warn("event bus unavailable at startup, degrading to heartbeat-only")
		b.heartbeatOnlyLoop(ctx)
		return
	}

	b.dualSourceLoop(ctx, stateChanged, agentEvents)
}

func (b *Bridge) dualSourceLoop(ctx context.Context, stateChanged <-chan struct{}, agentEvents <-chan string) {
	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-stateChanged:
			if !ok {
				return
			}
			b.poll(ctx)
		case payload, ok := <-agentEvents:
			if !ok {
				return
			}
			b.broadcaster.Broadcast([]byte(payload))
		case <-ticker.C:
			b.poll(ctx)
		}
	}
}

func (b *Bridge) heartbeatOnlyLoop(ctx context.Context) {
	ticker := time.NewTicker(b.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.poll(ctx)
		}
	}
}

// poll fetches a snapshot and broadcasts it only if the version advanced,
// per the spec's snapshot-on-change policy.
func (b *Bridge) poll(ctx context.Context) {
	frame, version, err := b.assembler.BuildFrame(ctx)
	if err != nil {
		b.logger.Error("assemble snapshot", "error", err)
		return
	}
	if version == b.lastVersion {
		return
	}
	b.broadcaster.Broadcast(frame)
	b.lastVersion = version
}
