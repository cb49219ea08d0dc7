// Package delta is the C4 delta publisher: after any mutation that bumped
// the version, it publishes a DELTA_UPDATE frame on agent_events and then an
// empty signal on state_changed. Publishes are best-effort; a failed
// publish does not roll back the mutation that already committed.
package delta

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/devswarm/devswarm/bus"
	"github.com/devswarm/devswarm/state"
)

// Publisher publishes delta frames over a bus.Bus.
type Publisher struct {
	bus    bus.Bus
	logger *slog.Logger
}

// New returns a Publisher. logger must not be nil.
func New(b bus.Bus, logger *slog.Logger) *Publisher {
	return &Publisher{bus: b, logger: logger}
}

// Publish builds and publishes a DELTA_UPDATE for the given entity, then
// signals state_changed. Failures are logged and swallowed: the heartbeat
// in the bridge recovers any lost signal, and the mutation that triggered
// this publish has already committed.
func (p *Publisher) Publish(ctx context.Context, category state.DeltaCategory, id string, data any) {
	frame := state.DeltaUpdate{
		Type:     state.FrameDeltaUpdate,
		Category: string(category),
		ID:       id,
		Data:     data,
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		p.logger.Error("marshal delta frame", "category", category, "id", id, "error", err)
		return
	}
	if err := p.bus.PublishAgentEvent(ctx, string(payload)); err != nil {
		p.logger.Warn("publish agent event failed, relying on heartbeat", "category", category, "id", id, "error", err)
	}
	if err := p.bus.PublishStateChanged(ctx); err != nil {
		p.logger.Warn("publish state_changed failed, relying on heartbeat", "error", err)
	}
}
