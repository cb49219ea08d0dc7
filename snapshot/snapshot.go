// Package snapshot is the C3 snapshot assembler: it wraps the store's full
// state read and produces the STATE_UPDATE wire frame. It does not alter
// store contents; multiple calls at the same version may return
// byte-identical output but are not required to.
package snapshot

import (
	"context"
	"encoding/json"

	"github.com/devswarm/devswarm/state"
	"github.com/devswarm/devswarm/store"
)

// Source is the subset of store.Store the assembler needs, narrowed to an
// interface so the bridge and tests can substitute a fake.
type Source interface {
	GetFullState(ctx context.Context, messagesLimit int) (store.FullState, error)
}

// Assembler builds STATE_UPDATE frames from a Source.
type Assembler struct {
	source        Source
	messagesLimit int
}

// New returns an Assembler reading at most messagesLimit recent messages per
// snapshot.
func New(source Source, messagesLimit int) *Assembler {
	return &Assembler{source: source, messagesLimit: messagesLimit}
}

// Build reads the current full state and returns the STATE_UPDATE struct
// together with its version, so callers can compare against a cursor
// without re-parsing JSON.
func (a *Assembler) Build(ctx context.Context) (state.StateUpdate, error) {
	full, err := a.source.GetFullState(ctx, a.messagesLimit)
	if err != nil {
		return state.StateUpdate{}, err
	}
	return state.StateUpdate{
		Type:     state.FrameStateUpdate,
		Agents:   full.Agents,
		Messages: full.Messages,
		Tasks:    full.Tasks,
		Version:  full.Version,
	}, nil
}

// BuildFrame is Build followed by marshaling to the standalone JSON text
// frame the hub broadcasts.
func (a *Assembler) BuildFrame(ctx context.Context) ([]byte, int64, error) {
	su, err := a.Build(ctx)
	if err != nil {
		return nil, 0, err
	}
	b, err := json.Marshal(su)
	if err != nil {
		return nil, 0, err
	}
	return b, su.Version, nil
}
