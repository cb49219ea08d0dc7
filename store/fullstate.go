package store

import (
	"context"

	"github.com/devswarm/devswarm/internal/errs"
	"github.com/devswarm/devswarm/state"
)

// FullState is the logical read performed by GetFullState: agents, a
// bounded window of recent messages, all tasks, and the version that was
// current at read time.
type FullState struct {
	Agents   map[string]state.Agent
	Messages []state.Message
	Tasks    []state.Task
	Version  int64
}

// GetFullState reads agents, recent messages (bounded by messagesLimit),
// all tasks with their assignees, and the current version in a single
// logical read. The returned version was valid at read time and the
// contained entities are at least as fresh as that version, since callers
// bump the version only after their own write has committed.
func (s *Store) GetFullState(ctx context.Context, messagesLimit int) (FullState, error) {
	agents, err := s.ListAgents(ctx)
	if err != nil {
		return FullState{}, err
	}
	messages, err := s.ListMessages(ctx, messagesLimit, "")
	if err != nil {
		return FullState{}, err
	}
	tasks, err := s.ListTasks(ctx, "")
	if err != nil {
		return FullState{}, err
	}
	version, err := s.Version(ctx)
	if err != nil {
		return FullState{}, errs.Internal("read version for full state", err)
	}
	return FullState{Agents: agents, Messages: messages, Tasks: tasks, Version: version}, nil
}
