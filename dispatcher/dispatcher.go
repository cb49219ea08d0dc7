// Package dispatcher is the C9 idle-agent dispatcher: on a short cadence it
// finds idle agents with pending assigned tasks and drives each through the
// task status machine with per-agent exclusion. Absorbed from the teacher's
// agent/team.go pickMember selection pattern and agent/runtime.go's
// processTask/completeTask status-transition shape, generalized from "one
// runtime advances its own task" to "the dispatcher advances any idle
// agent's tasks under a sharded lock".
package dispatcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/devswarm/devswarm/delta"
	"github.com/devswarm/devswarm/orchestration"
	"github.com/devswarm/devswarm/state"
	"github.com/devswarm/devswarm/store"
)

// Dispatcher runs the idle-agent drain cycle.
type Dispatcher struct {
	store        *store.Store
	delta        *delta.Publisher
	orchestrator orchestration.Orchestrator
	interval     time.Duration
	logger       *slog.Logger
	locks        *agentLocks
}

// New returns a Dispatcher. interval is the cycle cadence (default 2s).
func New(s *store.Store, d *delta.Publisher, orch orchestration.Orchestrator, interval time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{store: s, delta: d, orchestrator: orch, interval: interval, logger: logger, locks: newAgentLocks()}
}

// Run executes cycles on the configured interval until ctx is cancelled.
// The dispatcher is cancelable between tasks: an in-flight agent-execution
// step is allowed to complete but no new one starts after cancellation.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.cycle(ctx)
		}
	}
}

// cycle is one full pass: snapshot idle agents, try-lock each, drive its
// pending tasks, release.
func (d *Dispatcher) cycle(ctx context.Context) {
	idleIDs, err := d.store.ListIdleAgentIDs(ctx)
	if err != nil {
		d.logger.Error("list idle agents", "error", err)
		return
	}

	for _, agentID := range idleIDs {
		if ctx.Err() != nil {
			return
		}
		release, ok := d.locks.tryAcquire(agentID)
		if !ok {
			d.logger.Debug("agent lock contended, skipping", "agent", agentID)
			continue
		}
		d.drainAgent(ctx, agentID)
		release()
	}
}

// drainAgent fetches the agent's Backlog tasks and drives each through the
// state machine in turn. Called while holding agentID's advisory lock.
func (d *Dispatcher) drainAgent(ctx context.Context, agentID string) {
	tasks, err := d.store.ListTasksByAgentAndStatus(ctx, agentID, state.TaskBacklog)
	if err != nil {
		d.logger.Error("list backlog tasks", "agent", agentID, "error", err)
		return
	}
	for _, t := range tasks {
		if ctx.Err() != nil {
			return
		}
		d.drive(ctx, agentID, t)
	}
}

// drive moves one task through Backlog -> In Progress -> (Review -> Done |
// Blocked), persisting, bumping the version, and publishing a delta at
// every transition, per spec §4.9.
func (d *Dispatcher) drive(ctx context.Context, agentID string, t state.Task) {
	if !d.transition(ctx, t.ID, state.TaskInProgress) {
		return
	}
	d.setAgentStatus(ctx, agentID, state.AgentWorking, t.Title)

	result, err := d.orchestrator.Execute(ctx, t.Title, agentID)

	if err != nil || !result.Success {
		d.logger.Warn("agent execution failed", "agent", agentID, "task", t.ID, "error", err)
		d.transition(ctx, t.ID, state.TaskBlocked)
		if logErr := d.store.LogActivity(ctx, agentID, "task_blocked", map[string]any{"task": t.ID}); logErr != nil {
			d.logger.Error("log activity", "error", logErr)
		}
		d.emitSummary(ctx, agentID, t, "blocked: "+errString(err))
		d.setAgentStatus(ctx, agentID, state.AgentIdle, "")
		return
	}

	if !d.transition(ctx, t.ID, state.TaskReview) {
		d.setAgentStatus(ctx, agentID, state.AgentIdle, "")
		return
	}
	if !d.transition(ctx, t.ID, state.TaskDone) {
		d.setAgentStatus(ctx, agentID, state.AgentIdle, "")
		return
	}
	d.emitSummary(ctx, agentID, t, result.Summary)
	d.setAgentStatus(ctx, agentID, state.AgentIdle, "")
}

// transition persists a task status change, bumps the version, and
// publishes a delta. It returns false (logging the failure) if the write
// itself failed, so the caller can stop driving this task.
func (d *Dispatcher) transition(ctx context.Context, taskID string, next state.TaskStatus) bool {
	t, err := d.store.UpdateTaskStatus(ctx, taskID, next)
	if err != nil {
		d.logger.Error("task transition failed", "task", taskID, "to", next, "error", err)
		return false
	}
	if _, err := d.store.BumpVersion(ctx); err != nil {
		d.logger.Error("bump version after task transition", "error", err)
	}
	d.delta.Publish(ctx, state.CategoryTasks, t.ID, t)
	return true
}

func (d *Dispatcher) setAgentStatus(ctx context.Context, agentID string, status state.AgentStatus, currentTask string) {
	patch := state.AgentPatch{Status: &status, CurrentTask: &currentTask}
	a, err := d.store.UpdateAgent(ctx, agentID, patch)
	if err != nil {
		d.logger.Error("update agent status", "agent", agentID, "error", err)
		return
	}
	if _, err := d.store.BumpVersion(ctx); err != nil {
		d.logger.Error("bump version after agent status update", "error", err)
	}
	d.delta.Publish(ctx, state.CategoryAgents, a.ID, a)
}

func (d *Dispatcher) emitSummary(ctx context.Context, agentID string, t state.Task, summary string) {
	msg, err := d.store.CreateMessage(ctx, agentID, "orchestrator", summary, "status_report")
	if err != nil {
		d.logger.Error("emit summary message", "agent", agentID, "task", t.ID, "error", err)
		return
	}
	if _, err := d.store.BumpVersion(ctx); err != nil {
		d.logger.Error("bump version after summary message", "error", err)
	}
	d.delta.Publish(ctx, state.CategoryMessages, msg.ID, msg)
}

func errString(err error) string {
	if err == nil {
		return "unsuccessful"
	}
	return err.Error()
}
