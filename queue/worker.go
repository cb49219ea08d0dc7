// Package queue is the C8 task queue worker: it joins the task_queue
// stream's consumer group, invokes the external orchestration collaborator
// for each delivery, and acknowledges. Grounded on
// original_source/backend/internal/cache/redis.go's EnqueueTask/
// CreateConsumerGroup and spec §4.8; the Python worker in
// original_source/ai-engine lives outside this core per spec §1, so only
// the consumption shape is carried forward.
package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/devswarm/devswarm/bus"
	"github.com/devswarm/devswarm/orchestration"
	"github.com/devswarm/devswarm/store"
)

// Goal is the payload shape carried on the task_queue stream.
type Goal struct {
	Goal   string `json:"goal"`
	Target string `json:"target,omitempty"`
}

// Worker reads deliveries from the stream and hands each to the
// orchestration collaborator.
type Worker struct {
	bus          bus.Bus
	orchestrator orchestration.Orchestrator
	store        *store.Store
	consumerName string
	logger       *slog.Logger
}

// New returns a Worker identified on the stream as consumerName.
func New(b bus.Bus, orch orchestration.Orchestrator, s *store.Store, consumerName string, logger *slog.Logger) *Worker {
	return &Worker{bus: b, orchestrator: orch, store: s, consumerName: consumerName, logger: logger}
}

// Run joins the consumer group (auto-creating it if missing) and processes
// deliveries until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if err := w.bus.EnsureConsumerGroup(ctx); err != nil {
		w.logger.Error("ensure consumer group", "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		deliveries, err := w.bus.ConsumeTasks(ctx, w.consumerName)
		if err != nil {
			w.logger.Error("consume tasks", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if len(deliveries) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(200 * time.Millisecond):
			}
			continue
		}

		for _, d := range deliveries {
			w.process(ctx, d)
		}
	}
}

// process parses the payload, invokes the orchestration collaborator, and
// always acknowledges — on orchestration failure the delivery is still
// acked and an activity entry is recorded; the goal producer owns retry
// policy, not this worker.
func (w *Worker) process(ctx context.Context, d bus.Delivery) {
	var goal Goal
	if err := json.Unmarshal([]byte(d.Payload), &goal); err != nil {
		w.logger.Error("parse task queue payload", "id", d.ID, "error", err)
		w.ack(ctx, d.ID)
		return
	}

	result, err := w.orchestrator.Execute(ctx, goal.Goal, goal.Target)
	if err != nil || !result.Success {
		w.logger.Warn("orchestration failed", "id", d.ID, "goal", goal.Goal, "error", err)
		if logErr := w.store.LogActivity(ctx, goal.Target, "orchestration_failed", map[string]any{
			"goal": goal.Goal, "error": errString(err),
		}); logErr != nil {
			w.logger.Error("log activity for failed orchestration", "error", logErr)
		}
		w.ack(ctx, d.ID)
		return
	}

	if logErr := w.store.LogActivity(ctx, goal.Target, "orchestration_completed", map[string]any{
		"goal": goal.Goal, "summary": result.Summary,
	}); logErr != nil {
		w.logger.Error("log activity for completed orchestration", "error", logErr)
	}
	w.ack(ctx, d.ID)
}

func (w *Worker) ack(ctx context.Context, id string) {
	if err := w.bus.Ack(ctx, id); err != nil {
		w.logger.Error("ack delivery", "id", id, "error", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
