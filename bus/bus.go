// Package bus is the C2 event bus: two pub/sub channels (state_changed,
// agent_events) and an append-only stream with consumer groups (task_queue).
// If the event bus is unavailable, publishes are silent no-ops and
// subscribes return an absent subscription.
package bus

import "context"

// Default channel and stream names, overridable via configuration.
const (
	DefaultStateChangedChannel = "devswarm:state_changed"
	DefaultAgentEventsChannel  = "devswarm:agent_events"
	DefaultTaskQueueStream     = "devswarm:task_queue"
)

// ConsumerGroup is the fixed consumer group name task queue workers join.
const ConsumerGroup = "devswarm-workers"

// Delivery is one message read from the task_queue stream.
type Delivery struct {
	ID      string
	Payload string
}

// Bus is the C2 event bus interface. A nil channel returned from a
// Subscribe method (with a nil error) signals the degraded path: the bus is
// unavailable and callers should fall back to heartbeat-only operation.
type Bus interface {
	// PublishStateChanged emits a payload-less signal that some
	// version-visible mutation occurred.
	PublishStateChanged(ctx context.Context) error

	// PublishAgentEvent publishes a ready-to-forward frame (already-encoded
	// JSON) on the agent_events channel.
	PublishAgentEvent(ctx context.Context, payload string) error

	// SubscribeStateChanged returns a channel that receives a value each
	// time a state_changed signal arrives, or (nil, nil) if the bus is
	// unavailable.
	SubscribeStateChanged(ctx context.Context) (<-chan struct{}, error)

	// SubscribeAgentEvents returns a channel that receives each
	// agent_events payload verbatim, or (nil, nil) if the bus is
	// unavailable.
	SubscribeAgentEvents(ctx context.Context) (<-chan string, error)

	// EnqueueTask appends payload to the task_queue stream.
	EnqueueTask(ctx context.Context, payload string) error

	// EnsureConsumerGroup creates the consumer group if it does not
	// already exist, swallowing the benign "already exists" condition.
	EnsureConsumerGroup(ctx context.Context) error

	// ConsumeTasks reads one batch of pending deliveries for the given
	// consumer name. RedisBus blocks up to 2s for new entries; MemoryBus
	// returns immediately.
	ConsumeTasks(ctx context.Context, consumer string) ([]Delivery, error)

	// Ack acknowledges a delivery, removing it from the group's pending
	// entries list.
	Ack(ctx context.Context, id string) error

	// Close releases any underlying connection.
	Close() error
}
