package bus

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBus implements Bus over Redis Pub/Sub and Streams, grounded on
// original_source/backend/internal/cache/redis.go's channel names and
// XGroupCreateMkStream/BUSYGROUP-swallowing pattern.
type RedisBus struct {
	client              *redis.Client
	stateChangedChannel string
	agentEventsChannel  string
	taskQueueStream     string
}

// NewRedisBus dials url (a redis:// connection string) and returns a bus
// bound to the default channel and stream names.
func NewRedisBus(url string) (*RedisBus, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	return &RedisBus{
		client:              client,
		stateChangedChannel: DefaultStateChangedChannel,
		agentEventsChannel:  DefaultAgentEventsChannel,
		taskQueueStream:     DefaultTaskQueueStream,
	}, nil
}

// Ping verifies connectivity, used at startup to decide whether the bridge
// should enter the degraded heartbeat-only loop.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBus) PublishStateChanged(ctx context.Context) error {
	return b.client.Publish(ctx, b.stateChangedChannel, "").Err()
}

func (b *RedisBus) PublishAgentEvent(ctx context.Context, payload string) error {
	return b.client.Publish(ctx, b.agentEventsChannel, payload).Err()
}

func (b *RedisBus) SubscribeStateChanged(ctx context.Context) (<-chan struct{}, error) {
	sub := b.client.Subscribe(ctx, b.stateChangedChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}
	out := make(chan struct{})
	go func() {
		defer close(out)
		for range sub.Channel() {
			select {
			case out <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *RedisBus) SubscribeAgentEvents(ctx context.Context) (<-chan string, error) {
	sub := b.client.Subscribe(ctx, b.agentEventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, err
	}
	out := make(chan string)
	go func() {
		defer close(out)
		for msg := range sub.Channel() {
			select {
			case out <- msg.Payload:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (b *RedisBus) EnqueueTask(ctx context.Context, payload string) error {
	return b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.taskQueueStream,
		Values: map[string]any{"payload": payload},
	}).Err()
}

func (b *RedisBus) EnsureConsumerGroup(ctx context.Context) error {
	err := b.client.XGroupCreateMkStream(ctx, b.taskQueueStream, ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (b *RedisBus) ConsumeTasks(ctx context.Context, consumer string) ([]Delivery, error) {
	res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: consumer,
		Streams:  []string{b.taskQueueStream, ">"},
		Count:    10,
		Block:    2 * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out []Delivery
	for _, stream := range res {
		for _, msg := range stream.Messages {
			payload, _ := msg.Values["payload"].(string)
			out = append(out, Delivery{ID: msg.ID, Payload: payload})
		}
	}
	return out, nil
}

func (b *RedisBus) Ack(ctx context.Context, id string) error {
	return b.client.XAck(ctx, b.taskQueueStream, ConsumerGroup, id).Err()
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}
