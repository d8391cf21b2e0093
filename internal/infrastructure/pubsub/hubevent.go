// Package pubsub relays agent hub events between panel instances over Redis.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/gamepanel/internal/shared/goroutine"
	protocol "github.com/orris-inc/gamepanel/internal/shared/hubprotocol/agent"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

const (
	hubStatusChannel     = "gamepanel:hub:status"
	hubAgentEventChannel = "gamepanel:hub:agent:event"
)

// HubEventType represents the type of hub event.
type HubEventType string

const (
	HubEventNodeOnline  HubEventType = "node_online"
	HubEventNodeOffline HubEventType = "node_offline"
)

// HubStatusEvent is published when an agent connection comes up or goes away.
type HubStatusEvent struct {
	Type       HubEventType `json:"type"`
	NodeID     string       `json:"node_id"`
	Reason     string       `json:"reason,omitempty"`
	Timestamp  int64        `json:"timestamp"`
	InstanceID string       `json:"instance_id,omitempty"` // Source instance ID to avoid self-delivery
}

// AgentEvent wraps an unsolicited agent event for other instances.
type AgentEvent struct {
	NodeID     string                   `json:"node_id"`
	Event      *protocol.AgentEventData `json:"event"`
	Timestamp  int64                    `json:"timestamp"`
	InstanceID string                   `json:"instance_id,omitempty"`
}

// HubEventPublisher publishes hub events across instances.
type HubEventPublisher interface {
	PublishStatusEvent(ctx context.Context, event HubStatusEvent) error
	PublishAgentEvent(ctx context.Context, nodeID string, event *protocol.AgentEventData) error
}

// HubEventSubscriber receives hub events from other instances. Subscribe
// calls block until ctx is done.
type HubEventSubscriber interface {
	SubscribeStatusEvents(ctx context.Context, handler func(event HubStatusEvent)) error
	SubscribeAgentEvents(ctx context.Context, handler func(event AgentEvent)) error
}

// HubEventBus combines publisher and subscriber interfaces.
type HubEventBus interface {
	HubEventPublisher
	HubEventSubscriber
}

// RedisHubEventBus implements HubEventBus using Redis Pub/Sub.
type RedisHubEventBus struct {
	client     *redis.Client
	logger     logger.Interface
	instanceID string // Unique ID for this instance to avoid self-delivery

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewRedisHubEventBus creates a new Redis-based hub event bus.
func NewRedisHubEventBus(client *redis.Client, logger logger.Interface) *RedisHubEventBus {
	return &RedisHubEventBus{
		client:         client,
		logger:         logger,
		instanceID:     uuid.NewString(),
		initialBackoff: time.Second,
		maxBackoff:     30 * time.Second,
	}
}

// InstanceID identifies this panel instance on the bus.
func (b *RedisHubEventBus) InstanceID() string {
	return b.instanceID
}

// PublishStatusEvent publishes a status event (online/offline) to Redis.
// The instance ID is automatically set to avoid self-delivery.
func (b *RedisHubEventBus) PublishStatusEvent(ctx context.Context, event HubStatusEvent) error {
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	event.InstanceID = b.instanceID

	if err := b.publish(ctx, hubStatusChannel, event); err != nil {
		b.logger.Errorw("failed to publish hub status event",
			"event_type", event.Type,
			"node_id", event.NodeID,
			"error", err,
		)
		return err
	}

	b.logger.Debugw("hub status event published to Redis",
		"event_type", event.Type,
		"node_id", event.NodeID,
	)
	return nil
}

// PublishAgentEvent publishes an agent event to Redis.
func (b *RedisHubEventBus) PublishAgentEvent(ctx context.Context, nodeID string, event *protocol.AgentEventData) error {
	wrapped := AgentEvent{
		NodeID:     nodeID,
		Event:      event,
		Timestamp:  time.Now().Unix(),
		InstanceID: b.instanceID,
	}
	if err := b.publish(ctx, hubAgentEventChannel, wrapped); err != nil {
		b.logger.Errorw("failed to publish agent event",
			"node_id", nodeID,
			"event_type", event.EventType,
			"error", err,
		)
		return err
	}
	return nil
}

func (b *RedisHubEventBus) publish(ctx context.Context, channel string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal hub event: %w", err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// SubscribeStatusEvents subscribes to status events from Redis.
// Events published by this instance are automatically filtered out.
func (b *RedisHubEventBus) SubscribeStatusEvents(ctx context.Context, handler func(event HubStatusEvent)) error {
	return b.subscribeWithReconnect(ctx, hubStatusChannel, func(payload string) {
		var event HubStatusEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			b.logger.Warnw("failed to unmarshal hub status event",
				"payload", payload,
				"error", err,
			)
			return
		}

		if event.InstanceID == b.instanceID {
			return
		}

		handler(event)
	})
}

// SubscribeAgentEvents subscribes to agent events relayed by other instances.
func (b *RedisHubEventBus) SubscribeAgentEvents(ctx context.Context, handler func(event AgentEvent)) error {
	return b.subscribeWithReconnect(ctx, hubAgentEventChannel, func(payload string) {
		var event AgentEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			b.logger.Warnw("failed to unmarshal agent event",
				"payload", payload,
				"error", err,
			)
			return
		}

		if event.InstanceID == b.instanceID || event.Event == nil {
			return
		}

		handler(event)
	})
}

// subscribeWithReconnect wraps subscribe with automatic reconnection and exponential backoff.
func (b *RedisHubEventBus) subscribeWithReconnect(ctx context.Context, channel string, handler func(payload string)) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = b.initialBackoff
	expBackoff.MaxInterval = b.maxBackoff
	expBackoff.Multiplier = 2
	expBackoff.RandomizationFactor = 0.2
	expBackoff.Reset()

	for {
		err := b.subscribe(ctx, channel, handler, expBackoff.Reset)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := expBackoff.NextBackOff()
		if delay == backoff.Stop {
			delay = b.maxBackoff
		}

		b.logger.Warnw("hub subscription disconnected, reconnecting",
			"channel", channel,
			"error", err,
			"backoff", delay,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// subscribe consumes channel until ctx is done or the connection drops.
// onSubscribed runs once the subscription is confirmed.
func (b *RedisHubEventBus) subscribe(ctx context.Context, channel string, handler func(payload string), onSubscribed func()) error {
	pubsub := b.client.Subscribe(ctx, channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}
	onSubscribed()

	b.logger.Infow("subscribed to hub event channel", "channel", channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Infow("hub event subscriber stopped",
				"channel", channel,
				"reason", ctx.Err(),
			)
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				b.logger.Warnw("hub event channel closed", "channel", channel)
				return nil
			}

			goroutine.SafeGo(b.logger, "hub-event-handler-"+channel, func() {
				handler(msg.Payload)
			})
		}
	}
}

// NoopHubEventBus is used when Redis is disabled. Subscriptions block until
// ctx is done.
type NoopHubEventBus struct{}

func (NoopHubEventBus) PublishStatusEvent(context.Context, HubStatusEvent) error { return nil }

func (NoopHubEventBus) PublishAgentEvent(context.Context, string, *protocol.AgentEventData) error {
	return nil
}

func (NoopHubEventBus) SubscribeStatusEvents(ctx context.Context, _ func(HubStatusEvent)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (NoopHubEventBus) SubscribeAgentEvents(ctx context.Context, _ func(AgentEvent)) error {
	<-ctx.Done()
	return ctx.Err()
}
