package pubsub

import (
	"context"
	"encoding/json"
	"time"

	protocol "github.com/orris-inc/gamepanel/internal/shared/hubprotocol/agent"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

const (
	publishTimeout = 5 * time.Second

	// DefaultRelayQueueSize bounds the agent events waiting to be published.
	DefaultRelayQueueSize = 256
)

// StatusPublisher turns hub online/offline callbacks into bus events.
type StatusPublisher struct {
	bus    HubEventPublisher
	logger logger.Interface
}

func NewStatusPublisher(bus HubEventPublisher, logger logger.Interface) *StatusPublisher {
	return &StatusPublisher{bus: bus, logger: logger}
}

func (p *StatusPublisher) NodeOnline(nodeID string) {
	p.publish(HubStatusEvent{Type: HubEventNodeOnline, NodeID: nodeID})
}

func (p *StatusPublisher) NodeOffline(nodeID string, reason error) {
	event := HubStatusEvent{Type: HubEventNodeOffline, NodeID: nodeID}
	if reason != nil {
		event.Reason = reason.Error()
	}
	p.publish(event)
}

func (p *StatusPublisher) publish(event HubStatusEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.bus.PublishStatusEvent(ctx, event); err != nil {
		p.logger.Warnw("hub status event dropped", "node_id", event.NodeID, "error", err)
	}
}

type relayedEvent struct {
	nodeID string
	event  *protocol.AgentEventData
}

// AgentEventRelay is a hub message handler that logs agent events and
// forwards them to the bus. HandleMessage runs on the agent's read loop, so it
// only queues; Run publishes. Events arriving while the queue is full are
// dropped.
type AgentEventRelay struct {
	bus    HubEventPublisher
	queue  chan relayedEvent
	logger logger.Interface
}

func NewAgentEventRelay(bus HubEventPublisher, queueSize int, logger logger.Interface) *AgentEventRelay {
	if queueSize <= 0 {
		queueSize = DefaultRelayQueueSize
	}
	return &AgentEventRelay{
		bus:    bus,
		queue:  make(chan relayedEvent, queueSize),
		logger: logger,
	}
}

func (r *AgentEventRelay) String() string {
	return "agent-event-relay"
}

// HandleMessage claims every event message, including malformed ones.
func (r *AgentEventRelay) HandleMessage(nodeID string, msgType string, data json.RawMessage) bool {
	if msgType != protocol.MsgTypeEvent {
		return false
	}

	event, err := protocol.DecodeData[protocol.AgentEventData](data)
	if err != nil {
		r.logger.Warnw("invalid agent event", "node_id", nodeID, "error", err)
		return true
	}

	r.logger.Infow("agent event",
		"node_id", nodeID,
		"event_type", event.EventType,
		"server_id", event.ServerID,
		"message", event.Message,
	)

	select {
	case r.queue <- relayedEvent{nodeID: nodeID, event: event}:
	default:
		r.logger.Warnw("agent event relay queue full, event dropped",
			"node_id", nodeID,
			"event_type", event.EventType,
		)
	}
	return true
}

// Run publishes queued events until ctx is done.
func (r *AgentEventRelay) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case item := <-r.queue:
			r.publish(ctx, item)
		}
	}
}

func (r *AgentEventRelay) publish(ctx context.Context, item relayedEvent) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := r.bus.PublishAgentEvent(ctx, item.nodeID, item.event); err != nil {
		r.logger.Warnw("agent event not relayed", "node_id", item.nodeID, "error", err)
	}
}
