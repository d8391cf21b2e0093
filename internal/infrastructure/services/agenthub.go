// Package services provides infrastructure services.
package services

import (
	"encoding/json"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orris-inc/gamepanel/internal/domain/agent"
	sharedConfig "github.com/orris-inc/gamepanel/internal/shared/config"
	"github.com/orris-inc/gamepanel/internal/shared/goroutine"
	protocol "github.com/orris-inc/gamepanel/internal/shared/hubprotocol/agent"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

// AgentHub is the registry of live agent connections and the dispatcher of
// commands to them. Only nodes present in the connection table are ONLINE.
//
// The table is a sync.Map keyed by node ID, so registering, unregistering or
// dispatching to one node never blocks operations on another.
type AgentHub struct {
	conns sync.Map // node ID -> *AgentConn

	cfg sharedConfig.AgentHubConfig

	// Message handlers for agent message types the hub does not own (domain extensions)
	messageHandlers   []MessageHandler
	messageHandlersMu sync.RWMutex

	// Callbacks. Set them before the hub starts serving connections.
	onAgentOnline  func(nodeID string)
	onAgentOffline func(nodeID string, reason error)
	callbacks      sync.Map // node ID -> *callbackQueue

	now          func() time.Time
	newCommandID func() string

	logger logger.Interface
}

// MessageHandler handles agent messages the hub does not process itself.
type MessageHandler interface {
	// String returns the handler name for logging purposes.
	String() string
	// HandleMessage returns true if the message was handled.
	HandleMessage(nodeID string, msgType string, data json.RawMessage) bool
}

// NewAgentHub creates a hub. Zero values in cfg fall back to the defaults.
func NewAgentHub(cfg sharedConfig.AgentHubConfig, log logger.Interface) *AgentHub {
	return &AgentHub{
		cfg:          withDefaults(cfg),
		now:          time.Now,
		newCommandID: uuid.NewString,
		logger:       log,
	}
}

func withDefaults(cfg sharedConfig.AgentHubConfig) sharedConfig.AgentHubConfig {
	def := sharedConfig.DefaultAgentHubConfig()
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = def.HeartbeatTimeout
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = def.CommandTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = def.SendBufferSize
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}
	if cfg.MinProtocolVersion == "" {
		cfg.MinProtocolVersion = def.MinProtocolVersion
	}
	return cfg
}

// Config returns the effective hub configuration.
func (h *AgentHub) Config() sharedConfig.AgentHubConfig {
	return h.cfg
}

// SetOnAgentOnline sets the callback for OFFLINE -> ONLINE transitions.
func (h *AgentHub) SetOnAgentOnline(fn func(nodeID string)) {
	h.onAgentOnline = fn
}

// SetOnAgentOffline sets the callback for ONLINE -> OFFLINE transitions.
func (h *AgentHub) SetOnAgentOffline(fn func(nodeID string, reason error)) {
	h.onAgentOffline = fn
}

// RegisterMessageHandler registers a handler for agent message types the hub does not own.
func (h *AgentHub) RegisterMessageHandler(handler MessageHandler) {
	h.messageHandlersMu.Lock()
	defer h.messageHandlersMu.Unlock()
	h.messageHandlers = append(h.messageHandlers, handler)
	h.logger.Infow("message handler registered", "handler", handler.String())
}

// RouteAgentMessage offers a message to the registered handlers in order.
func (h *AgentHub) RouteAgentMessage(nodeID string, msgType string, data json.RawMessage) bool {
	h.messageHandlersMu.RLock()
	defer h.messageHandlersMu.RUnlock()

	for _, handler := range h.messageHandlers {
		if handler.HandleMessage(nodeID, msgType, data) {
			return true
		}
	}
	return false
}

// Register makes nodeID ONLINE with the given transport. A connection already
// registered for the node is replaced: it is closed and its in-flight
// commands fail with agent.ErrConnectionReplaced.
func (h *AgentHub) Register(nodeID string, info AgentInfo, transport Transport) *AgentConn {
	conn := newAgentConn(nodeID, info, transport, h.now())

	previous, replaced := h.conns.Swap(nodeID, conn)
	if replaced {
		old := previous.(*AgentConn)
		old.shutdown(agent.ErrConnectionReplaced)
		h.logger.Warnw("agent connection replaced",
			"node_id", nodeID,
			"previous_connected_at", old.ConnectedAt,
			"pending_commands", old.pendingCount(),
		)
	}

	h.logger.Infow("agent connected",
		"node_id", nodeID,
		"protocol_version", info.ProtocolVersion,
		"agent_version", info.AgentVersion,
		"remote_addr", info.RemoteAddr,
	)

	if !replaced && h.onAgentOnline != nil {
		h.notifyTransition(nodeID, "agenthub-on-online", func() {
			h.onAgentOnline(nodeID)
		})
	}

	return conn
}

// Unregister makes the node OFFLINE if conn is still its current connection.
// In-flight commands on conn fail with reason. It reports whether the node
// transitioned to OFFLINE; a stale conn is only closed.
func (h *AgentHub) Unregister(conn *AgentConn, reason error) bool {
	if reason == nil {
		reason = agent.ErrAgentDisconnected
	}

	removed := h.conns.CompareAndDelete(conn.NodeID, conn)
	conn.shutdown(reason)
	if !removed {
		return false
	}

	h.logger.Infow("agent disconnected",
		"node_id", conn.NodeID,
		"reason", reason.Error(),
		"connected_for", h.now().Sub(conn.ConnectedAt).Round(time.Second).String(),
	)

	if h.onAgentOffline != nil {
		nodeID := conn.NodeID
		h.notifyTransition(nodeID, "agenthub-on-offline", func() {
			h.onAgentOffline(nodeID, reason)
		})
	}
	return true
}

// HandleHeartbeat records a heartbeat from conn.
func (h *AgentHub) HandleHeartbeat(conn *AgentConn) {
	conn.touch(h.now())
}

// HandleCommandResult delivers a command_result to the caller waiting on its
// command ID. Results for unknown or already timed-out commands are dropped.
func (h *AgentHub) HandleCommandResult(conn *AgentConn, data *protocol.CommandResultData) bool {
	conn.touch(h.now())

	var result agent.CommandResult
	if data.Success {
		result = agent.Succeeded(data.CommandID, data.Data)
	} else {
		result = agent.Rejected(data.CommandID, data.Error, data.Data)
	}

	if !conn.resolve(data.CommandID, result) {
		h.logger.Warnw("dropping command result without a waiting caller",
			"node_id", conn.NodeID,
			"command_id", data.CommandID,
		)
		return false
	}
	return true
}

// SweepStale unregisters every connection whose last heartbeat is older than
// the heartbeat timeout and returns how many were removed.
func (h *AgentHub) SweepStale(now time.Time) int {
	var stale []*AgentConn
	h.conns.Range(func(_, value any) bool {
		conn := value.(*AgentConn)
		if now.Sub(conn.LastHeartbeat()) > h.cfg.HeartbeatTimeout {
			stale = append(stale, conn)
		}
		return true
	})

	removed := 0
	for _, conn := range stale {
		if h.Unregister(conn, agent.ErrHeartbeatTimeout) {
			h.logger.Warnw("agent heartbeat timeout",
				"node_id", conn.NodeID,
				"last_heartbeat", conn.LastHeartbeat(),
			)
			removed++
		}
	}
	return removed
}

// Shutdown disconnects every agent.
func (h *AgentHub) Shutdown() {
	h.conns.Range(func(_, value any) bool {
		h.Unregister(value.(*AgentConn), agent.ErrAgentDisconnected.Wrap("panel shutting down"))
		return true
	})
}

// ConnectedAgents returns the sorted IDs of all ONLINE nodes.
func (h *AgentHub) ConnectedAgents() []string {
	ids := make([]string, 0)
	h.conns.Range(func(key, _ any) bool {
		ids = append(ids, key.(string))
		return true
	})
	slices.Sort(ids)
	return ids
}

// AgentStatus returns the status of nodeID. Unknown nodes are OFFLINE.
func (h *AgentHub) AgentStatus(nodeID string) agent.Status {
	if _, ok := h.conns.Load(nodeID); ok {
		return agent.StatusOnline
	}
	return agent.StatusOffline
}

// IsAgentOnline checks if a node has a live agent connection.
func (h *AgentHub) IsAgentOnline(nodeID string) bool {
	return h.AgentStatus(nodeID).IsOnline()
}

func (h *AgentHub) lookup(nodeID string) (*AgentConn, bool) {
	v, ok := h.conns.Load(nodeID)
	if !ok {
		return nil, false
	}
	return v.(*AgentConn), true
}

// Notify sends a fire-and-forget message to nodeID. It fails with
// agent.ErrAgentOffline when the node is not connected and with
// agent.ErrTransportFailure when the write fails; in the latter case the
// connection is dropped. Nothing is queued or retried.
func (h *AgentHub) Notify(nodeID string, msgType string, data any) error {
	conn, ok := h.lookup(nodeID)
	if !ok {
		return agent.ErrAgentOffline
	}

	msg := &protocol.HubMessage{
		Type:      msgType,
		NodeID:    nodeID,
		Timestamp: h.now().Unix(),
		Data:      data,
	}
	if err := conn.send(msg); err != nil {
		h.evict(conn, err)
		return err
	}
	return nil
}

// SendToAgent sends a fire-and-forget message and reports whether it was written.
//
// Deprecated: Use Notify, which reports why the send failed.
func (h *AgentHub) SendToAgent(nodeID string, msgType string, data any) bool {
	return h.Notify(nodeID, msgType, data) == nil
}

// SendCommand writes cmd to the node's agent and waits for the correlated
// command_result. It never waits on the network when the command is invalid
// or the node is OFFLINE. A result that does not arrive within the command
// timeout yields agent.ErrCommandTimeout, and a disconnect while waiting
// resolves the call immediately with the disconnect reason.
func (h *AgentHub) SendCommand(nodeID string, cmd agent.Command) agent.CommandResult {
	cmd.ID = h.newCommandID()

	if err := cmd.Validate(); err != nil {
		return agent.Failed(cmd.ID, err)
	}

	conn, ok := h.lookup(nodeID)
	if !ok {
		return agent.Failed(cmd.ID, agent.ErrAgentOffline)
	}

	waiter, err := conn.expect(cmd.ID)
	if err != nil {
		return agent.Failed(cmd.ID, err)
	}
	defer conn.forget(cmd.ID)

	msg := &protocol.HubMessage{
		Type:      protocol.MsgTypeCommand,
		NodeID:    nodeID,
		Timestamp: h.now().Unix(),
		Data:      cmd.ToData(),
	}
	if err := conn.send(msg); err != nil {
		h.evict(conn, err)
		return agent.Failed(cmd.ID, err)
	}

	h.logger.Debugw("command sent to agent",
		"node_id", nodeID,
		"command_id", cmd.ID,
		"action", cmd.Action,
		"server_id", cmd.ServerID,
	)

	timer := time.NewTimer(h.cfg.CommandTimeout)
	defer timer.Stop()

	select {
	case result := <-waiter:
		return result
	case <-conn.done:
		// A result may have landed just before the disconnect.
		select {
		case result := <-waiter:
			return result
		default:
		}
		return agent.Failed(cmd.ID, conn.closeReason())
	case <-timer.C:
		h.logger.Warnw("timeout waiting for agent response",
			"node_id", nodeID,
			"command_id", cmd.ID,
			"action", cmd.Action,
			"timeout", h.cfg.CommandTimeout.String(),
		)
		return agent.Failed(cmd.ID, agent.ErrCommandTimeout)
	}
}

// evict drops conn after a failed write.
func (h *AgentHub) evict(conn *AgentConn, cause error) {
	h.logger.Warnw("agent transport write failed, dropping connection",
		"node_id", conn.NodeID,
		"error", cause,
	)
	h.Unregister(conn, cause)
}

// notifyTransition runs fn off the caller's goroutine. Callbacks for the same
// node run one at a time in transition order.
func (h *AgentHub) notifyTransition(nodeID, name string, fn func()) {
	v, _ := h.callbacks.LoadOrStore(nodeID, &callbackQueue{})
	v.(*callbackQueue).push(h.logger, name, fn)
}

type callbackQueue struct {
	mu      sync.Mutex
	pending []namedCallback
	running bool
}

type namedCallback struct {
	name string
	fn   func()
}

func (q *callbackQueue) push(log logger.Interface, name string, fn func()) {
	q.mu.Lock()
	q.pending = append(q.pending, namedCallback{name: name, fn: fn})
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	goroutine.SafeGo(log, "agenthub-callbacks", func() { q.drain(log) })
}

func (q *callbackQueue) drain(log logger.Interface) {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		next := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		func() {
			defer goroutine.Recover(log, next.name)
			next.fn()
		}()
	}
}
