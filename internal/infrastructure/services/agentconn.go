package services

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/orris-inc/gamepanel/internal/domain/agent"
	protocol "github.com/orris-inc/gamepanel/internal/shared/hubprotocol/agent"
)

// Transport is the write side of an agent's channel. Send must not block:
// a message that cannot be queued immediately is an error.
type Transport interface {
	Send(msg *protocol.HubMessage) error
	Close() error
}

// AgentInfo is what the agent declared during the handshake.
type AgentInfo struct {
	ProtocolVersion string
	AgentVersion    string
	RemoteAddr      string
}

// AgentConn is one node's live connection. The hub owns its transport.
type AgentConn struct {
	NodeID      string
	Info        AgentInfo
	ConnectedAt time.Time

	transport     Transport
	lastHeartbeat atomic.Int64 // unix nanoseconds

	// command ID -> chan agent.CommandResult (buffered, capacity 1)
	pending sync.Map

	done      chan struct{}
	closeOnce sync.Once
	reason    error // written once before done is closed
}

func newAgentConn(nodeID string, info AgentInfo, transport Transport, now time.Time) *AgentConn {
	c := &AgentConn{
		NodeID:      nodeID,
		Info:        info,
		ConnectedAt: now,
		transport:   transport,
		done:        make(chan struct{}),
	}
	c.lastHeartbeat.Store(now.UnixNano())
	return c
}

// LastHeartbeat returns the time of the last heartbeat or result received.
func (c *AgentConn) LastHeartbeat() time.Time {
	return time.Unix(0, c.lastHeartbeat.Load())
}

// Done is closed once the connection has been shut down.
func (c *AgentConn) Done() <-chan struct{} {
	return c.done
}

func (c *AgentConn) touch(now time.Time) {
	c.lastHeartbeat.Store(now.UnixNano())
}

func (c *AgentConn) send(msg *protocol.HubMessage) error {
	select {
	case <-c.done:
		return agent.ErrTransportFailure.Wrap("connection closed")
	default:
	}
	if err := c.transport.Send(msg); err != nil {
		return agent.ErrTransportFailure.Wrap(err.Error())
	}
	return nil
}

// expect reserves a pending slot for commandID.
func (c *AgentConn) expect(commandID string) (chan agent.CommandResult, error) {
	ch := make(chan agent.CommandResult, 1)
	if _, loaded := c.pending.LoadOrStore(commandID, ch); loaded {
		return nil, agent.ErrInvalidCommand.Wrap("duplicate command id")
	}
	return ch, nil
}

func (c *AgentConn) forget(commandID string) {
	c.pending.Delete(commandID)
}

// resolve hands result to the caller waiting on commandID, if any.
func (c *AgentConn) resolve(commandID string, result agent.CommandResult) bool {
	v, ok := c.pending.LoadAndDelete(commandID)
	if !ok {
		return false
	}
	select {
	case v.(chan agent.CommandResult) <- result:
		return true
	default:
		return false
	}
}

func (c *AgentConn) pendingCount() int {
	n := 0
	c.pending.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// shutdown closes the transport and wakes every waiting caller. Only the
// first reason is kept.
func (c *AgentConn) shutdown(reason error) {
	c.closeOnce.Do(func() {
		c.reason = reason
		close(c.done)
		_ = c.transport.Close()
	})
}

func (c *AgentConn) closeReason() error {
	<-c.done
	return c.reason
}
