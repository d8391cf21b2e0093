// Package agent defines the WebSocket hub protocol spoken between the panel
// and the game-server agents running on each node.
// These types are shared between infrastructure (AgentHub) and interface layers.
package agent

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is the protocol version this panel speaks.
const ProtocolVersion = "1.0.0"

// Hub message type constants.
const (
	// Agent -> Panel message types.
	MsgTypeRegister      = "register"
	MsgTypeHeartbeat     = "heartbeat"
	MsgTypeCommandResult = "command_result"
	MsgTypeEvent         = "event"

	// Panel -> Agent message types.
	MsgTypeRegisterAck = "register_ack"
	MsgTypeCommand     = "command"
	MsgTypeNotify      = "notify"
)

// HubMessage is the outbound WebSocket message envelope.
type HubMessage struct {
	Type      string `json:"type"`
	NodeID    string `json:"node_id,omitempty"` // Stripe-style prefixed ID (e.g., "node_xK9mP2vL3nQ")
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// InboundMessage is the envelope as read from an agent. Data is decoded
// once the type is known.
type InboundMessage struct {
	Type      string          `json:"type"`
	NodeID    string          `json:"node_id,omitempty"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// RegisterData is the first message an agent sends after the upgrade.
type RegisterData struct {
	NodeID          string `json:"node_id"`
	ProtocolVersion string `json:"protocol_version"`
	AgentVersion    string `json:"agent_version,omitempty"`
}

// RegisterAckData confirms a successful handshake.
type RegisterAckData struct {
	NodeID            string `json:"node_id"`
	ProtocolVersion   string `json:"protocol_version"`
	HeartbeatInterval int64  `json:"heartbeat_interval"` // seconds
}

// CommandData represents a command to be sent to an agent.
type CommandData struct {
	CommandID string `json:"command_id"`
	Action    string `json:"action"`
	ServerID  string `json:"server_id,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// CommandResultData is the agent's answer to a CommandData with the same CommandID.
type CommandResultData struct {
	CommandID string          `json:"command_id"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// AgentEventData represents an unsolicited agent event.
type AgentEventData struct {
	EventType string `json:"event_type"`
	ServerID  string `json:"server_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Extra     any    `json:"extra,omitempty"`
}

// Command action constants.
const (
	CmdActionServerStart     = "server_start"
	CmdActionServerStop      = "server_stop"
	CmdActionServerRestart   = "server_restart"
	CmdActionServerCreate    = "server_create"
	CmdActionServerDelete    = "server_delete"
	CmdActionServerSuspend   = "server_suspend"
	CmdActionServerUnsuspend = "server_unsuspend"
	CmdActionServerReinstall = "server_reinstall"
	CmdActionFileRead        = "file_read"
	CmdActionFileWrite       = "file_write"
)

// FileReadPayload asks the agent for the content of a file inside a server directory.
type FileReadPayload struct {
	Path string `json:"path"`
}

// FileReadResult is the data of a successful file_read.
type FileReadResult struct {
	Content string `json:"content"`
}

// FileWritePayload replaces the content of a file inside a server directory.
type FileWritePayload struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Agent event type constants.
const (
	EventTypeServerStateChanged = "server_state_changed"
	EventTypeError              = "error"
)

// DecodeData unmarshals raw envelope data into T.
func DecodeData[T any](raw json.RawMessage) (*T, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty message data")
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("failed to decode message data: %w", err)
	}
	return &v, nil
}
