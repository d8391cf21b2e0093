package services

import (
	"errors"

	"github.com/orris-inc/gamepanel/internal/domain/agent"
	protocol "github.com/orris-inc/gamepanel/internal/shared/hubprotocol/agent"
)

// Execute sends action for serverID to the node's agent. Every server
// operation below is a projection of its result.
func (h *AgentHub) Execute(nodeID, action, serverID string, payload any) agent.CommandResult {
	return h.SendCommand(nodeID, agent.NewCommand(action, serverID, payload))
}

// StartServer starts a game server.
//
// Deprecated: Use Execute with protocol.CmdActionServerStart to get the failure cause.
func (h *AgentHub) StartServer(nodeID, serverID string) bool {
	return h.Execute(nodeID, protocol.CmdActionServerStart, serverID, nil).Success
}

// StopServer stops a game server.
//
// Deprecated: Use Execute with protocol.CmdActionServerStop to get the failure cause.
func (h *AgentHub) StopServer(nodeID, serverID string) bool {
	return h.Execute(nodeID, protocol.CmdActionServerStop, serverID, nil).Success
}

// RestartServer restarts a game server.
//
// Deprecated: Use Execute with protocol.CmdActionServerRestart to get the failure cause.
func (h *AgentHub) RestartServer(nodeID, serverID string) bool {
	return h.Execute(nodeID, protocol.CmdActionServerRestart, serverID, nil).Success
}

// WriteFile replaces the content of path inside the server directory.
//
// Deprecated: Use Execute with protocol.CmdActionFileWrite to get the failure cause.
func (h *AgentHub) WriteFile(nodeID, serverID, path, content string) bool {
	payload := protocol.FileWritePayload{Path: path, Content: content}
	return h.Execute(nodeID, protocol.CmdActionFileWrite, serverID, payload).Success
}

// ReadFile returns the content of path inside the server directory.
//
// Deprecated: Use Execute with protocol.CmdActionFileRead, which also exposes the command ID.
func (h *AgentHub) ReadFile(nodeID, serverID, path string) (string, error) {
	result := h.Execute(nodeID, protocol.CmdActionFileRead, serverID, protocol.FileReadPayload{Path: path})
	if err := result.Err(); err != nil {
		return "", err
	}

	var file protocol.FileReadResult
	if err := result.DecodeData(&file); err != nil {
		return "", agent.ErrCommandFailed.Wrap("invalid file_read result: " + err.Error())
	}
	return file.Content, nil
}

// CreateServer asks the agent to provision serverID. installSpec is passed through
// to the agent unchanged.
func (h *AgentHub) CreateServer(nodeID, serverID string, installSpec any) error {
	return h.lifecycle(nodeID, protocol.CmdActionServerCreate, serverID, installSpec)
}

// DeleteServer removes serverID and its files from the node.
func (h *AgentHub) DeleteServer(nodeID, serverID string) error {
	return h.lifecycle(nodeID, protocol.CmdActionServerDelete, serverID, nil)
}

// SuspendServer stops serverID and prevents it from being started.
func (h *AgentHub) SuspendServer(nodeID, serverID string) error {
	return h.lifecycle(nodeID, protocol.CmdActionServerSuspend, serverID, nil)
}

// UnsuspendServer lifts a suspension.
func (h *AgentHub) UnsuspendServer(nodeID, serverID string) error {
	return h.lifecycle(nodeID, protocol.CmdActionServerUnsuspend, serverID, nil)
}

// ReinstallServer reinstalls serverID, optionally with a new install spec.
func (h *AgentHub) ReinstallServer(nodeID, serverID string, installSpec any) error {
	return h.lifecycle(nodeID, protocol.CmdActionServerReinstall, serverID, installSpec)
}

// lifecycle returns an error matching agent.ErrNoOnlineAgent when the node
// is offline, and the result's cause for every other failure.
func (h *AgentHub) lifecycle(nodeID, action, serverID string, payload any) error {
	err := h.Execute(nodeID, action, serverID, payload).Err()
	if errors.Is(err, agent.ErrAgentOffline) {
		return agent.ErrNoOnlineAgent.Wrap("node " + nodeID)
	}
	return err
}
