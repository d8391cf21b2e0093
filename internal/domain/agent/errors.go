package agent

import (
	"errors"
	"fmt"
)

// Hub errors. Every failed CommandResult carries one of these as its cause.
var (
	ErrAgentOffline       = &HubError{Code: "AGENT_NOT_ONLINE", Message: "agent not online"}
	ErrNoOnlineAgent      = &HubError{Code: "NO_ONLINE_AGENT", Message: "no online agent found"}
	ErrTransportFailure   = &HubError{Code: "TRANSPORT_FAILURE", Message: "agent transport write failed"}
	ErrCommandTimeout     = &HubError{Code: "COMMAND_TIMEOUT", Message: "timeout waiting for agent response"}
	ErrInvalidCommand     = &HubError{Code: "INVALID_COMMAND", Message: "invalid command"}
	ErrAgentDisconnected  = &HubError{Code: "AGENT_DISCONNECTED", Message: "agent disconnected"}
	ErrConnectionReplaced = &HubError{Code: "CONNECTION_REPLACED", Message: "agent connection replaced"}
	ErrHeartbeatTimeout   = &HubError{Code: "HEARTBEAT_TIMEOUT", Message: "agent heartbeat timeout"}
	ErrCommandFailed      = &HubError{Code: "COMMAND_FAILED", Message: "agent reported failure"}
)

// HubError represents an agent hub error.
type HubError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *HubError) Error() string {
	return e.Message
}

// Wrap attaches detail to a hub error while keeping errors.Is matching.
func (e *HubError) Wrap(detail string) error {
	if detail == "" {
		return e
	}
	return fmt.Errorf("%w: %s", e, detail)
}

// CodeOf returns the hub error code carried by err, or "" when err is not a hub error.
func CodeOf(err error) string {
	var hubErr *HubError
	if errors.As(err, &hubErr) {
		return hubErr.Code
	}
	return ""
}
