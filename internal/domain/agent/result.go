package agent

import (
	"encoding/json"
	"errors"
)

// CommandResult is the single outcome shape of every dispatch operation.
// Success means the agent acknowledged the command; otherwise Error describes
// the failure and Err returns its classified cause.
type CommandResult struct {
	CommandID string          `json:"command_id,omitempty"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`

	err error
}

// Succeeded builds a successful result.
func Succeeded(commandID string, data json.RawMessage) CommandResult {
	return CommandResult{
		CommandID: commandID,
		Success:   true,
		Data:      data,
	}
}

// Failed builds a failed result whose message is err's text.
func Failed(commandID string, err error) CommandResult {
	return CommandResult{
		CommandID: commandID,
		Success:   false,
		Error:     err.Error(),
		err:       err,
	}
}

// Rejected builds the result of a command the agent answered with success=false.
// Error keeps the agent's own message; Err matches ErrCommandFailed.
func Rejected(commandID, message string, data json.RawMessage) CommandResult {
	if message == "" {
		message = ErrCommandFailed.Message
	}
	return CommandResult{
		CommandID: commandID,
		Success:   false,
		Data:      data,
		Error:     message,
		err:       ErrCommandFailed.Wrap(message),
	}
}

// Err returns nil for a successful result and the classified cause otherwise.
// The cause matches one of the hub errors with errors.Is.
func (r CommandResult) Err() error {
	if r.Success {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	if r.Error != "" {
		return ErrCommandFailed.Wrap(r.Error)
	}
	return ErrCommandFailed
}

// Is reports whether the result failed with target.
func (r CommandResult) Is(target error) bool {
	return errors.Is(r.Err(), target)
}

// DecodeData unmarshals the result data into v.
func (r CommandResult) DecodeData(v any) error {
	if len(r.Data) == 0 {
		return errors.New("command result has no data")
	}
	return json.Unmarshal(r.Data, v)
}
