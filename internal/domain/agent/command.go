package agent

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	protocol "github.com/orris-inc/gamepanel/internal/shared/hubprotocol/agent"
)

// Command is a request for a node's agent to perform an action on one of its
// game servers. It lives only for the duration of the call.
type Command struct {
	// ID correlates the agent's command_result with this command. It is
	// assigned by the hub on every send; a caller-provided value is replaced.
	ID       string
	Action   string `validate:"required,oneof=server_start server_stop server_restart server_create server_delete server_suspend server_unsuspend server_reinstall file_read file_write"`
	ServerID string `validate:"required,max=128"`
	Payload  any
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func commandValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// NewCommand builds a command for action on serverID.
func NewCommand(action, serverID string, payload any) Command {
	return Command{
		Action:   action,
		ServerID: serverID,
		Payload:  payload,
	}
}

// Validate checks the command shape. The returned error matches ErrInvalidCommand.
func (c Command) Validate() error {
	if err := commandValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %q", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return ErrInvalidCommand.Wrap(strings.Join(fields, ", "))
		}
		return ErrInvalidCommand.Wrap(err.Error())
	}
	return c.validatePayload()
}

func (c Command) validatePayload() error {
	var path string
	switch c.Action {
	case protocol.CmdActionFileRead:
		switch p := c.Payload.(type) {
		case protocol.FileReadPayload:
			path = p.Path
		case *protocol.FileReadPayload:
			if p != nil {
				path = p.Path
			}
		}
	case protocol.CmdActionFileWrite:
		switch p := c.Payload.(type) {
		case protocol.FileWritePayload:
			path = p.Path
		case *protocol.FileWritePayload:
			if p != nil {
				path = p.Path
			}
		}
	default:
		return nil
	}
	if path == "" {
		return ErrInvalidCommand.Wrap(c.Action + " requires a path payload")
	}
	return nil
}

// ToData converts the command to its wire form.
func (c Command) ToData() *protocol.CommandData {
	return &protocol.CommandData{
		CommandID: c.ID,
		Action:    c.Action,
		ServerID:  c.ServerID,
		Payload:   c.Payload,
	}
}
