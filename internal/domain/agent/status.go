// Package agent holds the dispatcher's domain model: agent status, commands,
// command results and the error taxonomy shared by every hub operation.
package agent

// Status is the connectivity state of a node's agent as seen by the panel.
// There is no intermediate state: a node whose handshake has not completed is offline.
type Status string

const (
	StatusOnline  Status = "ONLINE"
	StatusOffline Status = "OFFLINE"
)

func (s Status) String() string {
	return string(s)
}

// IsOnline reports whether s is StatusOnline.
func (s Status) IsOnline() bool {
	return s == StatusOnline
}
