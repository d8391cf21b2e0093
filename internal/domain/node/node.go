// Package node models the enrolled nodes an agent may connect as.
package node

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/orris-inc/gamepanel/internal/shared/id"
)

const maxNameLength = 100

// Node is a machine enrolled with the panel. Its SID is the identifier the
// agent presents in the handshake; its token authenticates the connection.
type Node struct {
	id         uint
	sid        string
	name       string
	fqdn       string
	tokenHash  string
	labels     map[string]string
	lastSeenAt *time.Time
	createdAt  time.Time
	updatedAt  time.Time
}

// NewNode creates a node with a fresh SID and token. The plain token is
// returned once and never stored.
func NewNode(name, fqdn string, labels map[string]string) (*Node, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", fmt.Errorf("node name is required")
	}
	if len(name) > maxNameLength {
		return nil, "", fmt.Errorf("node name must be at most %d characters", maxNameLength)
	}

	sid, err := id.NewNodeSID()
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate node SID: %w", err)
	}

	plainToken, token, err := GenerateNodeToken()
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	return &Node{
		sid:       sid,
		name:      name,
		fqdn:      strings.TrimSpace(fqdn),
		tokenHash: token.Hash(),
		labels:    maps.Clone(labels),
		createdAt: now,
		updatedAt: now,
	}, plainToken, nil
}

// ReconstructNode rebuilds a node from persistence.
func ReconstructNode(
	id uint,
	sid, name, fqdn, tokenHash string,
	labels map[string]string,
	lastSeenAt *time.Time,
	createdAt, updatedAt time.Time,
) (*Node, error) {
	if id == 0 {
		return nil, fmt.Errorf("node ID cannot be zero")
	}
	if sid == "" {
		return nil, fmt.Errorf("node SID is required")
	}
	return &Node{
		id:         id,
		sid:        sid,
		name:       name,
		fqdn:       fqdn,
		tokenHash:  tokenHash,
		labels:     labels,
		lastSeenAt: lastSeenAt,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}, nil
}

func (n *Node) ID() uint                  { return n.id }
func (n *Node) SID() string               { return n.sid }
func (n *Node) Name() string              { return n.name }
func (n *Node) FQDN() string              { return n.fqdn }
func (n *Node) TokenHash() string         { return n.tokenHash }
func (n *Node) Labels() map[string]string { return maps.Clone(n.labels) }
func (n *Node) LastSeenAt() *time.Time    { return n.lastSeenAt }
func (n *Node) CreatedAt() time.Time      { return n.createdAt }
func (n *Node) UpdatedAt() time.Time      { return n.updatedAt }

// SetID is called by the repository after insert.
func (n *Node) SetID(id uint) error {
	if n.id != 0 {
		return fmt.Errorf("node ID is already set")
	}
	n.id = id
	return nil
}

// VerifyToken reports whether plainToken is this node's token.
func (n *Node) VerifyToken(plainToken string) bool {
	return verifyTokenHash(plainToken, n.tokenHash)
}

// MarkSeen records the time the node's agent was last observed.
func (n *Node) MarkSeen(at time.Time) {
	at = at.UTC()
	n.lastSeenAt = &at
}
