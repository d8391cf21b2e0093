package node

import (
	"context"
	"time"
)

// NodeRepository persists nodes. Lookups return (nil, nil) when nothing matches.
type NodeRepository interface {
	Create(ctx context.Context, node *Node) error
	GetBySID(ctx context.Context, sid string) (*Node, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*Node, error)
	List(ctx context.Context) ([]*Node, error)
	Delete(ctx context.Context, id uint) error
	UpdateLastSeen(ctx context.Context, sid string, at time.Time) error
}
