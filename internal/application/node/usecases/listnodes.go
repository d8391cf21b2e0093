package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/orris-inc/gamepanel/internal/domain/node"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

// NodeDTO is the listing view of a node.
type NodeDTO struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	FQDN       string            `json:"fqdn,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
	LastSeenAt *time.Time        `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// ListNodesUseCase lists the enrolled nodes.
type ListNodesUseCase struct {
	repo   node.NodeRepository
	logger logger.Interface
}

// NewListNodesUseCase creates a new ListNodesUseCase.
func NewListNodesUseCase(repo node.NodeRepository, logger logger.Interface) *ListNodesUseCase {
	return &ListNodesUseCase{
		repo:   repo,
		logger: logger,
	}
}

// Execute returns every enrolled node.
func (uc *ListNodesUseCase) Execute(ctx context.Context) ([]NodeDTO, error) {
	nodes, err := uc.repo.List(ctx)
	if err != nil {
		uc.logger.Errorw("failed to list nodes", "error", err)
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	dtos := make([]NodeDTO, 0, len(nodes))
	for _, n := range nodes {
		dtos = append(dtos, NodeDTO{
			ID:         n.SID(),
			Name:       n.Name(),
			FQDN:       n.FQDN(),
			Labels:     n.Labels(),
			LastSeenAt: n.LastSeenAt(),
			CreatedAt:  n.CreatedAt(),
		})
	}
	return dtos, nil
}
