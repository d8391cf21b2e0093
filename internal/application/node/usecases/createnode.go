package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/orris-inc/gamepanel/internal/domain/node"
	"github.com/orris-inc/gamepanel/internal/shared/errors"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

// CreateNodeCommand represents the input for enrolling a node.
type CreateNodeCommand struct {
	Name   string
	FQDN   string
	Labels map[string]string
}

// CreateNodeResult carries the plain token. It is shown once and cannot be recovered.
type CreateNodeResult struct {
	ID        string    `json:"id"` // Stripe-style prefixed ID (e.g., "node_xK9mP2vL3nQ")
	Name      string    `json:"name"`
	FQDN      string    `json:"fqdn,omitempty"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateNodeUseCase handles node enrollment.
type CreateNodeUseCase struct {
	repo   node.NodeRepository
	logger logger.Interface
}

// NewCreateNodeUseCase creates a new CreateNodeUseCase.
func NewCreateNodeUseCase(repo node.NodeRepository, logger logger.Interface) *CreateNodeUseCase {
	return &CreateNodeUseCase{
		repo:   repo,
		logger: logger,
	}
}

// Execute enrolls a new node and returns its token.
func (uc *CreateNodeUseCase) Execute(ctx context.Context, cmd CreateNodeCommand) (*CreateNodeResult, error) {
	uc.logger.Infow("executing create node use case", "name", cmd.Name)

	n, plainToken, err := node.NewNode(cmd.Name, cmd.FQDN, cmd.Labels)
	if err != nil {
		uc.logger.Warnw("invalid create node command", "error", err)
		return nil, errors.NewValidationError(err.Error())
	}

	if err := uc.repo.Create(ctx, n); err != nil {
		uc.logger.Errorw("failed to persist node", "error", err)
		return nil, fmt.Errorf("failed to save node: %w", err)
	}

	uc.logger.Infow("node created successfully", "id", n.SID(), "name", n.Name())
	return &CreateNodeResult{
		ID:        n.SID(),
		Name:      n.Name(),
		FQDN:      n.FQDN(),
		Token:     plainToken,
		CreatedAt: n.CreatedAt(),
	}, nil
}
