package usecases

import (
	"context"
	"fmt"

	"github.com/orris-inc/gamepanel/internal/domain/node"
	"github.com/orris-inc/gamepanel/internal/shared/errors"
	"github.com/orris-inc/gamepanel/internal/shared/id"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

// DeleteNodeCommand identifies the node to remove.
type DeleteNodeCommand struct {
	NodeSID string
}

// DeleteNodeUseCase removes a node from the catalog. A connected agent keeps
// its connection until it drops; the next handshake is rejected.
type DeleteNodeUseCase struct {
	repo   node.NodeRepository
	logger logger.Interface
}

// NewDeleteNodeUseCase creates a new DeleteNodeUseCase.
func NewDeleteNodeUseCase(repo node.NodeRepository, logger logger.Interface) *DeleteNodeUseCase {
	return &DeleteNodeUseCase{
		repo:   repo,
		logger: logger,
	}
}

// Execute deletes the node.
func (uc *DeleteNodeUseCase) Execute(ctx context.Context, cmd DeleteNodeCommand) error {
	uc.logger.Infow("executing delete node use case", "node_id", cmd.NodeSID)

	if err := id.ValidatePrefix(cmd.NodeSID, id.PrefixNode); err != nil {
		return errors.NewValidationError("invalid node ID", err.Error())
	}

	n, err := uc.repo.GetBySID(ctx, cmd.NodeSID)
	if err != nil {
		uc.logger.Errorw("failed to get node", "node_id", cmd.NodeSID, "error", err)
		return fmt.Errorf("failed to get node: %w", err)
	}
	if n == nil {
		return errors.NewNotFoundError("node not found", cmd.NodeSID)
	}

	if err := uc.repo.Delete(ctx, n.ID()); err != nil {
		uc.logger.Errorw("failed to delete node", "node_id", cmd.NodeSID, "error", err)
		return fmt.Errorf("failed to delete node: %w", err)
	}

	uc.logger.Infow("node deleted successfully", "node_id", cmd.NodeSID)
	return nil
}
