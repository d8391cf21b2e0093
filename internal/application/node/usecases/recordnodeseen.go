package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/orris-inc/gamepanel/internal/domain/node"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

// RecordNodeSeenUseCase stamps last_seen_at when an agent goes online or offline.
type RecordNodeSeenUseCase struct {
	repo   node.NodeRepository
	logger logger.Interface
}

// NewRecordNodeSeenUseCase creates a new RecordNodeSeenUseCase.
func NewRecordNodeSeenUseCase(repo node.NodeRepository, logger logger.Interface) *RecordNodeSeenUseCase {
	return &RecordNodeSeenUseCase{
		repo:   repo,
		logger: logger,
	}
}

// Execute records that nodeSID was seen at at.
func (uc *RecordNodeSeenUseCase) Execute(ctx context.Context, nodeSID string, at time.Time) error {
	if err := uc.repo.UpdateLastSeen(ctx, nodeSID, at); err != nil {
		uc.logger.Warnw("failed to record node last seen", "node_id", nodeSID, "error", err)
		return fmt.Errorf("failed to record node last seen: %w", err)
	}
	return nil
}
