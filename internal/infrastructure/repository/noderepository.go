package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orris-inc/gamepanel/internal/domain/node"
	"github.com/orris-inc/gamepanel/internal/infrastructure/persistence/mappers"
	"github.com/orris-inc/gamepanel/internal/infrastructure/persistence/models"
	apperrors "github.com/orris-inc/gamepanel/internal/shared/errors"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

// NodeRepositoryImpl implements the node.NodeRepository interface.
type NodeRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.NodeMapper
	logger logger.Interface
}

// NewNodeRepository creates a new node repository instance.
func NewNodeRepository(db *gorm.DB, logger logger.Interface) node.NodeRepository {
	return &NodeRepositoryImpl{
		db:     db,
		mapper: mappers.NewNodeMapper(),
		logger: logger,
	}
}

// Create inserts a new node and assigns its ID.
func (r *NodeRepositoryImpl) Create(ctx context.Context, n *node.Node) error {
	model, err := r.mapper.ToModel(n)
	if err != nil {
		r.logger.Errorw("failed to map node entity to model", "error", err)
		return fmt.Errorf("failed to map node entity: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("node already exists", n.SID())
		}
		r.logger.Errorw("failed to create node in database", "sid", n.SID(), "error", err)
		return fmt.Errorf("failed to create node: %w", err)
	}

	if err := n.SetID(model.ID); err != nil {
		r.logger.Errorw("failed to set node ID", "error", err)
		return fmt.Errorf("failed to set node ID: %w", err)
	}

	r.logger.Infow("node created successfully", "id", model.ID, "sid", model.SID, "name", model.Name)
	return nil
}

// GetBySID retrieves a node by its Stripe-style ID.
func (r *NodeRepositoryImpl) GetBySID(ctx context.Context, sid string) (*node.Node, error) {
	return r.first(ctx, "sid = ?", sid)
}

// GetByTokenHash retrieves the node owning the token with the given hash.
func (r *NodeRepositoryImpl) GetByTokenHash(ctx context.Context, tokenHash string) (*node.Node, error) {
	return r.first(ctx, "token_hash = ?", tokenHash)
}

func (r *NodeRepositoryImpl) first(ctx context.Context, query string, arg any) (*node.Node, error) {
	var model models.NodeModel

	if err := r.db.WithContext(ctx).Where(query, arg).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get node", "query", query, "error", err)
		return nil, fmt.Errorf("failed to get node: %w", err)
	}

	entity, err := r.mapper.ToEntity(&model)
	if err != nil {
		r.logger.Errorw("failed to map node model to entity", "id", model.ID, "error", err)
		return nil, fmt.Errorf("failed to map node: %w", err)
	}
	return entity, nil
}

// List returns every enrolled node ordered by ID.
func (r *NodeRepositoryImpl) List(ctx context.Context) ([]*node.Node, error) {
	var nodeModels []*models.NodeModel

	if err := r.db.WithContext(ctx).Order("id ASC").Find(&nodeModels).Error; err != nil {
		r.logger.Errorw("failed to list nodes", "error", err)
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	entities, err := r.mapper.ToEntities(nodeModels)
	if err != nil {
		r.logger.Errorw("failed to map node models to entities", "error", err)
		return nil, fmt.Errorf("failed to map nodes: %w", err)
	}
	return entities, nil
}

// Delete soft deletes a node. Its token stops authenticating immediately.
func (r *NodeRepositoryImpl) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.NodeModel{}, id)
	if result.Error != nil {
		r.logger.Errorw("failed to delete node", "id", id, "error", result.Error)
		return fmt.Errorf("failed to delete node: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("node", fmt.Sprintf("%d", id))
	}

	r.logger.Infow("node deleted successfully", "id", id)
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a node.
func (r *NodeRepositoryImpl) UpdateLastSeen(ctx context.Context, sid string, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.NodeModel{}).
		Where("sid = ?", sid).
		Update("last_seen_at", at.UTC())

	if result.Error != nil {
		r.logger.Errorw("failed to update node last_seen_at", "sid", sid, "error", result.Error)
		return fmt.Errorf("failed to update last_seen_at: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("node", sid)
	}

	r.logger.Debugw("node last_seen_at updated", "sid", sid)
	return nil
}
