package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/orris-inc/gamepanel/internal/domain/node"
	"github.com/orris-inc/gamepanel/internal/infrastructure/persistence/models"
)

// NodeMapper handles the conversion between domain entities and persistence models.
type NodeMapper interface {
	ToEntity(model *models.NodeModel) (*node.Node, error)
	ToModel(entity *node.Node) (*models.NodeModel, error)
	ToEntities(models []*models.NodeModel) ([]*node.Node, error)
}

// NodeMapperImpl is the concrete implementation of NodeMapper.
type NodeMapperImpl struct{}

// NewNodeMapper creates a new node mapper.
func NewNodeMapper() NodeMapper {
	return &NodeMapperImpl{}
}

// ToEntity converts a persistence model to a domain entity.
func (m *NodeMapperImpl) ToEntity(model *models.NodeModel) (*node.Node, error) {
	if model == nil {
		return nil, nil
	}

	var labels map[string]string
	if len(model.Labels) > 0 {
		if err := json.Unmarshal(model.Labels, &labels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal labels: %w", err)
		}
	}

	entity, err := node.ReconstructNode(
		model.ID,
		model.SID,
		model.Name,
		model.FQDN,
		model.TokenHash,
		labels,
		model.LastSeenAt,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct node entity: %w", err)
	}
	return entity, nil
}

// ToModel converts a domain entity to a persistence model.
func (m *NodeMapperImpl) ToModel(entity *node.Node) (*models.NodeModel, error) {
	if entity == nil {
		return nil, nil
	}

	var labels datatypes.JSON
	if l := entity.Labels(); len(l) > 0 {
		raw, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal labels: %w", err)
		}
		labels = raw
	}

	return &models.NodeModel{
		ID:         entity.ID(),
		SID:        entity.SID(),
		Name:       entity.Name(),
		FQDN:       entity.FQDN(),
		TokenHash:  entity.TokenHash(),
		Labels:     labels,
		LastSeenAt: entity.LastSeenAt(),
		CreatedAt:  entity.CreatedAt(),
		UpdatedAt:  entity.UpdatedAt(),
	}, nil
}

// ToEntities converts multiple persistence models to domain entities.
func (m *NodeMapperImpl) ToEntities(models []*models.NodeModel) ([]*node.Node, error) {
	entities := make([]*node.Node, 0, len(models))
	for _, model := range models {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
