package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NodeModel represents the database persistence model for enrolled nodes.
type NodeModel struct {
	ID         uint   `gorm:"primarykey"`
	SID        string `gorm:"column:sid;uniqueIndex:idx_nodes_sid;not null;size:32"` // Stripe-style ID: node_xxx
	Name       string `gorm:"not null;size:100"`
	FQDN       string `gorm:"column:fqdn;size:255"`
	TokenHash  string `gorm:"not null;uniqueIndex:idx_nodes_token_hash;size:64"`
	Labels     datatypes.JSON
	LastSeenAt *time.Time `gorm:"index:idx_nodes_last_seen_at"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

// TableName specifies the table name for GORM
func (NodeModel) TableName() string {
	return "nodes"
}
