package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/orris-inc/gamepanel/internal/domain/node"
	"github.com/orris-inc/gamepanel/internal/infrastructure/persistence/models"
	apperrors "github.com/orris-inc/gamepanel/internal/shared/errors"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.NodeModel{}))
	return db
}

func createNode(t *testing.T, repo node.NodeRepository, name string) (*node.Node, string) {
	t.Helper()
	n, token, err := node.NewNode(name, name+".example.com", map[string]string{"region": "eu"})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), n))
	return n, token
}

func TestNodeRepository_CreateAndGet(t *testing.T) {
	repo := NewNodeRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()

	created, token := createNode(t, repo, "fra-1")
	assert.NotZero(t, created.ID())

	bySID, err := repo.GetBySID(ctx, created.SID())
	require.NoError(t, err)
	require.NotNil(t, bySID)
	assert.Equal(t, created.ID(), bySID.ID())
	assert.Equal(t, "fra-1", bySID.Name())
	assert.Equal(t, "fra-1.example.com", bySID.FQDN())
	assert.Equal(t, map[string]string{"region": "eu"}, bySID.Labels())
	assert.True(t, bySID.VerifyToken(token))

	byHash, err := repo.GetByTokenHash(ctx, node.HashToken(token))
	require.NoError(t, err)
	require.NotNil(t, byHash)
	assert.Equal(t, created.SID(), byHash.SID())
}

func TestNodeRepository_GetMissingReturnsNil(t *testing.T) {
	repo := NewNodeRepository(setupTestDB(t), logger.NewNopLogger())

	n, err := repo.GetBySID(context.Background(), "node_missing")
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = repo.GetByTokenHash(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestNodeRepository_List(t *testing.T) {
	repo := NewNodeRepository(setupTestDB(t), logger.NewNopLogger())

	first, _ := createNode(t, repo, "a")
	second, _ := createNode(t, repo, "b")

	nodes, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, first.SID(), nodes[0].SID())
	assert.Equal(t, second.SID(), nodes[1].SID())
}

func TestNodeRepository_Delete(t *testing.T) {
	repo := NewNodeRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()

	n, token := createNode(t, repo, "doomed")
	require.NoError(t, repo.Delete(ctx, n.ID()))

	got, err := repo.GetByTokenHash(ctx, node.HashToken(token))
	require.NoError(t, err)
	assert.Nil(t, got, "deleted node must not authenticate")

	err = repo.Delete(ctx, n.ID())
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestNodeRepository_UpdateLastSeen(t *testing.T) {
	repo := NewNodeRepository(setupTestDB(t), logger.NewNopLogger())
	ctx := context.Background()

	n, _ := createNode(t, repo, "seen")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastSeen(ctx, n.SID(), at))

	got, err := repo.GetBySID(ctx, n.SID())
	require.NoError(t, err)
	require.NotNil(t, got.LastSeenAt())
	assert.True(t, at.Equal(*got.LastSeenAt()))

	err = repo.UpdateLastSeen(ctx, "node_unknown", at)
	assert.True(t, apperrors.IsNotFoundError(err))
}
