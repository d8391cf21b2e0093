package usecases

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/orris-inc/gamepanel/internal/domain/node"
)

type mockNodeRepository struct {
	mock.Mock
}

func (m *mockNodeRepository) Create(ctx context.Context, n *node.Node) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *mockNodeRepository) GetBySID(ctx context.Context, sid string) (*node.Node, error) {
	args := m.Called(ctx, sid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*node.Node), args.Error(1)
}

func (m *mockNodeRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*node.Node, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*node.Node), args.Error(1)
}

func (m *mockNodeRepository) List(ctx context.Context) ([]*node.Node, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*node.Node), args.Error(1)
}

func (m *mockNodeRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockNodeRepository) UpdateLastSeen(ctx context.Context, sid string, at time.Time) error {
	args := m.Called(ctx, sid, at)
	return args.Error(0)
}
