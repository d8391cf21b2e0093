package usecases

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/orris-inc/gamepanel/internal/domain/node"
	"github.com/orris-inc/gamepanel/internal/shared/errors"
	"github.com/orris-inc/gamepanel/internal/shared/logger"
)

const (
	defaultTokenCacheSize = 1024
	defaultTokenCacheTTL  = 5 * time.Minute
)

type ValidateNodeTokenCommand struct {
	PlainToken string
	IPAddress  string
}

type ValidateNodeTokenResult struct {
	NodeID  uint
	NodeSID string
	Name    string
}

// ValidateNodeTokenUseCase authenticates agent connections. Positive lookups
// are cached for ttl, so a deleted node's token stays valid for at most ttl.
type ValidateNodeTokenUseCase struct {
	nodeRepo node.NodeRepository
	cache    *expirable.LRU[string, *ValidateNodeTokenResult]
	lookups  singleflight.Group
	logger   logger.Interface
}

func NewValidateNodeTokenUseCase(
	nodeRepo node.NodeRepository,
	cacheSize int,
	ttl time.Duration,
	logger logger.Interface,
) *ValidateNodeTokenUseCase {
	if cacheSize <= 0 {
		cacheSize = defaultTokenCacheSize
	}
	if ttl <= 0 {
		ttl = defaultTokenCacheTTL
	}
	return &ValidateNodeTokenUseCase{
		nodeRepo: nodeRepo,
		cache:    expirable.NewLRU[string, *ValidateNodeTokenResult](cacheSize, nil, ttl),
		logger:   logger,
	}
}

func (uc *ValidateNodeTokenUseCase) Execute(ctx context.Context, cmd ValidateNodeTokenCommand) (*ValidateNodeTokenResult, error) {
	if cmd.PlainToken == "" {
		return nil, errors.NewUnauthorizedError("node token is required")
	}

	tokenHash := node.HashToken(cmd.PlainToken)
	if result, ok := uc.cache.Get(tokenHash); ok {
		return result, nil
	}

	v, err, _ := uc.lookups.Do(tokenHash, func() (any, error) {
		return uc.lookup(ctx, cmd.PlainToken, tokenHash)
	})
	if err != nil {
		uc.logger.Warnw("node token rejected", "ip", cmd.IPAddress, "error", err)
		return nil, err
	}

	result := v.(*ValidateNodeTokenResult)
	uc.logger.Debugw("node token validated", "node_id", result.NodeSID, "ip", cmd.IPAddress)
	return result, nil
}

func (uc *ValidateNodeTokenUseCase) lookup(ctx context.Context, plainToken, tokenHash string) (*ValidateNodeTokenResult, error) {
	n, err := uc.nodeRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		uc.logger.Errorw("failed to look up node token", "error", err)
		return nil, errors.NewUnavailableError("node catalog unavailable", err.Error())
	}
	if n == nil || !n.VerifyToken(plainToken) {
		return nil, errors.NewUnauthorizedError("invalid node token")
	}

	result := &ValidateNodeTokenResult{
		NodeID:  n.ID(),
		NodeSID: n.SID(),
		Name:    n.Name(),
	}
	uc.cache.Add(tokenHash, result)
	return result, nil
}
