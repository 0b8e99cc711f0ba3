package auth

import (
	"context"
	"errors"
	"time"

	"video-recipe-generator/internal/infrastructure/cache"
	"video-recipe-generator/internal/pkg/common"

	"go.uber.org/zap"
)

const cacheKeyPrefix = "auth:token:"

// CachedVerifier 只快取成功的驗證結果，鍵為 token 的 SHA-256
type CachedVerifier struct {
	next  Verifier
	store cache.Store
	ttl   time.Duration
}

// NewCachedVerifier 包裝既有的驗證器
func NewCachedVerifier(next Verifier, store cache.Store, ttl time.Duration) *CachedVerifier {
	return &CachedVerifier{next: next, store: store, ttl: ttl}
}

// Verify 先查快取，未命中再呼叫下游
func (c *CachedVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	key := cacheKeyPrefix + common.HashString(token)

	userID, err := c.store.Get(ctx, key)
	switch {
	case err == nil && userID != "":
		return &Identity{ID: userID, Token: token}, nil
	case err != nil && !errors.Is(err, common.ErrCacheMiss):
		common.LogWarn("Token cache lookup failed", zap.Error(err))
	}

	identity, err := c.next.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, key, identity.ID, c.ttl); err != nil {
		common.LogWarn("Token cache store failed", zap.Error(err))
	}
	return identity, nil
}

var _ Verifier = (*CachedVerifier)(nil)
