package auth

import (
	"context"
	"errors"
	"time"

	"github.com/pranjalb21/kaviosPix/internal/cache"
)

// RevocationStore remembers logged-out token ids until they would have
// expired anyway.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type CacheRevocations struct {
	store cache.Store
	now   func() time.Time
}

func NewCacheRevocations(store cache.Store) *CacheRevocations {
	return &CacheRevocations{store: store, now: time.Now}
}

func (r *CacheRevocations) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.store.Set(ctx, "revoked:"+tokenID, "1", ttl)
}

func (r *CacheRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, err := r.store.Get(ctx, "revoked:"+tokenID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, cache.ErrMiss):
		return false, nil
	default:
		return false, err
	}
}
