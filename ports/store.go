package ports

import (
	"context"
	"time"

	"github.com/layer-3/swapgate/core"
)

// NonceCache stores one-time nonces with a TTL.
type NonceCache interface {
	// SetNX stores value under key unless a live entry exists. It reports whether it stored.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// GetDel atomically reads and removes key. A missing or expired key returns core.ErrNotFound.
	GetDel(ctx context.Context, key string) (string, error)
}

// UserRepository persists wallet users and their refresh-token hash.
type UserRepository interface {
	// GetByAddress returns core.ErrUserNotFound when no record exists.
	GetByAddress(ctx context.Context, address string) (*core.User, error)
	// UpsertRefreshTokenHash creates the user if needed, stores hash and clears revocation.
	UpsertRefreshTokenHash(ctx context.Context, address, hash string) error
	// RotateRefreshTokenHash swaps oldHash for newHash only if oldHash is still current
	// and the user is not revoked. It reports whether the swap happened.
	RotateRefreshTokenHash(ctx context.Context, address, oldHash, newHash string) (bool, error)
	// Revoke clears the hash and marks the user revoked. Unknown addresses are a no-op.
	Revoke(ctx context.Context, address string, at time.Time) error
}
