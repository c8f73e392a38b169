package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/swapgate/core"
	"github.com/layer-3/swapgate/ports"
)

// MemoryUsers is an in-memory UserRepository
type MemoryUsers struct {
	mu    sync.RWMutex
	users map[string]core.User
}

// NewMemoryUsers creates an empty in-memory user repository
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		users: make(map[string]core.User),
	}
}

var _ ports.UserRepository = (*MemoryUsers)(nil)

// GetByAddress returns a copy of the stored user.
func (r *MemoryUsers) GetByAddress(_ context.Context, address string) (*core.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[address]
	if !ok {
		return nil, core.ErrUserNotFound
	}
	return &u, nil
}

// UpsertRefreshTokenHash stores hash and clears any revocation.
func (r *MemoryUsers) UpsertRefreshTokenHash(_ context.Context, address, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[address] = core.User{
		Address:          address,
		RefreshTokenHash: hash,
		UpdatedAt:        time.Now().UTC(),
	}
	return nil
}

// RotateRefreshTokenHash swaps the hash only if oldHash is current and the user is not revoked.
func (r *MemoryUsers) RotateRefreshTokenHash(_ context.Context, address, oldHash, newHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[address]
	if !ok || u.Revoked() || u.RefreshTokenHash != oldHash {
		return false, nil
	}

	u.RefreshTokenHash = newHash
	u.UpdatedAt = time.Now().UTC()
	r.users[address] = u
	return true, nil
}

// Revoke clears the hash and records the revocation time.
func (r *MemoryUsers) Revoke(_ context.Context, address string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[address]
	if !ok {
		return nil
	}

	at = at.UTC()
	u.RefreshTokenHash = ""
	u.RevokedAt = &at
	u.UpdatedAt = at
	r.users[address] = u
	return nil
}
