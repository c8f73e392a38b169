package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/layer-3/swapgate/core"
	"github.com/layer-3/swapgate/ports"
)

// PostgresUsers is a UserRepository backed by the users table.
type PostgresUsers struct {
	pool *pgxpool.Pool
}

// NewPostgresUsers returns a Postgres-backed user repository.
func NewPostgresUsers(pool *pgxpool.Pool) *PostgresUsers {
	return &PostgresUsers{pool: pool}
}

var _ ports.UserRepository = (*PostgresUsers)(nil)

// GetByAddress loads the user row for address.
func (r *PostgresUsers) GetByAddress(ctx context.Context, address string) (*core.User, error) {
	const query = `
        SELECT address, refresh_token_hash, revoked_at, updated_at
        FROM users WHERE address=$1`

	var u core.User
	err := r.pool.QueryRow(ctx, query, address).Scan(
		&u.Address,
		&u.RefreshTokenHash,
		&u.RevokedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// UpsertRefreshTokenHash inserts or updates the user row and clears revocation.
func (r *PostgresUsers) UpsertRefreshTokenHash(ctx context.Context, address, hash string) error {
	const query = `
        INSERT INTO users (address, refresh_token_hash)
        VALUES ($1, $2)
        ON CONFLICT (address) DO UPDATE
        SET refresh_token_hash=EXCLUDED.refresh_token_hash, revoked_at=NULL, updated_at=NOW()`

	if _, err := r.pool.Exec(ctx, query, address, hash); err != nil {
		return fmt.Errorf("upsert refresh token hash: %w", err)
	}
	return nil
}

// RotateRefreshTokenHash is a single conditional UPDATE, so concurrent refreshes
// for one address cannot both win.
func (r *PostgresUsers) RotateRefreshTokenHash(ctx context.Context, address, oldHash, newHash string) (bool, error) {
	const query = `
        UPDATE users SET refresh_token_hash=$3, updated_at=NOW()
        WHERE address=$1 AND refresh_token_hash=$2 AND revoked_at IS NULL`

	cmd, err := r.pool.Exec(ctx, query, address, oldHash, newHash)
	if err != nil {
		return false, fmt.Errorf("rotate refresh token hash: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// Revoke clears the hash and sets revoked_at. Unknown addresses update no rows.
func (r *PostgresUsers) Revoke(ctx context.Context, address string, at time.Time) error {
	const query = `
        UPDATE users SET refresh_token_hash='', revoked_at=$2, updated_at=$2
        WHERE address=$1`

	if _, err := r.pool.Exec(ctx, query, address, at.UTC()); err != nil {
		return fmt.Errorf("revoke user: %w", err)
	}
	return nil
}
