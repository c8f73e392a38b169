package core

import (
	"strings"
	"time"
)

// NonceKeyPrefix prefixes nonce records in the cache.
const NonceKeyPrefix = "nonce:"

// NonceKey returns the cache key of the nonce issued for requestID.
// Surrounding whitespace is not part of the id.
func NonceKey(requestID string) string {
	return NonceKeyPrefix + strings.TrimSpace(requestID)
}

// User is the persisted wallet record.
type User struct {
	Address          string     // EIP-55 checksum address, unique
	RefreshTokenHash string     // bcrypt hash of the current refresh token, empty when none
	RevokedAt        *time.Time // set by logout, cleared by login
	UpdatedAt        time.Time
}

// Revoked reports whether the user logged out since the last login.
func (u *User) Revoked() bool {
	return u != nil && u.RevokedAt != nil
}

// Session is what an access token asserts.
type Session struct {
	ID        string // token id (jti)
	Address   string // subject
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
