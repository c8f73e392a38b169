package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/layer-3/swapgate/core"
)

func newTestTokenizer(t *testing.T) *JWTTokenizer {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return NewJWTTokenizer(key, "swapgate-test", bcrypt.MinCost)
}

func testSession(now time.Time) *core.Session {
	return &core.Session{
		ID:        "sess-1",
		Address:   "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		IssuedAt:  now,
		ExpiresAt: now.Add(15 * time.Minute),
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	tok := newTestTokenizer(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	token, err := tok.IssueAccessToken(testSession(now))
	require.NoError(t, err)

	session, err := tok.ParseAccessToken(token, now.Add(time.Minute), 0)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", session.ID)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", session.Address)
	assert.True(t, session.ExpiresAt.Equal(now.Add(15*time.Minute)))
}

func TestAccessTokenExpiry(t *testing.T) {
	tok := newTestTokenizer(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	token, err := tok.IssueAccessToken(testSession(now))
	require.NoError(t, err)

	_, err = tok.ParseAccessToken(token, now.Add(15*time.Minute), 0)
	assert.ErrorIs(t, err, core.ErrTokenExpired)

	_, err = tok.ParseAccessToken(token, now.Add(time.Hour), 24*time.Hour)
	assert.NoError(t, err)

	_, err = tok.ParseAccessToken(token, now.Add(25*time.Hour), 24*time.Hour)
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestAccessTokenRejections(t *testing.T) {
	tok := newTestTokenizer(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("foreign key", func(t *testing.T) {
		token, err := newTestTokenizer(t).IssueAccessToken(testSession(now))
		require.NoError(t, err)
		_, err = tok.ParseAccessToken(token, now, 0)
		assert.ErrorIs(t, err, core.ErrInvalidToken)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		other := NewJWTTokenizer(tok.signKey, "someone-else", bcrypt.MinCost)
		token, err := other.IssueAccessToken(testSession(now))
		require.NoError(t, err)
		_, err = tok.ParseAccessToken(token, now, 0)
		assert.ErrorIs(t, err, core.ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := AccessClaims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "swapgate-test",
			Subject:   "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			Audience:  jwt.ClaimStrings{"session:refresh"},
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(tok.signKey)
		require.NoError(t, err)
		_, err = tok.ParseAccessToken(token, now, 0)
		assert.ErrorIs(t, err, core.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tok.ParseAccessToken("a.b.c", now, 0)
		assert.ErrorIs(t, err, core.ErrInvalidToken)
	})
}

func TestRefreshTokenHashing(t *testing.T) {
	tok := newTestTokenizer(t)

	token, err := tok.NewRefreshToken()
	require.NoError(t, err)
	other, err := tok.NewRefreshToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
	assert.Len(t, token, 43)

	hash, err := tok.HashRefreshToken(token)
	require.NoError(t, err)
	assert.NotEqual(t, token, hash)

	again, err := tok.HashRefreshToken(token)
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes are salted")

	assert.NoError(t, tok.CompareRefreshToken(hash, token))
	assert.ErrorIs(t, tok.CompareRefreshToken(hash, other), core.ErrRefreshRejected)
	assert.ErrorIs(t, tok.CompareRefreshToken("", token), core.ErrRefreshRejected)
	assert.ErrorIs(t, tok.CompareRefreshToken("not-a-bcrypt-hash", token), core.ErrRefreshRejected)
}
