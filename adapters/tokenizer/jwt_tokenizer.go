package tokenizer

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/swapgate/core"
	"github.com/layer-3/swapgate/ports"
	"golang.org/x/crypto/bcrypt"
)

const AudienceAccess = "session:access"

// refreshTokenBytes stays below bcrypt's 72 byte input limit once encoded.
const refreshTokenBytes = 32

// JWTTokenizer implements the Tokenizer interface using ES256 JWTs for access
// tokens and bcrypt-hashed random strings for refresh tokens.
type JWTTokenizer struct {
	signKey    *ecdsa.PrivateKey
	issuer     string
	bcryptCost int
}

// NewJWTTokenizer creates a new JWT tokenizer
func NewJWTTokenizer(signKey *ecdsa.PrivateKey, issuer string, bcryptCost int) *JWTTokenizer {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &JWTTokenizer{
		signKey:    signKey,
		issuer:     issuer,
		bcryptCost: bcryptCost,
	}
}

var _ ports.Tokenizer = (*JWTTokenizer)(nil)

// IssueAccessToken converts a Session to an access JWT token
func (j *JWTTokenizer) IssueAccessToken(session *core.Session) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   session.Address,
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceAccess},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)

	signedToken, err := token.SignedString(j.signKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signedToken, nil
}

// ParseAccessToken parses an access token and returns the associated session.
// Time-based claims are checked here rather than by the jwt parser so that
// refresh can accept a token that expired within grace.
func (j *JWTTokenizer) ParseAccessToken(tokenStr string, now time.Time, grace time.Duration) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &j.signKey.PublicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, core.ErrInvalidToken
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok {
		return nil, core.ErrInvalidToken
	}
	if !slices.Contains(claims.Audience, AudienceAccess) {
		return nil, fmt.Errorf("%w: audience", core.ErrInvalidToken)
	}
	if claims.Subject == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: missing claims", core.ErrInvalidToken)
	}
	if j.issuer != "" && claims.Issuer != j.issuer {
		return nil, fmt.Errorf("%w: issuer", core.ErrInvalidToken)
	}
	if !now.Before(claims.ExpiresAt.Time.Add(grace)) {
		return nil, core.ErrTokenExpired
	}

	return &core.Session{
		ID:        claims.ID,
		Address:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// NewRefreshToken generates an opaque refresh token
func (j *JWTTokenizer) NewRefreshToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashRefreshToken returns the salted hash that is persisted instead of the token
func (j *JWTTokenizer) HashRefreshToken(token string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), j.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash refresh token: %w", err)
	}
	return string(hashed), nil
}

// CompareRefreshToken never leaks why a comparison failed.
func (j *JWTTokenizer) CompareRefreshToken(hash, token string) error {
	if hash == "" || token == "" {
		return core.ErrRefreshRejected
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return core.ErrRefreshRejected
	}
	return nil
}
