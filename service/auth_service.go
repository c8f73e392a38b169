package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/layer-3/swapgate/core"
	"github.com/layer-3/swapgate/observability"
	"github.com/layer-3/swapgate/ports"
)

// AuthConfig holds the policy knobs of the auth flow.
type AuthConfig struct {
	NonceTTL       time.Duration
	AccessTTL      time.Duration
	RefreshGrace   time.Duration // how long after expiry an access token may still be refreshed
	ClockSkew      time.Duration
	AllowedDomains []string // empty allows any domain
	AllowedChains  []int64  // empty allows any chain
}

// DefaultAuthConfig mirrors the documented defaults.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		NonceTTL:     60 * time.Second,
		AccessTTL:    15 * time.Minute,
		RefreshGrace: 7 * 24 * time.Hour,
		ClockSkew:    30 * time.Second,
	}
}

// AuthDependencies groups the collaborators of AuthService.
type AuthDependencies struct {
	Tokenizer ports.Tokenizer
	Verifier  ports.SignatureVerifier
	Nonces    ports.NonceCache
	Users     ports.UserRepository
	Events    ports.EventPublisher // optional
	Metrics   *observability.Metrics
	Now       func() time.Time // optional, defaults to time.Now
}

// AuthService handles authentication business logic
type AuthService struct {
	tokenizer ports.Tokenizer
	verifier  ports.SignatureVerifier
	nonces    ports.NonceCache
	users     ports.UserRepository
	eventPub  ports.EventPublisher
	metrics   *observability.Metrics
	now       func() time.Time

	cfg AuthConfig
}

// NewAuthService creates a new authentication service
func NewAuthService(cfg AuthConfig, deps AuthDependencies) *AuthService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		tokenizer: deps.Tokenizer,
		verifier:  deps.Verifier,
		nonces:    deps.Nonces,
		users:     deps.Users,
		eventPub:  deps.Events,
		metrics:   deps.Metrics,
		now:       now,
		cfg:       cfg,
	}
}

// IssueNonce generates a one-time nonce bound to requestID.
// A second request for the same requestID while the first nonce is live fails with core.ErrNonceConflict.
func (s *AuthService) IssueNonce(ctx context.Context, log *zap.Logger, requestID string) (nonce string, err error) {
	defer func() { s.metrics.RecordAuth("nonce", err) }()

	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return "", core.ErrMissingRequest
	}

	// Hex keeps the nonce alphanumeric as EIP-4361 requires.
	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	nonce = hex.EncodeToString(nonceBytes)

	stored, err := s.nonces.SetNX(ctx, core.NonceKey(requestID), nonce, s.cfg.NonceTTL)
	if err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}
	if !stored {
		log.Info("nonce request replayed", zap.String("request_id", requestID))
		return "", core.ErrNonceConflict
	}

	return nonce, nil
}

// Login authenticates a wallet with a signed SIWE message and consumes its nonce.
func (s *AuthService) Login(ctx context.Context, log *zap.Logger, msg core.SiweMessage, signature string) (pair *core.TokenPair, err error) {
	defer func() { s.metrics.RecordAuth("login", err) }()

	if err := s.checkMessage(msg); err != nil {
		return nil, err
	}

	// Verify the signature before anything is consumed
	if err := s.verifier.Verify(msg, signature); err != nil {
		return nil, fmt.Errorf("signature verification failed: %w", err)
	}

	stored, err := s.nonces.GetDel(ctx, core.NonceKey(msg.RequestID))
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrInvalidNonce
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume nonce: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(msg.Nonce)) != 1 {
		return nil, core.ErrInvalidNonce
	}

	pair, hash, err := s.mintPair(msg.Address)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpsertRefreshTokenHash(ctx, msg.Address, hash); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	log.Info("wallet logged in", zap.String("address", msg.Address), zap.Int64("chain_id", msg.ChainID))
	return pair, nil
}

// Refresh rotates the refresh token and issues a new pair.
// The access token may have expired within the configured grace period.
func (s *AuthService) Refresh(ctx context.Context, log *zap.Logger, accessToken, refreshToken string) (pair *core.TokenPair, err error) {
	defer func() { s.metrics.RecordAuth("refresh", err) }()

	session, err := s.tokenizer.ParseAccessToken(accessToken, s.now(), s.cfg.RefreshGrace)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	user, err := s.users.GetByAddress(ctx, session.Address)
	if errors.Is(err, core.ErrNotFound) {
		// Same answer as a mismatch so addresses cannot be enumerated.
		return nil, core.ErrRefreshRejected
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user.Revoked() || user.RefreshTokenHash == "" {
		return nil, core.ErrRefreshRejected
	}
	if err := s.tokenizer.CompareRefreshToken(user.RefreshTokenHash, refreshToken); err != nil {
		return nil, core.ErrRefreshRejected
	}

	pair, hash, err := s.mintPair(session.Address)
	if err != nil {
		return nil, err
	}

	rotated, err := s.users.RotateRefreshTokenHash(ctx, session.Address, user.RefreshTokenHash, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if !rotated {
		// A concurrent refresh or logout won the race.
		log.Info("refresh lost rotation race", zap.String("address", session.Address))
		return nil, core.ErrRefreshRejected
	}

	return pair, nil
}

// Logout revokes every outstanding refresh token of the token's wallet. It is idempotent.
func (s *AuthService) Logout(ctx context.Context, log *zap.Logger, accessToken string) (err error) {
	defer func() { s.metrics.RecordAuth("logout", err) }()

	session, err := s.Authenticate(accessToken)
	if err != nil {
		return err
	}

	if err := s.users.Revoke(ctx, session.Address, s.now()); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishLogout(ctx, session.Address); err != nil {
			// The hash is already revoked, which is the critical part
			log.Warn("failed to publish logout event", zap.Error(err))
		}
	}

	log.Info("wallet logged out", zap.String("address", session.Address))
	return nil
}

// Authenticate verifies an access token strictly and returns its session.
func (s *AuthService) Authenticate(accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.ParseAccessToken(accessToken, s.now(), 0)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}
	return session, nil
}

func (s *AuthService) checkMessage(msg core.SiweMessage) error {
	if err := msg.ValidateStructure(); err != nil {
		return err
	}
	if len(s.cfg.AllowedDomains) > 0 && !slices.Contains(s.cfg.AllowedDomains, msg.Domain) {
		return fmt.Errorf("%w: domain %q not allowed", core.ErrInvalidMessage, msg.Domain)
	}
	if len(s.cfg.AllowedChains) > 0 && !slices.Contains(s.cfg.AllowedChains, msg.ChainID) {
		return fmt.Errorf("%w: chain %d not allowed", core.ErrInvalidMessage, msg.ChainID)
	}
	return msg.ValidateAt(s.now(), s.cfg.ClockSkew)
}

// mintPair creates a new access/refresh pair and the hash to persist.
func (s *AuthService) mintPair(address string) (*core.TokenPair, string, error) {
	now := s.now()
	session := &core.Session{
		ID:        uuid.NewString(),
		Address:   address,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.cfg.AccessTTL),
	}

	accessToken, err := s.tokenizer.IssueAccessToken(session)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.NewRefreshToken()
	if err != nil {
		return nil, "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	hash, err := s.tokenizer.HashRefreshToken(refreshToken)
	if err != nil {
		return nil, "", err
	}

	return &core.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, hash, nil
}
