package ports

import (
	"time"

	"github.com/layer-3/swapgate/core"
)

// Tokenizer issues and verifies credentials.
type Tokenizer interface {
	// IssueAccessToken signs an access token for session.
	IssueAccessToken(session *core.Session) (string, error)
	// ParseAccessToken verifies signature and audience. Expired tokens are
	// accepted when they expired no longer than grace before now.
	ParseAccessToken(token string, now time.Time, grace time.Duration) (*core.Session, error)

	// NewRefreshToken returns a fresh opaque refresh token.
	NewRefreshToken() (string, error)
	HashRefreshToken(token string) (string, error)
	// CompareRefreshToken returns nil when token matches hash.
	CompareRefreshToken(hash, token string) error
}

// SignatureVerifier checks that signature over msg was produced by msg.Address.
type SignatureVerifier interface {
	Verify(msg core.SiweMessage, signature string) error
}
