package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services wraps exactly one of them.
var (
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrInvalidRequest  = errors.New("invalid request")
)

var (
	ErrNonceConflict    = fmt.Errorf("%w: nonce already issued for request", ErrConflict)
	ErrInvalidNonce     = fmt.Errorf("%w: invalid nonce", ErrUnauthenticated)
	ErrInvalidSignature = fmt.Errorf("%w: invalid signature", ErrUnauthenticated)
	ErrInvalidMessage   = fmt.Errorf("%w: invalid siwe message", ErrUnauthenticated)
	ErrMessageExpired   = fmt.Errorf("%w: siwe message outside validity window", ErrUnauthenticated)
	ErrTokenExpired     = fmt.Errorf("%w: token has expired", ErrUnauthenticated)
	ErrInvalidToken     = fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	ErrRefreshRejected  = fmt.Errorf("%w: refresh rejected", ErrUnauthenticated)

	ErrUserNotFound       = fmt.Errorf("%w: user", ErrNotFound)
	ErrConnectionNotFound = fmt.Errorf("%w: connection", ErrNotFound)

	ErrInvalidAddress = fmt.Errorf("%w: invalid ethereum address", ErrInvalidRequest)
	ErrMissingRequest = fmt.Errorf("%w: missing request id", ErrInvalidRequest)
	ErrInvalidRoom    = fmt.Errorf("%w: invalid room", ErrInvalidRequest)

	// ErrConnectionGone is returned by senders when the peer is no longer reachable.
	ErrConnectionGone = errors.New("connection gone")

	// ErrConnectionNotLocal is returned by senders for connections terminated by another instance.
	ErrConnectionNotLocal = errors.New("connection not local")
)

// ErrorKind is the stable classification transports map to status codes.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindConflict
	KindUnauthenticated
	KindNotFound
	KindInvalidRequest
)

// KindOf classifies err.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}
