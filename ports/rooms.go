package ports

import "context"

// RoomStore keeps connection to room membership with a reverse index.
type RoomStore interface {
	AddConnection(ctx context.Context, connID string) error
	HasConnection(ctx context.Context, connID string) (bool, error)
	// RemoveConnection drops connID from every room and returns those rooms.
	// Unknown connections are a no-op.
	RemoveConnection(ctx context.Context, connID string) ([]string, error)
	Join(ctx context.Context, connID, room string) error
	Leave(ctx context.Context, connID, room string) error
	Members(ctx context.Context, room string) ([]string, error)
}

// ConnectionSender delivers a payload to one live connection.
// It returns an error wrapping core.ErrConnectionGone when the peer is unreachable
// and core.ErrConnectionNotLocal when another instance holds the connection.
type ConnectionSender interface {
	Send(ctx context.Context, connID string, payload []byte) error
}
