package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/layer-3/swapgate/core"
	"github.com/layer-3/swapgate/ports"
)

// frameWriter is the part of *websocket.Conn the sender needs.
type frameWriter interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
}

// Connections holds the WebSocket connections terminated by this process
// and delivers payloads to them.
type Connections struct {
	mu           sync.RWMutex
	conns        map[string]frameWriter
	writeTimeout time.Duration
}

// NewConnections creates an empty connection set.
func NewConnections(writeTimeout time.Duration) *Connections {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &Connections{
		conns:        make(map[string]frameWriter),
		writeTimeout: writeTimeout,
	}
}

var _ ports.ConnectionSender = (*Connections)(nil)

func (c *Connections) add(connID string, w frameWriter) {
	c.mu.Lock()
	c.conns[connID] = w
	c.mu.Unlock()
}

func (c *Connections) remove(connID string) {
	c.mu.Lock()
	delete(c.conns, connID)
	c.mu.Unlock()
}

// Len returns the number of local connections.
func (c *Connections) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}

// Send writes one text frame to connID. Connections this process does not hold
// yield core.ErrConnectionNotLocal.
func (c *Connections) Send(ctx context.Context, connID string, payload []byte) error {
	c.mu.RLock()
	w, ok := c.conns[connID]
	c.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrConnectionNotLocal, connID)
	}

	wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	if err := w.Write(wctx, websocket.MessageText, payload); err != nil {
		return fmt.Errorf("%w: %v", core.ErrConnectionGone, err)
	}
	return nil
}
