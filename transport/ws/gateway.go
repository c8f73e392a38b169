package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/layer-3/swapgate/service"
)

const (
	maxFrameBytes     = 4 << 10
	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second
	maxPingFailures   = 3
)

// Client actions.
const (
	ActionSetAddress = "setAddress"
	ActionEnterRoom  = "enterRoom"
	ActionLeaveRoom  = "leaveRoom"
	ActionPing       = "ping"
)

// ClientFrame is a message sent by the browser.
type ClientFrame struct {
	Action  string `json:"action"`
	Address string `json:"address,omitempty"`
}

// ServerFrame acknowledges client actions. Progress events are sent as-is.
type ServerFrame struct {
	Type  string `json:"type"`
	Room  string `json:"room,omitempty"`
	Error string `json:"error,omitempty"`
}

// Gateway terminates WebSocket connections and maps their lifecycle onto the room registry.
type Gateway struct {
	rooms          *service.RoomService
	conns          *Connections
	logger         *zap.Logger
	originPatterns []string
}

// NewGateway creates a gateway. originPatterns are host patterns accepted for cross-origin upgrades.
func NewGateway(rooms *service.RoomService, conns *Connections, logger *zap.Logger, originPatterns []string) *Gateway {
	return &Gateway{
		rooms:          rooms,
		conns:          conns,
		logger:         logger.Named("ws"),
		originPatterns: originPatterns,
	}
}

// ServeHTTP upgrades the request and runs the connection until the peer leaves.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.originPatterns,
	})
	if err != nil {
		g.logger.Info("upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	connID := ulid.Make().String()
	log := g.logger.With(zap.String("connection_id", connID))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	g.conns.add(connID, conn)
	if err := g.rooms.Connect(ctx, log, connID); err != nil {
		log.Error("failed to register connection", zap.Error(err))
		g.conns.remove(connID)
		_ = conn.Close(websocket.StatusInternalError, "registration failed")
		return
	}

	defer func() {
		g.conns.remove(connID)
		// The request context is gone by now; cleanup still has to reach the store.
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()
		if err := g.rooms.Disconnect(cleanupCtx, log, connID); err != nil {
			log.Warn("failed to unregister connection", zap.Error(err))
		}
		_ = conn.Close(websocket.StatusNormalClosure, "bye")
	}()

	go g.heartbeat(ctx, cancel, conn, log)

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status == -1 && !errors.Is(err, context.Canceled) {
				log.Info("read failed", zap.Error(err))
			}
			return
		}
		if typ != websocket.MessageText {
			g.reply(ctx, conn, ServerFrame{Type: "error", Error: "text frames only"})
			continue
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			g.reply(ctx, conn, ServerFrame{Type: "error", Error: "invalid JSON"})
			continue
		}

		g.reply(ctx, conn, g.handle(ctx, log, connID, frame))
	}
}

func (g *Gateway) handle(ctx context.Context, log *zap.Logger, connID string, frame ClientFrame) ServerFrame {
	switch frame.Action {
	case ActionSetAddress, ActionEnterRoom:
		room, err := g.rooms.EnterRoom(ctx, log, connID, frame.Address)
		if err != nil {
			return ServerFrame{Type: "error", Error: err.Error()}
		}
		return ServerFrame{Type: "joined", Room: room}

	case ActionLeaveRoom:
		if err := g.rooms.LeaveRoom(ctx, log, connID, frame.Address); err != nil {
			return ServerFrame{Type: "error", Error: err.Error()}
		}
		return ServerFrame{Type: "left"}

	case ActionPing:
		return ServerFrame{Type: "pong"}

	default:
		return ServerFrame{Type: "error", Error: "unsupported action: " + frame.Action}
	}
}

func (g *Gateway) reply(ctx context.Context, conn *websocket.Conn, frame ServerFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, heartbeatTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, data)
}

func (g *Gateway) heartbeat(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, log *zap.Logger) {
	t := time.NewTicker(heartbeatInterval)
	defer t.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, pcancel := context.WithTimeout(ctx, heartbeatTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			log.Debug("ping failed", zap.Int("failures", failures), zap.Error(err))
			if failures >= maxPingFailures {
				cancel()
				return
			}
		}
	}
}
