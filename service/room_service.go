package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/layer-3/swapgate/core"
	"github.com/layer-3/swapgate/observability"
	"github.com/layer-3/swapgate/ports"
)

const defaultFanOut = 32

// BroadcastResult summarizes one fan-out. Remote counts members held by
// other instances, which deliver to them from their own copy of the event.
type BroadcastResult struct {
	Recipients int
	Delivered  int
	Remote     int
	Pruned     int
}

// RoomService tracks which connections listen to which wallet's progress
// and fans progress payloads out to them.
type RoomService struct {
	rooms   ports.RoomStore
	sender  ports.ConnectionSender
	metrics *observability.Metrics
	fanOut  int
}

// NewRoomService creates a room registry. fanOut bounds concurrent sends per broadcast.
func NewRoomService(rooms ports.RoomStore, sender ports.ConnectionSender, fanOut int, metrics *observability.Metrics) *RoomService {
	if fanOut <= 0 {
		fanOut = defaultFanOut
	}
	return &RoomService{
		rooms:   rooms,
		sender:  sender,
		metrics: metrics,
		fanOut:  fanOut,
	}
}

// Connect registers a live connection without any room membership.
func (s *RoomService) Connect(ctx context.Context, log *zap.Logger, connID string) error {
	if strings.TrimSpace(connID) == "" {
		return fmt.Errorf("%w: empty connection id", core.ErrInvalidRequest)
	}
	if err := s.rooms.AddConnection(ctx, connID); err != nil {
		return err
	}
	s.metrics.ConnectionOpened()
	log.Debug("connection registered", zap.String("connection_id", connID))
	return nil
}

// Disconnect removes connID from every room. Unknown connections are a no-op.
func (s *RoomService) Disconnect(ctx context.Context, log *zap.Logger, connID string) error {
	known, err := s.rooms.HasConnection(ctx, connID)
	if err != nil {
		return err
	}
	if !known {
		return nil
	}

	rooms, err := s.rooms.RemoveConnection(ctx, connID)
	if err != nil {
		return err
	}
	s.metrics.ConnectionClosed()
	log.Debug("connection removed", zap.String("connection_id", connID), zap.Strings("rooms", rooms))
	return nil
}

// EnterRoom subscribes connID to the progress room of address and returns the room id.
// Entering the same room twice is a no-op.
func (s *RoomService) EnterRoom(ctx context.Context, log *zap.Logger, connID, address string) (string, error) {
	room, err := core.ProgressRoom(address)
	if err != nil {
		return "", err
	}
	if err := s.rooms.Join(ctx, connID, room); err != nil {
		return "", err
	}
	log.Debug("connection entered room", zap.String("connection_id", connID), zap.String("room", room))
	return room, nil
}

// LeaveRoom unsubscribes connID from the progress room of address.
func (s *RoomService) LeaveRoom(ctx context.Context, log *zap.Logger, connID, address string) error {
	room, err := core.ProgressRoom(address)
	if err != nil {
		return err
	}
	return s.rooms.Leave(ctx, connID, room)
}

// Broadcast sends payload to every local connection in room. Sends run concurrently
// and a failing connection neither blocks nor fails the others; it is pruned instead.
// Members registered by another instance are left to that instance.
func (s *RoomService) Broadcast(ctx context.Context, log *zap.Logger, room string, payload []byte) (BroadcastResult, error) {
	room, err := core.NormalizeRoom(room)
	if err != nil {
		return BroadcastResult{}, err
	}

	members, err := s.rooms.Members(ctx, room)
	if err != nil {
		return BroadcastResult{}, err
	}
	res := BroadcastResult{Recipients: len(members)}
	if len(members) == 0 {
		return res, nil
	}

	var (
		mu     sync.Mutex
		failed []string
	)

	var g errgroup.Group
	g.SetLimit(s.fanOut)
	for _, connID := range members {
		connID := connID
		g.Go(func() error {
			outcome := s.deliver(ctx, log, connID, payload)
			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case deliveryOK:
				res.Delivered++
			case deliveryRemote:
				res.Remote++
			case deliveryFailed:
				failed = append(failed, connID)
			}
			return nil
		})
	}
	_ = g.Wait()

	// A cancelled broadcast says nothing about the health of its recipients.
	if ctx.Err() == nil {
		for _, connID := range failed {
			if err := s.prune(ctx, room, connID); err != nil {
				log.Warn("failed to prune connection", zap.String("connection_id", connID), zap.Error(err))
				continue
			}
			log.Debug("connection pruned", zap.String("connection_id", connID), zap.String("room", room))
			res.Pruned++
		}
	}

	s.metrics.RecordBroadcast(res.Delivered, res.Pruned)
	return res, nil
}

type deliveryOutcome int

const (
	deliveryOK deliveryOutcome = iota
	deliveryRemote
	deliveryFailed
)

// deliver sends to one member. A member no instance has registered is an
// orphan left behind by a racing prune and counts as failed.
func (s *RoomService) deliver(ctx context.Context, log *zap.Logger, connID string, payload []byte) deliveryOutcome {
	err := s.sender.Send(ctx, connID, payload)
	if err == nil {
		return deliveryOK
	}
	if !errors.Is(err, core.ErrConnectionNotLocal) {
		log.Debug("send failed", zap.String("connection_id", connID), zap.Error(err))
		return deliveryFailed
	}

	registered, err := s.rooms.HasConnection(ctx, connID)
	if err != nil {
		log.Warn("failed to check connection", zap.String("connection_id", connID), zap.Error(err))
		return deliveryRemote
	}
	if !registered {
		return deliveryFailed
	}
	return deliveryRemote
}

// prune drops connID from room and from every other room it joined. It does not
// require connID to be registered, so orphaned members are removed as well.
func (s *RoomService) prune(ctx context.Context, room, connID string) error {
	registered, err := s.rooms.HasConnection(ctx, connID)
	if err != nil {
		return err
	}
	if err := s.rooms.Leave(ctx, connID, room); err != nil {
		return err
	}
	if _, err := s.rooms.RemoveConnection(ctx, connID); err != nil {
		return err
	}
	if registered {
		s.metrics.ConnectionClosed()
	}
	return nil
}

// PublishProgress fans a progress event out to the wallet's room.
func (s *RoomService) PublishProgress(ctx context.Context, log *zap.Logger, event core.ProgressEvent) error {
	room, err := core.ProgressRoom(event.Address)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: encode progress event: %v", core.ErrInvalidRequest, err)
	}

	res, err := s.Broadcast(ctx, log, room, payload)
	if err != nil {
		return err
	}

	log.Debug("progress broadcast",
		zap.String("room", room),
		zap.Int("recipients", res.Recipients),
		zap.Int("delivered", res.Delivered),
		zap.Int("remote", res.Remote),
		zap.Int("pruned", res.Pruned),
	)
	return nil
}
