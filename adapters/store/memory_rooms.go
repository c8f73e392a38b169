package store

import (
	"context"
	"sync"

	"github.com/layer-3/swapgate/core"
	"github.com/layer-3/swapgate/ports"
)

// MemoryRooms is an in-memory RoomStore with a connection -> rooms reverse index.
type MemoryRooms struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{} // room -> connections
	conns map[string]map[string]struct{} // connection -> rooms
}

// NewMemoryRooms creates an empty room store.
func NewMemoryRooms() *MemoryRooms {
	return &MemoryRooms{
		rooms: make(map[string]map[string]struct{}),
		conns: make(map[string]map[string]struct{}),
	}
}

var _ ports.RoomStore = (*MemoryRooms)(nil)

// AddConnection registers connID with no rooms. Registering twice is a no-op.
func (s *MemoryRooms) AddConnection(_ context.Context, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[connID]; !ok {
		s.conns[connID] = make(map[string]struct{})
	}
	return nil
}

// HasConnection reports whether connID is registered.
func (s *MemoryRooms) HasConnection(_ context.Context, connID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.conns[connID]
	return ok, nil
}

// RemoveConnection unregisters connID and returns the rooms it left.
func (s *MemoryRooms) RemoveConnection(_ context.Context, connID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	joined, ok := s.conns[connID]
	if !ok {
		return nil, nil
	}
	delete(s.conns, connID)

	rooms := make([]string, 0, len(joined))
	for room := range joined {
		rooms = append(rooms, room)
		s.removeMember(room, connID)
	}
	return rooms, nil
}

// Join adds connID to room. Unregistered connections get core.ErrConnectionNotFound.
func (s *MemoryRooms) Join(_ context.Context, connID, room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	joined, ok := s.conns[connID]
	if !ok {
		return core.ErrConnectionNotFound
	}
	joined[room] = struct{}{}

	members, ok := s.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		s.rooms[room] = members
	}
	members[connID] = struct{}{}
	return nil
}

// Leave removes connID from room, dropping the room once empty.
func (s *MemoryRooms) Leave(_ context.Context, connID, room string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if joined, ok := s.conns[connID]; ok {
		delete(joined, room)
	}
	s.removeMember(room, connID)
	return nil
}

// Members returns a snapshot of the connections in room.
func (s *MemoryRooms) Members(_ context.Context, room string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	members := s.rooms[room]
	out := make([]string, 0, len(members))
	for connID := range members {
		out = append(out, connID)
	}
	return out, nil
}

// removeMember drops the room when it becomes empty. Caller holds mu.
func (s *MemoryRooms) removeMember(room, connID string) {
	members, ok := s.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(s.rooms, room)
	}
}
