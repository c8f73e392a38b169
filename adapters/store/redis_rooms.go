package store

import (
	"context"
	"fmt"

	"github.com/layer-3/swapgate/core"
	"github.com/layer-3/swapgate/ports"
	"github.com/redis/go-redis/v9"
)

// RedisRooms keeps room membership in Redis sets:
//
//	<prefix>conns        set of live connection ids
//	<prefix>conn:<id>    rooms joined by a connection
//	<prefix>room:<room>  connections in a room
//
// Redis deletes a set when its last member is removed, so empty rooms vanish.
// Join and RemoveConnection run as scripts touching keys derived from prefix;
// under Redis Cluster the prefix needs a hash tag such as "{swapgate}:ws:".
type RedisRooms struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRooms creates a Redis room store. prefix namespaces one gateway deployment.
func NewRedisRooms(client redis.UniversalClient, prefix string) *RedisRooms {
	if prefix == "" {
		prefix = "swapgate:ws:"
	}
	return &RedisRooms{client: client, prefix: prefix}
}

var _ ports.RoomStore = (*RedisRooms)(nil)

// joinScript adds the membership only while the connection is registered.
var joinScript = redis.NewScript(`
if redis.call('SISMEMBER', KEYS[1], ARGV[1]) == 0 then
  return 0
end
redis.call('SADD', KEYS[2], ARGV[1])
redis.call('SADD', KEYS[3], ARGV[2])
return 1
`)

// removeScript drops a connection from its rooms and the registry in one step.
var removeScript = redis.NewScript(`
local rooms = redis.call('SMEMBERS', KEYS[2])
for _, room in ipairs(rooms) do
  redis.call('SREM', ARGV[2] .. room, ARGV[1])
end
redis.call('DEL', KEYS[2])
redis.call('SREM', KEYS[1], ARGV[1])
return rooms
`)

func (s *RedisRooms) connsKey() string { return s.prefix + "conns" }
func (s *RedisRooms) connKey(connID string) string { return s.prefix + "conn:" + connID }
func (s *RedisRooms) roomKey(room string) string { return s.prefix + "room:" + room }

// AddConnection registers connID as live.
func (s *RedisRooms) AddConnection(ctx context.Context, connID string) error {
	if err := s.client.SAdd(ctx, s.connsKey(), connID).Err(); err != nil {
		return fmt.Errorf("failed to add connection: %w", err)
	}
	return nil
}

// HasConnection reports whether connID is registered by any instance.
func (s *RedisRooms) HasConnection(ctx context.Context, connID string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.connsKey(), connID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check connection: %w", err)
	}
	return ok, nil
}

// RemoveConnection unregisters connID and returns the rooms it left.
func (s *RedisRooms) RemoveConnection(ctx context.Context, connID string) ([]string, error) {
	keys := []string{s.connsKey(), s.connKey(connID)}
	rooms, err := removeScript.Run(ctx, s.client, keys, connID, s.roomKey("")).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to remove connection: %w", err)
	}
	return rooms, nil
}

// Join adds connID to room. It fails with core.ErrConnectionNotFound when
// connID is not registered at the moment of the write.
func (s *RedisRooms) Join(ctx context.Context, connID, room string) error {
	keys := []string{s.connsKey(), s.roomKey(room), s.connKey(connID)}
	joined, err := joinScript.Run(ctx, s.client, keys, connID, room).Int()
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}
	if joined == 0 {
		return core.ErrConnectionNotFound
	}
	return nil
}

// Leave removes connID from room. Leaving a room twice is a no-op.
func (s *RedisRooms) Leave(ctx context.Context, connID, room string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, s.roomKey(room), connID)
		pipe.SRem(ctx, s.connKey(connID), room)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}
	return nil
}

// Members lists the connections in room.
func (s *RedisRooms) Members(ctx context.Context, room string) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.roomKey(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list room members: %w", err)
	}
	return members, nil
}
