package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/swapgate/core"
	"github.com/layer-3/swapgate/ports"
)

func roomStores(t *testing.T) map[string]ports.RoomStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]ports.RoomStore{
		"memory": NewMemoryRooms(),
		"redis":  NewRedisRooms(client, "test:ws:"),
	}
}

func TestRoomStoreMembership(t *testing.T) {
	for name, rooms := range roomStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			err := rooms.Join(ctx, "c1", "progress:a")
			assert.ErrorIs(t, err, core.ErrConnectionNotFound)

			require.NoError(t, rooms.AddConnection(ctx, "c1"))
			require.NoError(t, rooms.AddConnection(ctx, "c2"))
			require.NoError(t, rooms.Join(ctx, "c1", "progress:a"))
			require.NoError(t, rooms.Join(ctx, "c1", "progress:a"))
			require.NoError(t, rooms.Join(ctx, "c1", "progress:b"))
			require.NoError(t, rooms.Join(ctx, "c2", "progress:a"))

			members, err := rooms.Members(ctx, "progress:a")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"c1", "c2"}, members)

			require.NoError(t, rooms.Leave(ctx, "c2", "progress:a"))
			members, err = rooms.Members(ctx, "progress:a")
			require.NoError(t, err)
			assert.Equal(t, []string{"c1"}, members)

			left, err := rooms.RemoveConnection(ctx, "c1")
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"progress:a", "progress:b"}, left)

			for _, room := range []string{"progress:a", "progress:b"} {
				members, err := rooms.Members(ctx, room)
				require.NoError(t, err)
				assert.Empty(t, members)
			}

			known, err := rooms.HasConnection(ctx, "c1")
			require.NoError(t, err)
			assert.False(t, known)

			known, err = rooms.HasConnection(ctx, "c2")
			require.NoError(t, err)
			assert.True(t, known)
		})
	}
}

func TestRoomStoreRemoveUnknown(t *testing.T) {
	for name, rooms := range roomStores(t) {
		t.Run(name, func(t *testing.T) {
			left, err := rooms.RemoveConnection(context.Background(), "ghost")
			require.NoError(t, err)
			assert.Empty(t, left)
		})
	}
}

func TestRedisRoomsDropEmptySets(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	rooms := NewRedisRooms(client, "test:ws:")
	ctx := context.Background()

	require.NoError(t, rooms.AddConnection(ctx, "c1"))
	require.NoError(t, rooms.Join(ctx, "c1", "progress:a"))
	assert.True(t, mr.Exists("test:ws:room:progress:a"))

	_, err := rooms.RemoveConnection(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, mr.Exists("test:ws:room:progress:a"))
	assert.False(t, mr.Exists("test:ws:conn:c1"))
}

func TestRoomStoreJoinAfterRemoveLeavesNoMember(t *testing.T) {
	for name, rooms := range roomStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, rooms.AddConnection(ctx, "c1"))
			_, err := rooms.RemoveConnection(ctx, "c1")
			require.NoError(t, err)

			err = rooms.Join(ctx, "c1", "progress:a")
			assert.ErrorIs(t, err, core.ErrConnectionNotFound)

			members, err := rooms.Members(ctx, "progress:a")
			require.NoError(t, err)
			assert.Empty(t, members)
		})
	}
}
