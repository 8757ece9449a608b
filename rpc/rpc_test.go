package rpc

import (
	netrpc "net/rpc"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/drawguess/room"
	"github.com/wfunc/drawguess/state"
)

func startServer(t *testing.T, rooms *room.Manager) *netrpc.Client {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, srv.Register(NewRoomService(rooms)))

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()
	t.Cleanup(func() {
		srv.Stop()
		assert.NoError(t, <-done)
	})

	client, err := netrpc.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRoomService_GetSnapshot(t *testing.T) {
	rooms := room.NewRoomManager()
	r, err := rooms.CreateRoom(room.Settings{Password: "pw", MaxPlayers: 4, TotalRounds: 2}, room.NewPlayer("a", "Alice"))
	require.NoError(t, err)

	client := startServer(t, rooms)

	var reply GetSnapshotReply
	require.NoError(t, client.Call("RoomService.GetSnapshot", &GetSnapshotArgs{RoomID: r.ID}, &reply))
	assert.Equal(t, r.ID, reply.Snapshot.RoomID)
	assert.Equal(t, state.Waiting, reply.Snapshot.Status)
	assert.Equal(t, "Alice", reply.Snapshot.CurrentPlayer)
	require.Len(t, reply.Snapshot.Players, 1)

	err = client.Call("RoomService.GetSnapshot", &GetSnapshotArgs{RoomID: "0000"}, &reply)
	require.Error(t, err)
	assert.Equal(t, room.ErrRoomNotFound.Error(), err.Error())
}

func TestRoomService_ListRooms(t *testing.T) {
	rooms := room.NewRoomManager()
	for _, id := range []string{"a", "b", "c"} {
		_, err := rooms.CreateRoom(room.Settings{MaxPlayers: 2, TotalRounds: 1}, room.NewPlayer(id, id))
		require.NoError(t, err)
	}

	client := startServer(t, rooms)

	var reply ListRoomsReply
	require.NoError(t, client.Call("RoomService.ListRooms", &ListRoomsArgs{}, &reply))
	require.Len(t, reply.Rooms, 3)
	assert.True(t, reply.Rooms[0].RoomID < reply.Rooms[1].RoomID)

	var filtered ListRoomsReply
	require.NoError(t, client.Call("RoomService.ListRooms", &ListRoomsArgs{Status: state.GameOver}, &filtered))
	assert.Empty(t, filtered.Rooms)
}
