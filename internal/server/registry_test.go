package server

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playone/oneserver/internal/game"
	"github.com/playone/oneserver/internal/randutil"
	"github.com/playone/oneserver/internal/roomcode"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := game.DefaultConfig()
	cfg.BotDelay = 0
	cfg.Seed = 7
	r := NewRegistry(cfg, RegistryDeps{
		Logger:     zerolog.Nop(),
		RandSource: randutil.New(7),
	})
	t.Cleanup(r.CloseAll)
	return r
}

func gameCode(t *testing.T, err error) game.Code {
	t.Helper()
	require.Error(t, err)
	return game.AsError(err).Code
}

func TestCreateRoom(t *testing.T) {
	r := newTestRegistry(t)

	sess, seatID, err := r.CreateRoom("alice", "alice", CreateRoomData{})
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.NotEmpty(t, seatID)
	assert.NoError(t, roomcode.Validate(sess.RoomCode()))
	assert.Equal(t, 1, r.RoomCount())

	got, ok := r.RoomOf("alice")
	require.True(t, ok)
	assert.Same(t, sess, got)

	// The creator is seated and leads.
	snap := sess.Snapshot()
	require.Len(t, snap.Seats, 1)
	assert.Equal(t, seatID, snap.LeaderSeatID)
}

func TestCreateRoomWhileSeatedElsewhere(t *testing.T) {
	r := newTestRegistry(t)

	_, _, err := r.CreateRoom("alice", "alice", CreateRoomData{})
	require.NoError(t, err)

	_, _, err = r.CreateRoom("alice", "alice", CreateRoomData{})
	assert.Equal(t, game.CodeAlreadyInRoom, gameCode(t, err))
}

func TestJoinRoom(t *testing.T) {
	r := newTestRegistry(t)

	sess, _, err := r.CreateRoom("alice", "alice", CreateRoomData{})
	require.NoError(t, err)

	joined, seatID, err := r.JoinRoom(sess.RoomCode(), "bob", "bob")
	require.NoError(t, err)
	assert.Same(t, sess, joined)
	assert.NotEmpty(t, seatID)
	assert.Len(t, sess.Snapshot().Seats, 2)

	// Codes are case-insensitive on the way in.
	_, _, err = r.JoinRoom(sess.RoomCode(), "carol", "carol")
	require.NoError(t, err)
}

func TestJoinRoomErrors(t *testing.T) {
	r := newTestRegistry(t)

	_, _, err := r.JoinRoom("ZZZZZZ", "bob", "bob")
	assert.Equal(t, game.CodeNotFound, gameCode(t, err))

	_, _, err = r.JoinRoom("not a code", "bob", "bob")
	assert.Equal(t, game.CodeNotFound, gameCode(t, err))

	// A bad code never costs a seated user their current room.
	sess, _, err := r.CreateRoom("alice", "alice", CreateRoomData{})
	require.NoError(t, err)
	_, _, err = r.JoinRoom("ZZZZZZ", "alice", "alice")
	assert.Equal(t, game.CodeNotFound, gameCode(t, err))
	got, ok := r.RoomOf("alice")
	require.True(t, ok)
	assert.Same(t, sess, got)

	// Re-sending join for the room alice already sits in fails without
	// forgetting where they sit.
	_, _, err = r.JoinRoom(sess.RoomCode(), "alice", "alice")
	assert.Equal(t, game.CodeAlreadyInRoom, gameCode(t, err))
	got, ok = r.RoomOf("alice")
	require.True(t, ok)
	assert.Same(t, sess, got)
}

func TestJoinRoomMovesFromPreviousRoom(t *testing.T) {
	r := newTestRegistry(t)

	target, _, err := r.CreateRoom("alice", "alice", CreateRoomData{})
	require.NoError(t, err)
	_, _, err = r.CreateRoom("bob", "bob", CreateRoomData{})
	require.NoError(t, err)
	require.Equal(t, 2, r.RoomCount())

	joined, seatID, err := r.JoinRoom(target.RoomCode(), "bob", "bob")
	require.NoError(t, err)
	assert.Same(t, target, joined)
	assert.NotEmpty(t, seatID)
	assert.Len(t, target.Snapshot().Seats, 2)

	got, ok := r.RoomOf("bob")
	require.True(t, ok)
	assert.Same(t, target, got)

	// Bob was the only human in his old room, so it closed behind him.
	assert.Equal(t, 1, r.RoomCount())
}

func TestJoinRoomFullTargetLeavesUserRoomless(t *testing.T) {
	r := newTestRegistry(t)

	target, _, err := r.CreateRoom("alice", "alice", CreateRoomData{MaxPlayers: 2})
	require.NoError(t, err)
	_, _, err = r.JoinRoom(target.RoomCode(), "bob", "bob")
	require.NoError(t, err)

	_, _, err = r.CreateRoom("carol", "carol", CreateRoomData{})
	require.NoError(t, err)

	// Carol leaves her room before the full target rejects her; the
	// move is not rolled back.
	_, _, err = r.JoinRoom(target.RoomCode(), "carol", "carol")
	assert.Equal(t, game.CodeRoomFull, gameCode(t, err))
	_, ok := r.RoomOf("carol")
	assert.False(t, ok)
}

func TestLeaveRoom(t *testing.T) {
	r := newTestRegistry(t)

	sess, _, err := r.CreateRoom("alice", "alice", CreateRoomData{})
	require.NoError(t, err)
	code := sess.RoomCode()

	_, _, err = r.JoinRoom(code, "bob", "bob")
	require.NoError(t, err)

	left, err := r.LeaveRoom("bob")
	require.NoError(t, err)
	assert.Equal(t, code, left)
	assert.Len(t, sess.Snapshot().Seats, 1)

	left, err = r.LeaveRoom("bob")
	require.NoError(t, err, "leaving twice is a no-op")
	assert.Empty(t, left)

	// Bob is free to open his own room now.
	_, _, err = r.CreateRoom("bob", "bob", CreateRoomData{})
	require.NoError(t, err)
}

func TestLastLeaveClosesRoom(t *testing.T) {
	r := newTestRegistry(t)

	_, _, err := r.CreateRoom("alice", "alice", CreateRoomData{})
	require.NoError(t, err)
	require.Equal(t, 1, r.RoomCount())

	_, err = r.LeaveRoom("alice")
	require.NoError(t, err)
	assert.Equal(t, 0, r.RoomCount(), "an empty room is dropped")

	_, ok := r.RoomOf("alice")
	assert.False(t, ok)
}

func TestListRoomsHidesPrivate(t *testing.T) {
	r := newTestRegistry(t)

	pub, _, err := r.CreateRoom("alice", "alice", CreateRoomData{})
	require.NoError(t, err)
	_, _, err = r.CreateRoom("bob", "bob", CreateRoomData{IsPrivate: true})
	require.NoError(t, err)

	rooms := r.ListRooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, pub.RoomCode(), rooms[0].RoomCode)
	assert.Equal(t, 1, rooms[0].Players)
	assert.Equal(t, 2, r.RoomCount())
}

func TestListableRooms(t *testing.T) {
	assert.True(t, listable(game.RoomInfo{Status: game.StatusLobby}))
	assert.True(t, listable(game.RoomInfo{Status: game.StatusPlaying}))
	assert.False(t, listable(game.RoomInfo{Status: game.StatusLobby, IsPrivate: true}))
	assert.False(t, listable(game.RoomInfo{Status: game.StatusGameOver}))
	assert.False(t, listable(game.RoomInfo{Status: game.StatusGameOver, IsPrivate: true}))
}

func TestCreateRoomOverrides(t *testing.T) {
	r := newTestRegistry(t)

	sess, _, err := r.CreateRoom("alice", "alice", CreateRoomData{MaxPlayers: 2})
	require.NoError(t, err)

	_, _, err = r.JoinRoom(sess.RoomCode(), "bob", "bob")
	require.NoError(t, err)
	_, _, err = r.JoinRoom(sess.RoomCode(), "carol", "carol")
	assert.Equal(t, game.CodeRoomFull, gameCode(t, err))
}

func TestCloseAllRejectsNewRooms(t *testing.T) {
	r := newTestRegistry(t)

	_, _, err := r.CreateRoom("alice", "alice", CreateRoomData{})
	require.NoError(t, err)

	r.CloseAll()
	assert.Equal(t, 0, r.RoomCount())

	_, _, err = r.CreateRoom("dave", "dave", CreateRoomData{})
	assert.Equal(t, game.CodeWrongState, gameCode(t, err))
}
