package realtime

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoomsJoinIsIdempotent(t *testing.T) {
	rooms := NewRooms()

	require.True(t, rooms.Join("conn-1", "general"))
	require.False(t, rooms.Join("conn-1", "general"))

	require.Equal(t, []string{"conn-1"}, rooms.Members("general"))
	require.True(t, rooms.IsMember("conn-1", "general"))
}

func TestRoomsConnectionMayJoinManyRooms(t *testing.T) {
	rooms := NewRooms()
	rooms.Join("conn-1", "general")
	rooms.Join("conn-1", "random")
	rooms.Join("conn-2", "general")

	require.Equal(t, []string{"general", "random"}, rooms.RoomsOf("conn-1"))
	require.Equal(t, []string{"conn-1", "conn-2"}, rooms.Members("general"))
	require.Equal(t, 2, rooms.Count())
}

func TestRoomsRejectsEmptyIdentifiers(t *testing.T) {
	rooms := NewRooms()

	require.False(t, rooms.Join("", "general"))
	require.False(t, rooms.Join("conn-1", ""))
	require.Zero(t, rooms.Count())
}

func TestRoomsPurgeRemovesConnectionEverywhere(t *testing.T) {
	rooms := NewRooms()
	rooms.Join("conn-1", "general")
	rooms.Join("conn-1", "random")
	rooms.Join("conn-2", "general")

	left := rooms.Purge("conn-1")
	require.Equal(t, []string{"general", "random"}, left)

	require.Equal(t, []string{"conn-2"}, rooms.Members("general"))
	require.Empty(t, rooms.Members("random"))
	require.Empty(t, rooms.RoomsOf("conn-1"))
	require.Equal(t, 1, rooms.Count())

	require.Nil(t, rooms.Purge("conn-1"))
}

func TestRoomsMembersOfUnknownRoom(t *testing.T) {
	rooms := NewRooms()
	require.Empty(t, rooms.Members("nowhere"))
}
