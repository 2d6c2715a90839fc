package db

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := New(dbPath, zerolog.Nop())
	require.NoError(t, err)

	t.Cleanup(func() { database.Close() })
	return database
}

func TestCreateRoom(t *testing.T) {
	database := setupTestDB(t)

	require.NoError(t, database.CreateRoom("test-room"))

	room, err := database.GetRoom("test-room")
	require.NoError(t, err)
	require.NotNil(t, room)
	assert.Equal(t, "test-room", room.Name)
	assert.Equal(t, "", room.Content)
	assert.False(t, room.Locked)
}

func TestCreateRoomDuplicate(t *testing.T) {
	database := setupTestDB(t)

	require.NoError(t, database.CreateRoom("dup"))
	err := database.CreateRoom("dup")
	assert.ErrorIs(t, err, ErrRoomExists)
}

func TestGetRoomMissing(t *testing.T) {
	database := setupTestDB(t)

	room, err := database.GetRoom("ghost")
	require.NoError(t, err)
	assert.Nil(t, room)

	exists, err := database.RoomExists("ghost")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRoomExists(t *testing.T) {
	database := setupTestDB(t)

	require.NoError(t, database.CreateRoom("here"))
	exists, err := database.RoomExists("here")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeleteRoom(t *testing.T) {
	database := setupTestDB(t)

	require.NoError(t, database.CreateRoom("doomed"))
	require.NoError(t, database.SetNotes("doomed", "scratch"))

	require.NoError(t, database.DeleteRoom("doomed"))

	room, err := database.GetRoom("doomed")
	require.NoError(t, err)
	assert.Nil(t, room)

	// Room-scoped notes went with it.
	notes, err := database.GetNotes("doomed")
	require.NoError(t, err)
	assert.Equal(t, "", notes)

	// A recreated room starts from empty content.
	require.NoError(t, database.CreateRoom("doomed"))
	content, err := database.GetRoomContent("doomed")
	require.NoError(t, err)
	assert.Equal(t, "", content)
}

func TestDeleteRoomMissing(t *testing.T) {
	database := setupTestDB(t)
	assert.ErrorIs(t, database.DeleteRoom("ghost"), ErrRoomNotFound)
}

func TestListRoomsNewestFirst(t *testing.T) {
	database := setupTestDB(t)

	names := []string{"first", "second", "third"}
	for _, name := range names {
		require.NoError(t, database.CreateRoom(name))
	}
	// Force distinct creation times without sleeping.
	_, err := database.db.Exec(
		"UPDATE rooms SET created_at = datetime('now', '-1 hour') WHERE room_name = 'first'")
	require.NoError(t, err)
	_, err = database.db.Exec(
		"UPDATE rooms SET created_at = datetime('now', '-30 minutes') WHERE room_name = 'second'")
	require.NoError(t, err)

	rooms, err := database.ListRooms()
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, "third", rooms[0].Name)
	assert.Equal(t, "second", rooms[1].Name)
	assert.Equal(t, "first", rooms[2].Name)
}

func TestRoomContent(t *testing.T) {
	database := setupTestDB(t)

	require.NoError(t, database.CreateRoom("doc"))
	require.NoError(t, database.UpdateRoomContent("doc", "hello"))

	content, err := database.GetRoomContent("doc")
	require.NoError(t, err)
	assert.Equal(t, "hello", content)

	// Last write wins.
	require.NoError(t, database.UpdateRoomContent("doc", "world"))
	content, err = database.GetRoomContent("doc")
	require.NoError(t, err)
	assert.Equal(t, "world", content)
}

func TestRoomContentMissingRoom(t *testing.T) {
	database := setupTestDB(t)

	_, err := database.GetRoomContent("ghost")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	err = database.UpdateRoomContent("ghost", "x")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRoomLock(t *testing.T) {
	database := setupTestDB(t)

	require.NoError(t, database.CreateRoom("vault"))

	locked, err := database.GetRoomLock("vault")
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, database.SetRoomLock("vault", true))
	locked, err = database.GetRoomLock("vault")
	require.NoError(t, err)
	assert.True(t, locked)

	require.NoError(t, database.SetRoomLock("vault", false))
	locked, err = database.GetRoomLock("vault")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestRoomLockMissingRoom(t *testing.T) {
	database := setupTestDB(t)

	_, err := database.GetRoomLock("ghost")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	assert.ErrorIs(t, database.SetRoomLock("ghost", true), ErrRoomNotFound)
}

func TestLockRoomsOlderThan(t *testing.T) {
	database := setupTestDB(t)

	require.NoError(t, database.CreateRoom("old"))
	require.NoError(t, database.CreateRoom("fresh"))
	require.NoError(t, database.CreateRoom("already-locked"))
	require.NoError(t, database.SetRoomLock("already-locked", true))

	_, err := database.db.Exec(
		"UPDATE rooms SET created_at = datetime('now', '-10 days') WHERE room_name IN ('old', 'already-locked')")
	require.NoError(t, err)

	touched, err := database.LockRoomsOlderThan(7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), touched)

	locked, err := database.GetRoomLock("old")
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = database.GetRoomLock("fresh")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestAdminContentCRUD(t *testing.T) {
	database := setupTestDB(t)

	created, err := database.CreateAdminContent("Welcome", "Hello there")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "Welcome", created.Title)

	fetched, err := database.GetAdminContent(created.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "Hello there", fetched.Content)

	updated, err := database.UpdateAdminContent(created.ID, "Welcome v2", "Updated body")
	require.NoError(t, err)
	assert.True(t, updated)

	fetched, err = database.GetAdminContent(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome v2", fetched.Title)

	all, err := database.ListAdminContent()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	deleted, err := database.DeleteAdminContent(created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	fetched, err = database.GetAdminContent(created.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched)
}

func TestAdminContentMissing(t *testing.T) {
	database := setupTestDB(t)

	updated, err := database.UpdateAdminContent(99, "t", "c")
	require.NoError(t, err)
	assert.False(t, updated)

	deleted, err := database.DeleteAdminContent(99)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestInterviewNotes(t *testing.T) {
	database := setupTestDB(t)

	notes, err := database.GetNotes("r1")
	require.NoError(t, err)
	assert.Equal(t, "", notes)

	require.NoError(t, database.SetNotes("r1", "candidate seems solid"))
	notes, err = database.GetNotes("r1")
	require.NoError(t, err)
	assert.Equal(t, "candidate seems solid", notes)

	// Upsert overwrites
	require.NoError(t, database.SetNotes("r1", "revised"))
	notes, err = database.GetNotes("r1")
	require.NoError(t, err)
	assert.Equal(t, "revised", notes)
}

func TestStats(t *testing.T) {
	database := setupTestDB(t)

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, database.CreateRoom(name))
	}
	require.NoError(t, database.SetRoomLock("a", true))

	stats, err := database.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats["room_count"])
	assert.Equal(t, 1, stats["locked_count"])
}
