package repository

import (
	"testing"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomRepository(t *testing.T) {
	t.Run("Create_FindByCode", func(t *testing.T) {
		ctx, st := suite.New(t)
		f := newFixture(st)
		f.user(ctx, t, "alice")
		f.user(ctx, t, "bob")

		// When: a room with two players is stored
		room := f.room(ctx, t, "ABC123", "alice", "bob")

		// Then: it is found by code with players in join order
		stored, err := f.rooms.FindByCode(ctx, "ABC123")
		require.NoError(t, err)
		assert.Equal(t, room, stored)

		exists, err := f.rooms.ExistsByCode(ctx, "ABC123")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Create_DuplicateCode", func(t *testing.T) {
		ctx, st := suite.New(t)
		f := newFixture(st)
		f.user(ctx, t, "alice")
		f.room(ctx, t, "ABC123", "alice")

		duplicate := &entity.Room{ID: "other", Code: "ABC123", Name: "x", OwnerID: "alice",
			Players: []string{"alice"}, Status: entity.RoomWaiting, CreatedAt: testNow, UpdatedAt: testNow}

		assert.ErrorIs(t, f.rooms.Create(ctx, duplicate), ErrDuplicate)
	})

	t.Run("AddPlayer_TakesTheFreeSeat", func(t *testing.T) {
		ctx, st := suite.New(t)
		f := newFixture(st)
		f.user(ctx, t, "alice")
		f.user(ctx, t, "bob")
		f.user(ctx, t, "carol")
		room := f.room(ctx, t, "ABC123", "alice")

		// When: bob joins
		joinedAt := testNow.Add(time.Minute)
		added, err := f.rooms.AddPlayer(ctx, room, "bob", joinedAt)

		// Then: the room is refreshed with bob seated second
		require.NoError(t, err)
		assert.True(t, added)
		assert.Equal(t, []string{"alice", "bob"}, room.Players)
		assert.Equal(t, joinedAt, room.UpdatedAt)

		// Then: a repeated join changes nothing
		added, err = f.rooms.AddPlayer(ctx, room, "bob", joinedAt.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, added)
		assert.Equal(t, joinedAt, room.UpdatedAt)

		// Then: a third player finds no seat even with an outdated room
		stale := &entity.Room{ID: room.ID, Players: []string{"alice"}}
		_, err = f.rooms.AddPlayer(ctx, stale, "carol", joinedAt)
		require.ErrorIs(t, err, ErrNoSeat)

		stored, err := f.rooms.FindByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, stored.Players)
	})

	t.Run("AddPlayer_ClosedOrMissingRoom", func(t *testing.T) {
		ctx, st := suite.New(t)
		f := newFixture(st)
		f.user(ctx, t, "alice")
		f.user(ctx, t, "bob")

		finished := &entity.Room{ID: "room-FIN333", Code: "FIN333", Name: "done", OwnerID: "alice",
			Players: []string{"alice"}, Status: entity.RoomFinished, CreatedAt: testNow, UpdatedAt: testNow}
		require.NoError(t, f.rooms.Create(ctx, finished))

		_, err := f.rooms.AddPlayer(ctx, finished, "bob", testNow)
		assert.ErrorIs(t, err, ErrRoomClosed)

		_, err = f.rooms.AddPlayer(ctx, &entity.Room{ID: "missing"}, "bob", testNow)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("RemovePlayer_HandsOverOwnership", func(t *testing.T) {
		ctx, st := suite.New(t)
		f := newFixture(st)
		f.user(ctx, t, "alice")
		f.user(ctx, t, "bob")
		f.user(ctx, t, "carol")
		room := f.room(ctx, t, "ABC123", "alice", "bob")

		// When: the owner leaves
		room.Status = entity.RoomWaiting
		require.NoError(t, f.rooms.RemovePlayer(ctx, room, "alice", nil, testNow.Add(time.Minute)))

		// Then: the remaining player owns the room
		assert.Equal(t, []string{"bob"}, room.Players)
		assert.Equal(t, "bob", room.OwnerID)

		stored, err := f.rooms.FindByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"bob"}, stored.Players)
		assert.Equal(t, "bob", stored.OwnerID)

		// Then: a new player sits after bob
		_, err = f.rooms.AddPlayer(ctx, room, "carol", testNow.Add(2*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, []string{"bob", "carol"}, room.Players)

		// Then: leaving twice is refused
		assert.ErrorIs(t, f.rooms.RemovePlayer(ctx, room, "alice", nil, testNow), ErrNotMember)
	})

	t.Run("RemovePlayer_ForfeitsWithTheRoom", func(t *testing.T) {
		ctx, st := suite.New(t)
		f := newFixture(st)
		f.user(ctx, t, "alice")
		f.user(ctx, t, "bob")
		room := f.room(ctx, t, "ABC123", "alice", "bob")
		game := f.game(ctx, t, room)

		// When: bob leaves and the game is forfeited in the same write
		leftAt := testNow.Add(time.Minute)
		forfeited := game.Clone()
		forfeited.Forfeit("bob", leftAt)
		room.SyncStatus(forfeited)
		require.NoError(t, f.rooms.RemovePlayer(ctx, room, "bob", forfeited, leftAt))

		// Then: game and room are both finished
		assert.Equal(t, game.Version+1, forfeited.Version)

		stored, err := f.games.FindByID(ctx, game.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.GameFinished, stored.Status)
		assert.Equal(t, "alice", stored.WinnerUserID)

		storedRoom, err := f.rooms.FindByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.RoomFinished, storedRoom.Status)
		assert.Equal(t, []string{"alice"}, storedRoom.Players)
	})

	t.Run("RemovePlayer_StaleGameKeepsTheSeat", func(t *testing.T) {
		ctx, st := suite.New(t)
		f := newFixture(st)
		f.user(ctx, t, "alice")
		f.user(ctx, t, "bob")
		room := f.room(ctx, t, "ABC123", "alice", "bob")
		game := f.game(ctx, t, room)

		// Given: a move landed after the game was read
		moved := game.Clone()
		moved.Board[0] = entity.SymbolX
		moved.TurnUserID = "bob"
		require.NoError(t, f.games.CommitMove(ctx, moved, room,
			&entity.Move{ID: "m1", GameID: game.ID, UserID: "alice", CellIndex: 0, Symbol: entity.SymbolX, CreatedAt: testNow}))

		// When: the forfeit is written against the old version
		forfeited := game.Clone()
		forfeited.Forfeit("bob", testNow)
		room.SyncStatus(forfeited)
		err := f.rooms.RemovePlayer(ctx, room, "bob", forfeited, testNow)

		// Then: nothing changes
		require.ErrorIs(t, err, ErrStaleGame)

		storedRoom, err := f.rooms.FindByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"alice", "bob"}, storedRoom.Players)
		assert.Equal(t, entity.RoomInProgress, storedRoom.Status)
	})

	t.Run("RemovePlayer_LastOneDeletesTheRoom", func(t *testing.T) {
		ctx, st := suite.New(t)
		f := newFixture(st)
		f.user(ctx, t, "alice")
		room := f.room(ctx, t, "ABC123", "alice")

		// When: the only player leaves
		require.NoError(t, f.rooms.RemovePlayer(ctx, room, "alice", nil, testNow))
		assert.Empty(t, room.Players)

		// Then: no finder returns it
		_, err := f.rooms.FindByCode(ctx, "ABC123")
		assert.ErrorIs(t, err, apperror.ErrNotFound)

		_, err = f.rooms.FindByID(ctx, room.ID)
		assert.ErrorIs(t, err, apperror.ErrNotFound)

		exists, err := f.rooms.ExistsByCode(ctx, "ABC123")
		require.NoError(t, err)
		assert.False(t, exists)

		rooms, err := f.rooms.ListByStatus(ctx, entity.RoomWaiting)
		require.NoError(t, err)
		assert.Empty(t, rooms)

		// Then: joining the deleted room reports not found
		_, err = f.rooms.AddPlayer(ctx, room, "alice", testNow)
		assert.ErrorIs(t, err, apperror.ErrNotFound)

		// Then: the code can be reused
		reused := &entity.Room{ID: "reused", Code: "ABC123", Name: "again", OwnerID: "alice",
			Players: []string{"alice"}, Status: entity.RoomWaiting, CreatedAt: testNow, UpdatedAt: testNow}
		assert.NoError(t, f.rooms.Create(ctx, reused))
	})

	t.Run("ListByStatus_NewestFirst", func(t *testing.T) {
		ctx, st := suite.New(t)
		f := newFixture(st)
		f.user(ctx, t, "alice")
		f.user(ctx, t, "bob")

		older := f.room(ctx, t, "OLD111", "alice")

		newer := &entity.Room{ID: "room-NEW222", Code: "NEW222", Name: "new", OwnerID: "bob",
			Players: []string{"bob"}, Status: entity.RoomInProgress,
			CreatedAt: testNow.Add(time.Hour), UpdatedAt: testNow.Add(time.Hour)}
		require.NoError(t, f.rooms.Create(ctx, newer))

		finished := &entity.Room{ID: "room-FIN333", Code: "FIN333", Name: "done", OwnerID: "bob",
			Players: []string{"bob"}, Status: entity.RoomFinished, CreatedAt: testNow, UpdatedAt: testNow}
		require.NoError(t, f.rooms.Create(ctx, finished))

		// When: listing lobby rooms
		rooms, err := f.rooms.ListByStatus(ctx, entity.RoomWaiting, entity.RoomInProgress)
		require.NoError(t, err)

		// Then: finished rooms are excluded and players are loaded
		require.Len(t, rooms, 2)
		assert.Equal(t, newer.ID, rooms[0].ID)
		assert.Equal(t, older.ID, rooms[1].ID)
		assert.Equal(t, []string{"bob"}, rooms[0].Players)
	})
}
