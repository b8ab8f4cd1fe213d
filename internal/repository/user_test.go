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

func TestUserRepository(t *testing.T) {
	t.Run("Create_Find", func(t *testing.T) {
		ctx, st := suite.New(t)
		f := newFixture(st)

		// Given: a stored user
		user := f.user(ctx, t, "alice")

		// Then: it can be found by id, email and username
		byID, err := f.users.FindByID(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, user, byID)

		byEmail, err := f.users.FindByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		byName, err := f.users.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)
	})

	t.Run("Create_Duplicate", func(t *testing.T) {
		ctx, st := suite.New(t)
		f := newFixture(st)
		f.user(ctx, t, "alice")

		// When: another user takes the same email
		err := f.users.Create(ctx, &entity.User{ID: "other", Email: "alice@example.com", Username: "other",
			PasswordHash: "hash", Rating: entity.DefaultRating, Status: entity.UserOffline, CreatedAt: testNow})

		// Then: ErrDuplicate is returned
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("Find_NotFound", func(t *testing.T) {
		ctx, st := suite.New(t)
		f := newFixture(st)

		_, err := f.users.FindByEmail(ctx, "nobody@example.com")

		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestUserRepository_Leaderboard(t *testing.T) {
	ctx, st := suite.New(t)
	f := newFixture(st)
	f.user(ctx, t, "alice")
	f.user(ctx, t, "bob")
	f.user(ctx, t, "carol")

	// Given: alice beat bob, and bob has a running game with carol
	won := f.room(ctx, t, "WON111", "alice", "bob")
	game := f.game(ctx, t, won)

	endedAt := testNow.Add(time.Minute)
	final := game.Clone()
	final.Board = entity.Board{entity.SymbolX, entity.SymbolX, entity.SymbolX}
	final.Status = entity.GameFinished
	final.WinnerUserID = "alice"
	final.TurnUserID = ""
	final.EndedAt = &endedAt
	won.SyncStatus(final)
	require.NoError(t, f.games.CommitMove(ctx, final, won,
		&entity.Move{ID: "m1", GameID: game.ID, UserID: "alice", CellIndex: 2, Symbol: entity.SymbolX, CreatedAt: endedAt}))

	running := f.room(ctx, t, "RUN222", "bob", "carol")
	f.game(ctx, t, running)

	// When: loading the leaderboard
	entries, err := f.users.Leaderboard(ctx, 10)
	require.NoError(t, err)

	// Then: ranks follow rating then registration order and only decided games count
	require.Len(t, entries, 3)

	byUser := map[string]struct {
		rank, played, wins int
		rate               float64
	}{}
	for _, entry := range entries {
		byUser[entry.User.ID] = struct {
			rank, played, wins int
			rate               float64
		}{entry.Rank, entry.GamesPlayed, entry.Wins, entry.WinRate}
	}

	assert.Equal(t, 1, byUser["alice"].played)
	assert.Equal(t, 1, byUser["alice"].wins)
	assert.InDelta(t, 1.0, byUser["alice"].rate, 0.0001)
	assert.Equal(t, 1, byUser["bob"].played)
	assert.Equal(t, 0, byUser["bob"].wins)
	assert.Equal(t, 0, byUser["carol"].played)
	assert.InDelta(t, 0.0, byUser["carol"].rate, 0.0001)

	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Rank)
		assert.Equal(t, entity.DefaultRating, entry.Rating)
	}

	// Then: the limit is applied
	limited, err := f.users.Leaderboard(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
