package usecase

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

func TestChatManager_SendMessage(t *testing.T) {
	t.Run("Stores and broadcasts a trimmed message", func(t *testing.T) {
		e := newEnv(t)
		room, _, alice, _ := e.match(t)

		// When: alice says hi with surrounding whitespace
		message, err := e.chat.SendMessage(e.ctx, alice.ID, "abc123", "  hi bob \n")
		require.NoError(t, err)

		// Then: the text is trimmed and attributed
		assert.Equal(t, "hi bob", message.Text)
		assert.Equal(t, alice.ID, message.AuthorID)
		assert.Equal(t, room.ID, message.RoomID)
		assert.Equal(t, entity.ChatUser, message.Type)

		// Then: the stored message is what was broadcast
		require.Len(t, e.broker.messages, 1)
		assert.Equal(t, "MESSAGE_ADDED:ABC123", e.broker.messages[0].Channel)

		var broadcast entity.ChatMessage
		require.NoError(t, json.Unmarshal(e.broker.messages[0].Payload.(json.RawMessage), &broadcast))
		assert.Equal(t, message.ID, broadcast.ID)
		assert.Equal(t, "hi bob", broadcast.Text)
	})

	t.Run("Rejects empty and oversized text", func(t *testing.T) {
		e := newEnv(t)
		room, _, alice, _ := e.match(t)

		for _, text := range []string{"", "   \t", strings.Repeat("x", entity.MaxChatMessageLength+1)} {
			_, err := e.chat.SendMessage(e.ctx, alice.ID, room.Code, text)

			assert.ErrorIs(t, err, apperror.ErrInvalidInput)
		}

		assert.Empty(t, e.broker.channels())
	})

	t.Run("Limit counts characters, not bytes", func(t *testing.T) {
		e := newEnv(t)
		room, _, alice, _ := e.match(t)

		_, err := e.chat.SendMessage(e.ctx, alice.ID, room.Code, strings.Repeat("ж", entity.MaxChatMessageLength))

		assert.NoError(t, err)
	})

	t.Run("Only members can write", func(t *testing.T) {
		e := newEnv(t)
		room, _, _, _ := e.match(t)
		carol := e.user(t, "carol")

		_, err := e.chat.SendMessage(e.ctx, carol.ID, room.Code, "hello")

		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})

	t.Run("Unknown room", func(t *testing.T) {
		e := newEnv(t)
		alice := e.user(t, "alice")

		_, err := e.chat.SendMessage(e.ctx, alice.ID, "NOPE00", "hello")

		assert.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})
}

func TestChatManager_Messages(t *testing.T) {
	t.Run("Newest first with paging", func(t *testing.T) {
		e := newEnv(t)
		room, _, alice, bob := e.match(t)

		// Given: three messages a second apart
		for i, s := range []struct{ user, text string }{{alice.ID, "one"}, {bob.ID, "two"}, {alice.ID, "three"}} {
			e.chat.now = func() time.Time { return testTime.Add(time.Duration(i) * time.Second) }
			_, err := e.chat.SendMessage(e.ctx, s.user, room.Code, s.text)
			require.NoError(t, err)
		}

		// When: reading the first page of two and the rest
		first, err := e.chat.Messages(e.ctx, bob.ID, room.Code, 2, 0)
		require.NoError(t, err)
		rest, err := e.chat.Messages(e.ctx, bob.ID, room.Code, 2, 2)
		require.NoError(t, err)

		// Then: pages are in reverse chronological order
		require.Len(t, first, 2)
		assert.Equal(t, "three", first[0].Text)
		assert.Equal(t, "two", first[1].Text)
		require.Len(t, rest, 1)
		assert.Equal(t, "one", rest[0].Text)
	})

	t.Run("Only members can read", func(t *testing.T) {
		e := newEnv(t)
		room, _, _, _ := e.match(t)
		carol := e.user(t, "carol")

		_, err := e.chat.Messages(e.ctx, carol.ID, room.Code, 0, 0)

		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	})
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultPageLimit},
		{-5, 1},
		{1, 1},
		{75, 75},
		{MaxPageLimit, MaxPageLimit},
		{MaxPageLimit + 1, MaxPageLimit},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ClampLimit(tt.limit), "limit %d", tt.limit)
	}
}
