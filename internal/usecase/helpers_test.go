package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
	"github.com/rocketscienceinc/tictactoe-arena/testing/suite"
)

var testTime = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

type published struct {
	Channel string
	Payload any
}

// recordingPublisher keeps every published payload in order.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []published
}

func (that *recordingPublisher) Publish(_ context.Context, channel string, payload any) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	// snapshot the payload so later mutations of the value do not leak into assertions
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	that.messages = append(that.messages, published{Channel: channel, Payload: json.RawMessage(data)})

	return nil
}

func (that *recordingPublisher) channels() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	channels := make([]string, 0, len(that.messages))
	for _, msg := range that.messages {
		channels = append(channels, msg.Channel)
	}

	return channels
}

func (that *recordingPublisher) reset() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.messages = nil
}

type mockPublisher struct {
	mock.Mock
}

func (that *mockPublisher) Publish(ctx context.Context, channel string, payload any) error {
	args := that.Called(ctx, channel, payload)
	return args.Error(0)
}

type env struct {
	ctx context.Context
	st  *suite.Suite

	userRepo repository.UserRepository
	roomRepo repository.RoomRepository
	gameRepo repository.GameRepository
	chatRepo repository.ChatRepository

	broker *recordingPublisher

	games *GameManager
	rooms *RoomManager
	chat  *ChatManager
	users *UserManager
}

func newEnv(t *testing.T) *env {
	t.Helper()

	ctx, st := suite.New(t)
	conn := st.Storage.Connection

	e := &env{
		ctx:      ctx,
		st:       st,
		userRepo: repository.NewUserRepository(conn),
		roomRepo: repository.NewRoomRepository(conn),
		gameRepo: repository.NewGameRepository(conn),
		chatRepo: repository.NewChatRepository(conn),
		broker:   &recordingPublisher{},
	}

	auth, err := service.NewAuthService("test-secret", 0)
	require.NoError(t, err)

	e.games = NewGameManager(st.Logger, e.roomRepo, e.gameRepo)
	e.rooms = NewRoomManager(st.Logger, e.roomRepo, e.userRepo, e.games, e.broker)
	e.chat = NewChatManager(st.Logger, e.chatRepo, e.games, e.broker)
	e.users = NewUserManager(st.Logger, e.userRepo, auth)

	return e
}

// user stores a user directly, skipping password hashing.
func (that *env) user(t *testing.T, username string) *entity.User {
	t.Helper()

	user := &entity.User{
		ID:           "id-" + username,
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "unused",
		Rating:       entity.DefaultRating,
		Status:       entity.UserOffline,
	}
	require.NoError(t, that.userRepo.Create(that.ctx, user))

	return user
}

// match creates alice (X) and bob (O) in a room with a running game.
func (that *env) match(t *testing.T) (*entity.Room, *entity.Game, *entity.User, *entity.User) {
	t.Helper()

	alice := that.user(t, "alice")
	bob := that.user(t, "bob")

	room, game, err := that.rooms.CreateRoom(that.ctx, alice.ID, CreateRoomInput{
		Name:             "Arena",
		Code:             "abc123",
		OpponentUsername: "bob",
	})
	require.NoError(t, err)

	that.broker.reset()

	return room, game, alice, bob
}

type step struct {
	user string
	cell int
}

func (that *env) play(t *testing.T, roomCode string, steps ...step) *entity.Game {
	t.Helper()

	var game *entity.Game
	for _, s := range steps {
		var err error
		game, _, err = that.games.MakeMove(that.ctx, s.user, roomCode, s.cell)
		require.NoError(t, err, "move %+v", s)
	}

	return game
}
