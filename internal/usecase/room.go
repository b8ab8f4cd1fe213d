package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pubsub"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
)

const (
	roomCodeAttempts = 5
	leaveAttempts    = 3
)

type publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

type userFinder interface {
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
}

type CreateRoomInput struct {
	Name             string `json:"name"`
	Code             string `json:"code,omitempty"`
	OpponentUsername string `json:"opponentUsername"`
}

// RoomManager - room lifecycle and the broadcast side of every room change.
type RoomManager struct {
	logger *slog.Logger

	roomRepo roomRepo
	userRepo userFinder
	games    *GameManager
	broker   publisher

	now     func() time.Time
	newCode func() (string, error)
}

func NewRoomManager(logger *slog.Logger, roomRepo roomRepo, userRepo userFinder, games *GameManager, broker publisher) *RoomManager {
	return &RoomManager{
		logger: logger,

		roomRepo: roomRepo,
		userRepo: userRepo,
		games:    games,
		broker:   broker,

		now:     func() time.Time { return time.Now().UTC() },
		newCode: pkg.GenerateRoomCode,
	}
}

// CreateRoom - creates a room with the owner and the named opponent and starts their game right away.
// The owner plays X.
func (that *RoomManager) CreateRoom(ctx context.Context, ownerID string, input CreateRoomInput) (*entity.Room, *entity.Game, error) {
	log := that.logger.With("method", "CreateRoom", "userID", ownerID)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: room name is required", apperror.ErrInvalidInput)
	}

	opponentName := strings.TrimSpace(input.OpponentUsername)
	if opponentName == "" {
		return nil, nil, fmt.Errorf("%w: opponent username is required", apperror.ErrInvalidInput)
	}

	code, err := that.freeCode(ctx, entity.NormalizeRoomCode(input.Code))
	if err != nil {
		return nil, nil, err
	}

	opponent, err := that.userRepo.FindByUsername(ctx, opponentName)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: opponent not found", apperror.ErrUserNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find opponent: %w", err)
	}

	if opponent.ID == ownerID {
		return nil, nil, fmt.Errorf("%w: you cannot select yourself as opponent", apperror.ErrInvalidInput)
	}

	now := that.now()
	room := &entity.Room{
		ID:        uuid.NewString(),
		Code:      code,
		Name:      name,
		OwnerID:   ownerID,
		Players:   []string{ownerID, opponent.ID},
		Status:    entity.RoomWaiting,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err = that.roomRepo.Create(ctx, room); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil, fmt.Errorf("%w: room code %s is already taken", apperror.ErrInvalidInput, code)
		}

		return nil, nil, fmt.Errorf("failed to create room: %w", err)
	}

	game, err := that.games.StartGame(ctx, room)
	if err != nil {
		return nil, nil, err
	}

	log.Info("room created", "roomCode", room.Code, "gameID", game.ID)

	that.publish(ctx, pubsub.RoomUpdated, room.Code, room)
	that.publish(ctx, pubsub.GameUpdated, room.Code, game)

	return room, game, nil
}

// freeCode - the desired code when it is free, otherwise a random one. Gives up checking after a few attempts.
func (that *RoomManager) freeCode(ctx context.Context, desired string) (string, error) {
	code := desired
	if code == "" {
		var err error
		if code, err = that.newCode(); err != nil {
			return "", err
		}
	}

	for range roomCodeAttempts {
		exists, err := that.roomRepo.ExistsByCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check room code: %w", err)
		}

		if !exists {
			break
		}

		if code, err = that.newCode(); err != nil {
			return "", err
		}
	}

	return code, nil
}

// JoinRoom - adds userID to the room; joining twice is a no-op. The player taking the second seat starts the game.
func (that *RoomManager) JoinRoom(ctx context.Context, userID, roomCode string) (*entity.Room, error) {
	log := that.logger.With("method", "JoinRoom", "userID", userID)

	room, err := that.games.roomByCode(ctx, entity.NormalizeRoomCode(roomCode))
	if err != nil {
		return nil, err
	}

	added, err := that.roomRepo.AddPlayer(ctx, room, userID, that.now())
	switch {
	case errors.Is(err, repository.ErrNoSeat):
		return nil, apperror.ErrRoomFull
	case errors.Is(err, repository.ErrRoomClosed):
		return nil, fmt.Errorf("%w: the game in this room is over", apperror.ErrGameAlreadyFinished)
	case errors.Is(err, apperror.ErrNotFound):
		return nil, apperror.ErrRoomNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to join room: %w", err)
	}

	if added && room.IsFull() && room.ActiveGameID == "" {
		game, err := that.games.StartGame(ctx, room)
		if err != nil {
			return nil, err
		}

		that.publish(ctx, pubsub.GameUpdated, room.Code, game)
	}

	log.Info("player joined room", "roomCode", room.Code, "seated", added)
	that.publish(ctx, pubsub.RoomUpdated, room.Code, room)

	return room, nil
}

// LeaveRoom - removes userID. Leaving a running game forfeits it to the opponent.
// The last player out deletes the room.
func (that *RoomManager) LeaveRoom(ctx context.Context, userID, roomCode string) error {
	log := that.logger.With("method", "LeaveRoom", "userID", userID)

	var (
		room      *entity.Room
		forfeited *entity.Game
		err       error
	)

	// a move committed between the read and the leave is retried against the new state
	for attempt := 1; ; attempt++ {
		room, forfeited, err = that.leave(ctx, userID, entity.NormalizeRoomCode(roomCode))
		if !errors.Is(err, repository.ErrStaleGame) || attempt == leaveAttempts {
			break
		}
	}

	switch {
	case errors.Is(err, repository.ErrNotMember):
		return fmt.Errorf("%w: you are not a member of this room", apperror.ErrUnauthorized)
	case errors.Is(err, apperror.ErrNotFound):
		return apperror.ErrRoomNotFound
	case err != nil:
		return err
	}

	log.Info("player left room", "roomCode", room.Code, "playersLeft", len(room.Players), "forfeit", forfeited != nil)

	if forfeited != nil {
		that.publish(ctx, pubsub.GameUpdated, room.Code, forfeited)
	}
	that.publish(ctx, pubsub.RoomUpdated, room.Code, room)

	return nil
}

func (that *RoomManager) leave(ctx context.Context, userID, code string) (*entity.Room, *entity.Game, error) {
	room, err := that.games.roomByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	if !room.HasPlayer(userID) {
		return nil, nil, repository.ErrNotMember
	}

	now := that.now()

	var game, forfeited *entity.Game
	if room.ActiveGameID != "" {
		if game, err = that.games.activeGame(ctx, room); err != nil {
			return nil, nil, err
		}

		if _, ok := game.PlayerByUserID(userID); ok && game.IsRunning() {
			forfeited = game.Clone()
			forfeited.Forfeit(userID, now)
			game = forfeited
		}
	}

	room.SyncStatus(game)

	if err = that.roomRepo.RemovePlayer(ctx, room, userID, forfeited, now); err != nil {
		return nil, nil, err
	}

	return room, forfeited, nil
}

func (that *RoomManager) RoomByCode(ctx context.Context, roomCode string) (*entity.Room, error) {
	return that.games.roomByCode(ctx, entity.NormalizeRoomCode(roomCode))
}

// LobbyRooms - open rooms, newest first.
func (that *RoomManager) LobbyRooms(ctx context.Context) ([]*entity.Room, error) {
	rooms, err := that.roomRepo.ListByStatus(ctx, entity.RoomWaiting, entity.RoomInProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to list lobby rooms: %w", err)
	}

	return rooms, nil
}

// PlayMove - makes the move and broadcasts the new game, plus the room once the game is over.
func (that *RoomManager) PlayMove(ctx context.Context, userID, roomCode string, cell int) (*entity.Game, error) {
	game, room, err := that.games.MakeMove(ctx, userID, roomCode, cell)
	if err != nil {
		return nil, err
	}

	that.publish(ctx, pubsub.GameUpdated, room.Code, game)
	if game.IsOver() {
		that.publish(ctx, pubsub.RoomUpdated, room.Code, room)
	}

	return game, nil
}

// publish - the change is already stored, so a failed broadcast is logged and not returned.
func (that *RoomManager) publish(ctx context.Context, event, roomCode string, payload any) {
	channel := pubsub.Channel(event, roomCode)

	if err := that.broker.Publish(ctx, channel, payload); err != nil {
		that.logger.Error("failed to publish", "method", "publish", "channel", channel, "error", err)
	}
}
