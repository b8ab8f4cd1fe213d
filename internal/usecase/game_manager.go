package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

type roomRepo interface {
	Create(ctx context.Context, room *entity.Room) error
	AddPlayer(ctx context.Context, room *entity.Room, userID string, joinedAt time.Time) (bool, error)
	RemovePlayer(ctx context.Context, room *entity.Room, userID string, game *entity.Game, leftAt time.Time) error
	FindByCode(ctx context.Context, code string) (*entity.Room, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ListByStatus(ctx context.Context, statuses ...entity.RoomStatus) ([]*entity.Room, error)
}

type gameRepo interface {
	Start(ctx context.Context, room *entity.Room, game *entity.Game) error
	FindActiveByRoom(ctx context.Context, roomID string) (*entity.Game, error)
	CommitMove(ctx context.Context, game *entity.Game, room *entity.Room, move *entity.Move) error
	ListMoves(ctx context.Context, gameID string) ([]*entity.Move, error)
}

// GameManager - applies moves to the persisted game of a room.
type GameManager struct {
	logger *slog.Logger

	roomRepo roomRepo
	gameRepo gameRepo

	now func() time.Time
}

func NewGameManager(logger *slog.Logger, roomRepo roomRepo, gameRepo gameRepo) *GameManager {
	return &GameManager{
		logger: logger,

		roomRepo: roomRepo,
		gameRepo: gameRepo,

		now: func() time.Time { return time.Now().UTC() },
	}
}

// MakeMove - plays cell for userID in the room's active game.
// The returned room carries the status the move left it in; it changed only when the game is over.
func (that *GameManager) MakeMove(ctx context.Context, userID, roomCode string, cell int) (*entity.Game, *entity.Room, error) {
	code := entity.NormalizeRoomCode(roomCode)
	log := that.logger.With("method", "MakeMove", "roomCode", code, "userID", userID, "cell", cell)

	if err := tictactoe.ValidateCellIndex(cell); err != nil {
		return nil, nil, invalidMove(err)
	}

	room, err := that.roomByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	if !room.HasPlayer(userID) {
		return nil, nil, fmt.Errorf("%w: you are not a member of this room", apperror.ErrUnauthorized)
	}

	game, err := that.activeGame(ctx, room)
	if err != nil {
		return nil, nil, err
	}

	if err = game.ConfirmRunning(); err != nil {
		return nil, nil, err
	}

	player, ok := game.PlayerByUserID(userID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: you are not part of this game", apperror.ErrUnauthorized)
	}

	turnUserID := game.TurnUserID
	if turnUserID == "" {
		// X is listed first and opens the game.
		log.Warn("game has no turn holder, defaulting to first player", "gameID", game.ID)
		turnUserID = game.Players[0].UserID
	}

	if turnUserID != userID {
		return nil, nil, apperror.ErrNotYourTurn
	}

	board, err := tictactoe.ApplyMove(game.Board, cell, player.Symbol)
	if err != nil {
		return nil, nil, invalidMove(err)
	}

	now := that.now()

	next := game.Clone()
	next.Board = board
	that.resolve(next, player, now)

	nextRoom := *room
	nextRoom.SyncStatus(next)
	nextRoom.UpdatedAt = now

	move := &entity.Move{
		ID:        uuid.NewString(),
		GameID:    game.ID,
		UserID:    userID,
		CellIndex: cell,
		Symbol:    player.Symbol,
		CreatedAt: now,
	}

	if err = that.gameRepo.CommitMove(ctx, next, &nextRoom, move); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleGame):
			log.Info("move lost a race", "gameID", game.ID)
			return nil, nil, fmt.Errorf("%w: game state changed", apperror.ErrNotYourTurn)
		case errors.Is(err, repository.ErrCellTaken):
			return nil, nil, invalidMove(tictactoe.ErrCellOccupied)
		case errors.Is(err, apperror.ErrNotFound):
			return nil, nil, apperror.ErrRoomNotFound
		default:
			log.Error("failed to commit move", "gameID", game.ID, "error", err)
			return nil, nil, fmt.Errorf("failed to commit move: %w", err)
		}
	}

	log.Info("move accepted", "gameID", next.ID, "status", next.Status)

	return next, &nextRoom, nil
}

// resolve - the post-move status transition, evaluated against the new board.
func (that *GameManager) resolve(game *entity.Game, mover entity.GamePlayer, now time.Time) {
	if symbol, ok := tictactoe.DetectWinner(game.Board); ok {
		winner, _ := game.PlayerBySymbol(symbol)

		game.Status = entity.GameFinished
		game.WinnerUserID = winner.UserID
		game.TurnUserID = ""
		game.EndedAt = &now

		return
	}

	if tictactoe.DetectDraw(game.Board) {
		game.Status = entity.GameDraw
		game.TurnUserID = ""
		game.EndedAt = &now

		return
	}

	opponent, _ := game.OpponentOf(mover.UserID)
	game.TurnUserID = opponent.UserID
}

// StartGame - starts a game between the room's first two players; the first one plays X.
func (that *GameManager) StartGame(ctx context.Context, room *entity.Room) (*entity.Game, error) {
	if len(room.Players) < entity.MaxRoomPlayers {
		return nil, fmt.Errorf("%w: a game needs two players", apperror.ErrInvalidInput)
	}

	now := that.now()

	game, err := entity.NewGame(uuid.NewString(), room.ID, room.Players[0], room.Players[1], now)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrInvalidInput, err)
	}

	room.UpdatedAt = now
	if err = that.gameRepo.Start(ctx, room, game); err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	that.logger.Info("game started", "method", "StartGame", "roomCode", room.Code, "gameID", game.ID)

	return game, nil
}

// GameByRoom - the room's active game.
func (that *GameManager) GameByRoom(ctx context.Context, roomCode string) (*entity.Game, error) {
	room, err := that.roomByCode(ctx, entity.NormalizeRoomCode(roomCode))
	if err != nil {
		return nil, err
	}

	return that.activeGame(ctx, room)
}

// Moves - the active game's move log in play order.
func (that *GameManager) Moves(ctx context.Context, roomCode string) ([]*entity.Move, error) {
	game, err := that.GameByRoom(ctx, roomCode)
	if err != nil {
		return nil, err
	}

	moves, err := that.gameRepo.ListMoves(ctx, game.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list moves: %w", err)
	}

	return moves, nil
}

func (that *GameManager) roomByCode(ctx context.Context, code string) (*entity.Room, error) {
	room, err := that.roomRepo.FindByCode(ctx, code)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

func (that *GameManager) activeGame(ctx context.Context, room *entity.Room) (*entity.Game, error) {
	game, err := that.gameRepo.FindActiveByRoom(ctx, room.ID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("%w: no active game found for this room", apperror.ErrGameNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

func invalidMove(reason error) error {
	return fmt.Errorf("%w: %w", apperror.ErrInvalidMove, reason)
}
