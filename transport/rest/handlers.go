package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

type roomUseCase interface {
	CreateRoom(ctx context.Context, ownerID string, input usecase.CreateRoomInput) (*entity.Room, *entity.Game, error)
	JoinRoom(ctx context.Context, userID, roomCode string) (*entity.Room, error)
	LeaveRoom(ctx context.Context, userID, roomCode string) error
	RoomByCode(ctx context.Context, roomCode string) (*entity.Room, error)
	LobbyRooms(ctx context.Context) ([]*entity.Room, error)
	PlayMove(ctx context.Context, userID, roomCode string, cell int) (*entity.Game, error)
}

type gameUseCase interface {
	GameByRoom(ctx context.Context, roomCode string) (*entity.Game, error)
	Moves(ctx context.Context, roomCode string) ([]*entity.Move, error)
}

type chatUseCase interface {
	SendMessage(ctx context.Context, userID, roomCode, text string) (*entity.ChatMessage, error)
	Messages(ctx context.Context, userID, roomCode string, limit, offset int) ([]*entity.ChatMessage, error)
}

type Handlers interface {
	LobbyRooms(ctx echo.Context) error
	CreateRoom(ctx echo.Context) error
	Room(ctx echo.Context) error
	JoinRoom(ctx echo.Context) error
	LeaveRoom(ctx echo.Context) error

	Game(ctx echo.Context) error
	Moves(ctx echo.Context) error
	MakeMove(ctx echo.Context) error

	Messages(ctx echo.Context) error
	SendMessage(ctx echo.Context) error
}

type CreateRoomResponse struct {
	Room *entity.Room `json:"room"`
	Game *entity.Game `json:"game"`
}

type MoveRequest struct {
	// CellIndex stays raw so that non-integral values are reported as invalid moves.
	CellIndex json.RawMessage `json:"cellIndex"`
}

type MessageRequest struct {
	Text string `json:"text"`
}

type handlers struct {
	logger *slog.Logger

	rooms roomUseCase
	games gameUseCase
	chat  chatUseCase
}

func NewHandlers(logger *slog.Logger, rooms roomUseCase, games gameUseCase, chat chatUseCase) Handlers {
	return &handlers{
		logger: logger.With("handler", "rooms"),

		rooms: rooms,
		games: games,
		chat:  chat,
	}
}

func (that *handlers) LobbyRooms(ctx echo.Context) error {
	rooms, err := that.rooms.LobbyRooms(ctx.Request().Context())
	if err != nil {
		return err
	}

	if rooms == nil {
		rooms = []*entity.Room{}
	}

	return ctx.JSON(http.StatusOK, rooms)
}

func (that *handlers) CreateRoom(ctx echo.Context) error {
	var input usecase.CreateRoomInput
	if err := ctx.Bind(&input); err != nil {
		return errInvalidBody
	}

	room, game, err := that.rooms.CreateRoom(ctx.Request().Context(), currentUser(ctx).ID, input)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, CreateRoomResponse{Room: room, Game: game})
}

func (that *handlers) Room(ctx echo.Context) error {
	room, err := that.rooms.RoomByCode(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, room)
}

func (that *handlers) JoinRoom(ctx echo.Context) error {
	room, err := that.rooms.JoinRoom(ctx.Request().Context(), currentUser(ctx).ID, ctx.Param("code"))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, room)
}

func (that *handlers) LeaveRoom(ctx echo.Context) error {
	if err := that.rooms.LeaveRoom(ctx.Request().Context(), currentUser(ctx).ID, ctx.Param("code")); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (that *handlers) Game(ctx echo.Context) error {
	game, err := that.games.GameByRoom(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, game)
}

func (that *handlers) Moves(ctx echo.Context) error {
	moves, err := that.games.Moves(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		return err
	}

	if moves == nil {
		moves = []*entity.Move{}
	}

	return ctx.JSON(http.StatusOK, moves)
}

func (that *handlers) MakeMove(ctx echo.Context) error {
	log := that.logger.With("method", "MakeMove")

	var req MoveRequest
	if err := ctx.Bind(&req); err != nil {
		return errInvalidBody
	}

	cell, err := tictactoe.ParseCellIndex(string(req.CellIndex))
	if err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrInvalidMove, err)
	}

	user := currentUser(ctx)

	game, err := that.rooms.PlayMove(ctx.Request().Context(), user.ID, ctx.Param("code"), cell)
	if err != nil {
		return err
	}

	log.Debug("move played", "userID", user.ID, "gameID", game.ID, "cell", cell)

	return ctx.JSON(http.StatusOK, game)
}

func (that *handlers) Messages(ctx echo.Context) error {
	limit, err := intQueryParam(ctx, "limit")
	if err != nil {
		return err
	}

	offset, err := intQueryParam(ctx, "offset")
	if err != nil {
		return err
	}

	messages, err := that.chat.Messages(ctx.Request().Context(), currentUser(ctx).ID, ctx.Param("code"), limit, offset)
	if err != nil {
		return err
	}

	if messages == nil {
		messages = []*entity.ChatMessage{}
	}

	return ctx.JSON(http.StatusOK, messages)
}

func (that *handlers) SendMessage(ctx echo.Context) error {
	var req MessageRequest
	if err := ctx.Bind(&req); err != nil {
		return errInvalidBody
	}

	message, err := that.chat.SendMessage(ctx.Request().Context(), currentUser(ctx).ID, ctx.Param("code"), req.Text)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, message)
}
