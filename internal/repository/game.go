package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

var (
	// ErrStaleGame means another move was committed after the game was read.
	ErrStaleGame = errors.New("game state changed")
	// ErrCellTaken means the move log already holds a move for this cell.
	ErrCellTaken = errors.New("cell already has a move")
)

// GameRepository never returns soft-deleted games.
type GameRepository interface {
	Start(ctx context.Context, room *entity.Room, game *entity.Game) error
	FindByID(ctx context.Context, id string) (*entity.Game, error)
	FindActiveByRoom(ctx context.Context, roomID string) (*entity.Game, error)
	CommitMove(ctx context.Context, game *entity.Game, room *entity.Room, move *entity.Move) error
	ListMoves(ctx context.Context, gameID string) ([]*entity.Move, error)
}

type dbGame struct {
	conn *sql.DB
}

func NewGameRepository(conn *sql.DB) GameRepository {
	return &dbGame{
		conn: conn,
	}
}

const gameColumns = `id, room_id, board, player_x_id, player_o_id, turn_user_id, winner_user_id,
	status, version, started_at, ended_at`

// Start - stores a new game and makes it the room's active game.
func (that *dbGame) Start(ctx context.Context, room *entity.Room, game *entity.Game) error {
	xPlayer, okX := game.PlayerBySymbol(entity.SymbolX)
	oPlayer, okO := game.PlayerBySymbol(entity.SymbolO)
	if !okX || !okO {
		return fmt.Errorf("can't start game %s: %w", game.ID, entity.ErrSamePlayer)
	}

	board, err := json.Marshal(game.Board)
	if err != nil {
		return fmt.Errorf("could not marshal board: %w", err)
	}

	return withTx(ctx, that.conn, func(tx *sql.Tx) error {
		query := `INSERT INTO games (id, room_id, board, player_x_id, player_o_id, turn_user_id,
			winner_user_id, status, version, started_at, ended_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.ExecContext(ctx, query, game.ID, room.ID, string(board), xPlayer.UserID, oPlayer.UserID,
			nullString(game.TurnUserID), nullString(game.WinnerUserID), game.Status, game.Version,
			game.StartedAt.UTC(), nullTime(game.EndedAt))
		if isUniqueViolation(err) {
			return fmt.Errorf("room %s already has a game: %w", room.ID, ErrDuplicate)
		}
		if err != nil {
			return fmt.Errorf("failed to insert game: %w", err)
		}

		room.ActiveGameID = game.ID
		room.SyncStatus(game)

		result, err := tx.ExecContext(ctx,
			`UPDATE rooms SET active_game_id = ?, status = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
			room.ActiveGameID, room.Status, room.UpdatedAt.UTC(), room.ID)
		if err != nil {
			return fmt.Errorf("failed to link game to room: %w", err)
		}

		return expectOneRow(result)
	})
}

func (that *dbGame) FindByID(ctx context.Context, id string) (*entity.Game, error) {
	return that.findOne(ctx, `id = ?`, id)
}

func (that *dbGame) FindActiveByRoom(ctx context.Context, roomID string) (*entity.Game, error) {
	return that.findOne(ctx, `room_id = ?`, roomID)
}

func (that *dbGame) findOne(ctx context.Context, where string, arg any) (*entity.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE ` + where + ` AND deleted_at IS NULL`

	game, err := scanGame(that.conn.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// CommitMove - persists the game's new state, the move and the room status atomically.
// game.Version must be the version the game was read at; it is incremented on success.
func (that *dbGame) CommitMove(ctx context.Context, game *entity.Game, room *entity.Room, move *entity.Move) error {
	err := withTx(ctx, that.conn, func(tx *sql.Tx) error {
		if err := saveGameState(ctx, tx, game); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO moves (id, game_id, user_id, cell_index, symbol, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			move.ID, move.GameID, move.UserID, move.CellIndex, move.Symbol, move.CreatedAt.UTC())
		if isUniqueViolation(err) {
			return ErrCellTaken
		}
		if err != nil {
			return fmt.Errorf("failed to insert move: %w", err)
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE rooms SET status = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
			room.Status, room.UpdatedAt.UTC(), room.ID)
		if err != nil {
			return fmt.Errorf("failed to update room status: %w", err)
		}

		if err = expectOneRow(result); err != nil {
			return fmt.Errorf("can't update room %s: %w", room.ID, err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	game.Version++

	return nil
}

// saveGameState - writes the game's mutable fields if nobody has written since game.Version was read.
func saveGameState(ctx context.Context, tx *sql.Tx, game *entity.Game) error {
	board, err := json.Marshal(game.Board)
	if err != nil {
		return fmt.Errorf("could not marshal board: %w", err)
	}

	query := `UPDATE games
		SET board = ?, turn_user_id = ?, winner_user_id = ?, status = ?, ended_at = ?, version = version + 1
		WHERE id = ? AND version = ? AND deleted_at IS NULL`

	result, err := tx.ExecContext(ctx, query, string(board), nullString(game.TurnUserID),
		nullString(game.WinnerUserID), game.Status, nullTime(game.EndedAt), game.ID, game.Version)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't read affected rows: %w", err)
	}

	if affected == 0 {
		return ErrStaleGame
	}

	return nil
}

// ListMoves - the game's move log in play order.
func (that *dbGame) ListMoves(ctx context.Context, gameID string) ([]*entity.Move, error) {
	query := `SELECT id, game_id, user_id, cell_index, symbol, created_at FROM moves
		WHERE game_id = ? ORDER BY created_at, rowid`

	rows, err := that.conn.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list moves: %w", err)
	}
	defer rows.Close()

	var moves []*entity.Move
	for rows.Next() {
		var move entity.Move
		if err = rows.Scan(&move.ID, &move.GameID, &move.UserID, &move.CellIndex, &move.Symbol, &move.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan move: %w", err)
		}

		move.CreatedAt = move.CreatedAt.UTC()
		moves = append(moves, &move)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate moves: %w", err)
	}

	return moves, nil
}

func scanGame(row scanner) (*entity.Game, error) {
	var (
		game             entity.Game
		board            string
		xUserID, oUserID string
		turnUserID       sql.NullString
		winnerUserID     sql.NullString
		endedAt          sql.NullTime
	)

	if err := row.Scan(&game.ID, &game.RoomID, &board, &xUserID, &oUserID, &turnUserID, &winnerUserID,
		&game.Status, &game.Version, &game.StartedAt, &endedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(board), &game.Board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal board: %w", err)
	}

	game.Players = []entity.GamePlayer{
		{UserID: xUserID, Symbol: entity.SymbolX},
		{UserID: oUserID, Symbol: entity.SymbolO},
	}
	game.TurnUserID = turnUserID.String
	game.WinnerUserID = winnerUserID.String
	game.StartedAt = game.StartedAt.UTC()
	game.EndedAt = timePtr(endedAt)

	return &game, nil
}
