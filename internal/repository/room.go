package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

var (
	// ErrNoSeat means both seats of the room are taken.
	ErrNoSeat = errors.New("room has no free seat")
	// ErrRoomClosed means the room's game is over and it takes no new players.
	ErrRoomClosed = errors.New("room is closed")
	// ErrNotMember means the user holds no seat in the room.
	ErrNotMember = errors.New("user is not in the room")
)

// RoomRepository never returns soft-deleted rooms.
type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	AddPlayer(ctx context.Context, room *entity.Room, userID string, joinedAt time.Time) (bool, error)
	RemovePlayer(ctx context.Context, room *entity.Room, userID string, game *entity.Game, leftAt time.Time) error
	FindByCode(ctx context.Context, code string) (*entity.Room, error)
	FindByID(ctx context.Context, id string) (*entity.Room, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	ListByStatus(ctx context.Context, statuses ...entity.RoomStatus) ([]*entity.Room, error)
}

type dbRoom struct {
	conn *sql.DB
}

func NewRoomRepository(conn *sql.DB) RoomRepository {
	return &dbRoom{
		conn: conn,
	}
}

const roomColumns = `id, code, name, owner_id, status, active_game_id, created_at, updated_at`

func (that *dbRoom) Create(ctx context.Context, room *entity.Room) error {
	return withTx(ctx, that.conn, func(tx *sql.Tx) error {
		query := `INSERT INTO rooms (id, code, name, owner_id, status, active_game_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

		_, err := tx.ExecContext(ctx, query, room.ID, room.Code, room.Name, room.OwnerID, room.Status,
			nullString(room.ActiveGameID), room.CreatedAt.UTC(), room.UpdatedAt.UTC())
		if isUniqueViolation(err) {
			return fmt.Errorf("can't save room %s: %w", room.Code, ErrDuplicate)
		}
		if err != nil {
			return fmt.Errorf("can't save room: %w", err)
		}

		return savePlayers(ctx, tx, room)
	})
}

// AddPlayer - claims a free seat for userID and refreshes room from storage.
// Reports false when userID already held a seat.
func (that *dbRoom) AddPlayer(ctx context.Context, room *entity.Room, userID string, joinedAt time.Time) (bool, error) {
	var (
		current *entity.Room
		added   bool
	)

	err := withTx(ctx, that.conn, func(tx *sql.Tx) error {
		var err error

		current, err = scanRoom(tx.QueryRowContext(ctx,
			`SELECT `+roomColumns+` FROM rooms WHERE id = ? AND deleted_at IS NULL`, room.ID))
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("can't find room: %w", err)
		}

		if current.Players, err = loadPlayers(ctx, tx, room.ID); err != nil {
			return err
		}

		if current.HasPlayer(userID) {
			return nil
		}

		if current.Status == entity.RoomFinished {
			return ErrRoomClosed
		}

		if added, err = claimSeat(ctx, tx, room.ID, userID); err != nil || !added {
			return err
		}

		current.UpdatedAt = joinedAt.UTC()
		_, err = tx.ExecContext(ctx, `UPDATE rooms SET updated_at = ? WHERE id = ?`, current.UpdatedAt, room.ID)
		if err != nil {
			return fmt.Errorf("can't update room: %w", err)
		}

		current.Players, err = loadPlayers(ctx, tx, room.ID)

		return err
	})
	if err != nil {
		return false, err
	}

	*room = *current

	return added, nil
}

// claimSeat - the seat count is part of the insert, so two joiners never both get the last seat.
func claimSeat(ctx context.Context, tx *sql.Tx, roomID, userID string) (bool, error) {
	query := `INSERT INTO room_players (room_id, user_id, position)
		SELECT ?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM room_players WHERE room_id = ?)
		WHERE (SELECT COUNT(1) FROM room_players WHERE room_id = ?) < ?`

	result, err := tx.ExecContext(ctx, query, roomID, userID, roomID, roomID, entity.MaxRoomPlayers)
	if isUniqueViolation(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("can't save room player: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("can't read affected rows: %w", err)
	}

	if affected == 0 {
		return false, ErrNoSeat
	}

	return true, nil
}

// RemovePlayer - frees the seat of userID and stores room.Status. The first remaining player becomes
// the owner if the owner left; an emptied room is soft-deleted and its code becomes free.
// A non-nil game is saved in the same transaction, conditioned on its version.
func (that *dbRoom) RemovePlayer(ctx context.Context, room *entity.Room, userID string, game *entity.Game, leftAt time.Time) error {
	var (
		players []string
		ownerID = room.OwnerID
	)

	err := withTx(ctx, that.conn, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM room_players WHERE room_id = ? AND user_id = ?`, room.ID, userID)
		if err != nil {
			return fmt.Errorf("can't remove room player: %w", err)
		}

		if affected, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("can't read affected rows: %w", err)
		} else if affected == 0 {
			return ErrNotMember
		}

		if game != nil {
			if err = saveGameState(ctx, tx, game); err != nil {
				return err
			}
		}

		if players, err = loadPlayers(ctx, tx, room.ID); err != nil {
			return err
		}

		if ownerID == userID && len(players) > 0 {
			ownerID = players[0]
		}

		var deletedAt sql.NullTime
		if len(players) == 0 {
			deletedAt = sql.NullTime{Time: leftAt.UTC(), Valid: true}
		}

		result, err = tx.ExecContext(ctx,
			`UPDATE rooms SET owner_id = ?, status = ?, updated_at = ?, deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
			ownerID, room.Status, leftAt.UTC(), deletedAt, room.ID)
		if err != nil {
			return fmt.Errorf("can't update room: %w", err)
		}

		if err = expectOneRow(result); err != nil {
			return fmt.Errorf("can't update room %s: %w", room.ID, err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	if game != nil {
		game.Version++
	}

	room.Players = players
	room.OwnerID = ownerID
	room.UpdatedAt = leftAt.UTC()

	return nil
}

func (that *dbRoom) FindByCode(ctx context.Context, code string) (*entity.Room, error) {
	return that.findOne(ctx, `code = ?`, code)
}

func (that *dbRoom) FindByID(ctx context.Context, id string) (*entity.Room, error) {
	return that.findOne(ctx, `id = ?`, id)
}

func (that *dbRoom) findOne(ctx context.Context, where string, arg any) (*entity.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE ` + where + ` AND deleted_at IS NULL`

	room, err := scanRoom(that.conn.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find room: %w", err)
	}

	if room.Players, err = loadPlayers(ctx, that.conn, room.ID); err != nil {
		return nil, err
	}

	return room, nil
}

func (that *dbRoom) ExistsByCode(ctx context.Context, code string) (bool, error) {
	query := `SELECT COUNT(1) FROM rooms WHERE code = ? AND deleted_at IS NULL`

	var count int
	if err := that.conn.QueryRowContext(ctx, query, code).Scan(&count); err != nil {
		return false, fmt.Errorf("can't check room code: %w", err)
	}

	return count > 0, nil
}

// ListByStatus - rooms in any of the given statuses, newest first.
func (that *dbRoom) ListByStatus(ctx context.Context, statuses ...entity.RoomStatus) ([]*entity.Room, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, status)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
	query := `SELECT ` + roomColumns + ` FROM rooms
		WHERE status IN (` + placeholders + `) AND deleted_at IS NULL
		ORDER BY created_at DESC, rowid DESC`

	rows, err := that.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("can't list rooms: %w", err)
	}

	var rooms []*entity.Room
	for rows.Next() {
		room, scanErr := scanRoom(rows)
		if scanErr != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("can't scan room: %w", scanErr)
		}

		rooms = append(rooms, room)
	}

	if err = rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("can't iterate rooms: %w", err)
	}

	// rows must be closed before the player lookups: the pool holds a single connection.
	_ = rows.Close()

	for _, room := range rooms {
		if room.Players, err = loadPlayers(ctx, that.conn, room.ID); err != nil {
			return nil, err
		}
	}

	return rooms, nil
}

func savePlayers(ctx context.Context, tx *sql.Tx, room *entity.Room) error {
	query := `INSERT INTO room_players (room_id, user_id, position) VALUES (?, ?, ?)`
	for position, userID := range room.Players {
		if _, err := tx.ExecContext(ctx, query, room.ID, userID, position); err != nil {
			return fmt.Errorf("can't save room player: %w", err)
		}
	}

	return nil
}

func loadPlayers(ctx context.Context, q querier, roomID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT user_id FROM room_players WHERE room_id = ? ORDER BY position`, roomID)
	if err != nil {
		return nil, fmt.Errorf("can't load room players: %w", err)
	}
	defer rows.Close()

	players := make([]string, 0, entity.MaxRoomPlayers)
	for rows.Next() {
		var userID string
		if err = rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("can't scan room player: %w", err)
		}

		players = append(players, userID)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't iterate room players: %w", err)
	}

	return players, nil
}

func scanRoom(row scanner) (*entity.Room, error) {
	var (
		room         entity.Room
		activeGameID sql.NullString
	)

	if err := row.Scan(&room.ID, &room.Code, &room.Name, &room.OwnerID, &room.Status,
		&activeGameID, &room.CreatedAt, &room.UpdatedAt); err != nil {
		return nil, err
	}

	room.ActiveGameID = activeGameID.String
	room.CreatedAt = room.CreatedAt.UTC()
	room.UpdatedAt = room.UpdatedAt.UTC()

	return &room, nil
}

func expectOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("can't read affected rows: %w", err)
	}

	if affected == 0 {
		return apperror.ErrNotFound
	}

	return nil
}
