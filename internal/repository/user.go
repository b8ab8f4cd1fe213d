package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	Leaderboard(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error)
}

type dbUser struct {
	conn *sql.DB
}

func NewUserRepository(conn *sql.DB) UserRepository {
	return &dbUser{
		conn: conn,
	}
}

const userColumns = `id, email, username, password_hash, rating, status, created_at`

func (that *dbUser) Create(ctx context.Context, user *entity.User) error {
	query := `INSERT INTO users (id, email, username, password_hash, rating, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := that.conn.ExecContext(ctx, query,
		user.ID, user.Email, user.Username, user.PasswordHash, user.Rating, user.Status, user.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return fmt.Errorf("can't save user: %w", ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("can't save user: %w", err)
	}

	return nil
}

func (that *dbUser) FindByID(ctx context.Context, id string) (*entity.User, error) {
	return that.findOne(ctx, `id = ?`, id)
}

func (that *dbUser) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return that.findOne(ctx, `email = ?`, email)
}

func (that *dbUser) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	return that.findOne(ctx, `username = ?`, username)
}

func (that *dbUser) findOne(ctx context.Context, where string, arg any) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` AND deleted_at IS NULL`

	user, err := scanUser(that.conn.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("can't find user: %w", err)
	}

	return user, nil
}

// Leaderboard - users ordered by rating; played and won counts come from decided games.
func (that *dbUser) Leaderboard(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error) {
	query := `SELECT u.id, u.email, u.username, u.password_hash, u.rating, u.status, u.created_at,
		(SELECT COUNT(*) FROM games g
			WHERE g.deleted_at IS NULL AND g.status IN (?, ?)
			AND (g.player_x_id = u.id OR g.player_o_id = u.id)),
		(SELECT COUNT(*) FROM games g
			WHERE g.deleted_at IS NULL AND g.status = ? AND g.winner_user_id = u.id)
		FROM users u
		WHERE u.deleted_at IS NULL
		ORDER BY u.rating DESC, u.created_at ASC
		LIMIT ?`

	rows, err := that.conn.QueryContext(ctx, query,
		entity.GameFinished, entity.GameDraw, entity.GameFinished, limit)
	if err != nil {
		return nil, fmt.Errorf("can't load leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []entity.LeaderboardEntry
	for rows.Next() {
		var (
			user        entity.User
			gamesPlayed int
			wins        int
		)

		if err = rows.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash,
			&user.Rating, &user.Status, &user.CreatedAt, &gamesPlayed, &wins); err != nil {
			return nil, fmt.Errorf("can't scan leaderboard row: %w", err)
		}
		user.CreatedAt = user.CreatedAt.UTC()

		entry := entity.LeaderboardEntry{
			User:        &user,
			Rank:        len(entries) + 1,
			Rating:      user.Rating,
			GamesPlayed: gamesPlayed,
			Wins:        wins,
		}
		if gamesPlayed > 0 {
			entry.WinRate = float64(wins) / float64(gamesPlayed)
		}

		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't iterate leaderboard: %w", err)
	}

	return entries, nil
}

func scanUser(row scanner) (*entity.User, error) {
	var user entity.User

	if err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash,
		&user.Rating, &user.Status, &user.CreatedAt); err != nil {
		return nil, err
	}

	user.CreatedAt = user.CreatedAt.UTC()

	return &user, nil
}
