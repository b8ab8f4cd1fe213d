package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type ChatRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	ListByRoom(ctx context.Context, roomID string, limit, offset int) ([]*entity.ChatMessage, error)
}

type dbChat struct {
	conn *sql.DB
}

func NewChatRepository(conn *sql.DB) ChatRepository {
	return &dbChat{
		conn: conn,
	}
}

func (that *dbChat) Create(ctx context.Context, message *entity.ChatMessage) error {
	query := `INSERT INTO chat_messages (id, room_id, author_id, text, type, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := that.conn.ExecContext(ctx, query, message.ID, message.RoomID, nullString(message.AuthorID),
		message.Text, message.Type, message.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("can't save chat message: %w", err)
	}

	return nil
}

// ListByRoom - newest messages first.
func (that *dbChat) ListByRoom(ctx context.Context, roomID string, limit, offset int) ([]*entity.ChatMessage, error) {
	query := `SELECT id, room_id, author_id, text, type, created_at FROM chat_messages
		WHERE room_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	rows, err := that.conn.QueryContext(ctx, query, roomID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("can't list chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*entity.ChatMessage, 0, limit)
	for rows.Next() {
		var (
			message  entity.ChatMessage
			authorID sql.NullString
		)

		if err = rows.Scan(&message.ID, &message.RoomID, &authorID, &message.Text, &message.Type, &message.CreatedAt); err != nil {
			return nil, fmt.Errorf("can't scan chat message: %w", err)
		}

		message.AuthorID = authorID.String
		message.CreatedAt = message.CreatedAt.UTC()
		messages = append(messages, &message)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't iterate chat messages: %w", err)
	}

	return messages, nil
}
