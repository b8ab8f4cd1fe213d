package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pubsub"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type chatRepo interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	ListByRoom(ctx context.Context, roomID string, limit, offset int) ([]*entity.ChatMessage, error)
}

type ChatManager struct {
	logger *slog.Logger

	chatRepo chatRepo
	games    *GameManager
	broker   publisher

	now func() time.Time
}

func NewChatManager(logger *slog.Logger, chatRepo chatRepo, games *GameManager, broker publisher) *ChatManager {
	return &ChatManager{
		logger: logger,

		chatRepo: chatRepo,
		games:    games,
		broker:   broker,

		now: func() time.Time { return time.Now().UTC() },
	}
}

func (that *ChatManager) SendMessage(ctx context.Context, userID, roomCode, text string) (*entity.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: message text cannot be empty", apperror.ErrInvalidInput)
	}

	if utf8.RuneCountInString(text) > entity.MaxChatMessageLength {
		return nil, fmt.Errorf("%w: message text cannot exceed %d characters", apperror.ErrInvalidInput, entity.MaxChatMessageLength)
	}

	room, err := that.member(ctx, userID, roomCode)
	if err != nil {
		return nil, err
	}

	message := &entity.ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    room.ID,
		AuthorID:  userID,
		Text:      text,
		Type:      entity.ChatUser,
		CreatedAt: that.now(),
	}

	if err = that.chatRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	channel := pubsub.Channel(pubsub.MessageAdded, room.Code)
	if err = that.broker.Publish(ctx, channel, message); err != nil {
		that.logger.Error("failed to publish", "method", "SendMessage", "channel", channel, "error", err)
	}

	return message, nil
}

// Messages - newest first. limit is clamped to [1, MaxPageLimit], 0 means DefaultPageLimit.
func (that *ChatManager) Messages(ctx context.Context, userID, roomCode string, limit, offset int) ([]*entity.ChatMessage, error) {
	room, err := that.member(ctx, userID, roomCode)
	if err != nil {
		return nil, err
	}

	messages, err := that.chatRepo.ListByRoom(ctx, room.ID, ClampLimit(limit), max(offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

func (that *ChatManager) member(ctx context.Context, userID, roomCode string) (*entity.Room, error) {
	room, err := that.games.roomByCode(ctx, entity.NormalizeRoomCode(roomCode))
	if err != nil {
		return nil, err
	}

	if !room.HasPlayer(userID) {
		return nil, fmt.Errorf("%w: you are not a member of this room", apperror.ErrUnauthorized)
	}

	return room, nil
}

func ClampLimit(limit int) int {
	if limit == 0 {
		return DefaultPageLimit
	}

	return min(max(limit, 1), MaxPageLimit)
}
