package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

var errInvalidPayload = fmt.Errorf("%w: invalid payload", apperror.ErrInvalidInput)

// sendSnapshot - the room and its game as they are right now. A room without a game sends no game.
func (that *Server) sendSnapshot(ctx context.Context, client *connection) error {
	room, err := that.rooms.RoomByCode(ctx, client.room.Code)
	if err != nil {
		return fmt.Errorf("failed to get room: %w", err)
	}

	game, err := that.games.GameByRoom(ctx, room.Code)
	if err != nil && !errors.Is(err, apperror.ErrGameNotFound) {
		return fmt.Errorf("failed to get game: %w", err)
	}

	client.room = room

	return client.send(ActionSnapshot, SnapshotPayload{Room: room, Game: game})
}

func (that *Server) handleGameTurn(ctx context.Context, client *connection, msg *Message) error {
	log := that.logger.With("method", "handleGameTurn", "userID", client.user.ID, "roomCode", client.room.Code)

	var payload TurnPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return errInvalidPayload
	}

	cell, err := tictactoe.ParseCellIndex(string(payload.Cell))
	if err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrInvalidMove, err)
	}

	game, err := that.rooms.PlayMove(ctx, client.user.ID, client.room.Code, cell)
	if err != nil {
		return err
	}

	log.Debug("player made a turn", "gameID", game.ID, "cell", cell)

	return client.send(msg.Action, game)
}

func (that *Server) handleChatSend(ctx context.Context, client *connection, msg *Message) error {
	var payload ChatPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return errInvalidPayload
	}

	message, err := that.chat.SendMessage(ctx, client.user.ID, client.room.Code, payload.Text)
	if err != nil {
		return err
	}

	return client.send(msg.Action, message)
}
