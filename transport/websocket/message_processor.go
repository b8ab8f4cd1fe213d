package websocket

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pubsub"
)

const (
	ActionSnapshot    = "room:snapshot"
	ActionRoomUpdated = "room:updated"
	ActionGameUpdated = "game:updated"
	ActionChatMessage = "chat:message"

	ActionGameTurn = "game:turn"
	ActionChatSend = "chat:send"

	ActionError = "error"
)

const internalErrorMessage = "an internal error occurred"

// eventActions maps broker events onto the actions clients receive.
var eventActions = map[string]string{
	pubsub.RoomUpdated:  ActionRoomUpdated,
	pubsub.GameUpdated:  ActionGameUpdated,
	pubsub.MessageAdded: ActionChatMessage,
}

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SnapshotPayload struct {
	Room *entity.Room `json:"room"`
	Game *entity.Game `json:"game,omitempty"`
}

type TurnPayload struct {
	// Cell stays raw so that non-integral values are reported as invalid moves.
	Cell json.RawMessage `json:"cell"`
}

type ChatPayload struct {
	Text string `json:"text"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorPayload `json:"error"`
}

// connection - gorilla allows one concurrent writer, so every write goes through mu.
type connection struct {
	conn *websocket.Conn
	mu   sync.Mutex

	user *entity.User
	room *entity.Room
}

func (that *connection) send(action string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	return that.write(Message{Action: action, Payload: data})
}

func (that *connection) write(msg Message) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	if err := that.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}

func (that *connection) ping() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// forward - relays a broker message as a client action. Unknown events are skipped.
func (that *connection) forward(msg pubsub.Message) error {
	action, ok := eventActions[msg.Event()]
	if !ok {
		return nil
	}

	return that.write(Message{Action: action, Payload: msg.Payload})
}

// errorResponse - expected errors keep their message, anything else is hidden.
func errorResponse(err error) ErrorResponse {
	if !apperror.IsExpected(err) {
		return ErrorResponse{Error: ErrorPayload{Code: apperror.CodeInternal, Message: internalErrorMessage}}
	}

	return ErrorResponse{Error: ErrorPayload{Code: apperror.Code(err), Message: err.Error()}}
}
