package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pubsub"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 4096

	shutdownTimeout = 5 * time.Second
)

type userAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*entity.User, error)
}

type roomUseCase interface {
	RoomByCode(ctx context.Context, roomCode string) (*entity.Room, error)
	PlayMove(ctx context.Context, userID, roomCode string, cell int) (*entity.Game, error)
}

type gameUseCase interface {
	GameByRoom(ctx context.Context, roomCode string) (*entity.Game, error)
}

type chatUseCase interface {
	SendMessage(ctx context.Context, userID, roomCode, text string) (*entity.ChatMessage, error)
}

type subscriber interface {
	Subscribe(ctx context.Context, channels ...string) (*pubsub.Subscription, error)
}

type Server struct {
	logger *slog.Logger

	users  userAuthenticator
	rooms  roomUseCase
	games  gameUseCase
	chat   chatUseCase
	broker subscriber

	upgrader websocket.Upgrader
	handlers map[string]func(ctx context.Context, conn *connection, msg *Message) error
}

func New(logger *slog.Logger, users userAuthenticator, rooms roomUseCase, games gameUseCase, chat chatUseCase, broker subscriber) *Server {
	server := &Server{
		logger: logger,

		users:  users,
		rooms:  rooms,
		games:  games,
		chat:   chat,
		broker: broker,

		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		handlers: make(map[string]func(context.Context, *connection, *Message) error),
	}

	server.handlers[ActionGameTurn] = server.handleGameTurn
	server.handlers[ActionChatSend] = server.handleChatSend

	return server
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", that.serveWS)

	return mux
}

// Start - starts WebSocket server. Open connections end with ctx.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Handler(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown WebSocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// serveWS - /ws?room=CODE&token=JWT. Only members of the room may connect.
func (that *Server) serveWS(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "serveWS")

	user, room, err := that.authorize(req)
	if err != nil {
		that.writeHTTPError(writer, err)
		return
	}

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		// the upgrader has already answered the client
		log.Warn("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	log = log.With("userID", user.ID, "roomCode", room.Code)
	log.Info("WebSocket connection established")

	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()

	client := &connection{conn: conn, user: user, room: room}

	// subscribe before the snapshot so no update falls in between
	sub, err := that.broker.Subscribe(ctx, pubsub.RoomChannels(room.Code)...)
	if err != nil {
		log.Error("failed to subscribe", "error", err)
		_ = client.send(ActionError, errorResponse(err))
		return
	}
	defer sub.Close()

	if err = that.sendSnapshot(ctx, client); err != nil {
		log.Error("failed to send snapshot", "error", err)
		return
	}

	go that.writePump(ctx, client, sub)

	that.readPump(ctx, client)

	log.Info("WebSocket connection closed")
}

func (that *Server) authorize(req *http.Request) (*entity.User, *entity.Room, error) {
	ctx := req.Context()

	token := req.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(req.Header.Get("Authorization"), "Bearer ")
	}

	if token == "" {
		return nil, nil, apperror.ErrUnauthenticated
	}

	user, err := that.users.Authenticate(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	code := req.URL.Query().Get("room")
	if strings.TrimSpace(code) == "" {
		return nil, nil, fmt.Errorf("%w: room is required", apperror.ErrInvalidInput)
	}

	room, err := that.rooms.RoomByCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}

	if !room.HasPlayer(user.ID) {
		return nil, nil, fmt.Errorf("%w: you are not a member of this room", apperror.ErrUnauthorized)
	}

	return user, room, nil
}

func (that *Server) writeHTTPError(writer http.ResponseWriter, err error) {
	resp := errorResponse(err)
	if resp.Error.Code == apperror.CodeInternal {
		that.logger.Error("failed to authorize connection", "error", err)
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(apperror.HTTPStatus(resp.Error.Code))

	if err = json.NewEncoder(writer).Encode(resp); err != nil {
		that.logger.Error("failed to write error response", "error", err)
	}
}

// readPump - processes messages from the client until it goes away.
func (that *Server) readPump(ctx context.Context, client *connection) {
	log := that.logger.With("method", "readPump", "userID", client.user.ID)

	client.conn.SetReadLimit(maxMessageSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("connection closed unexpectedly", "error", err)
			}
			return
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			err = client.send(ActionError, errorResponse(fmt.Errorf("%w: malformed message", apperror.ErrInvalidInput)))
			if err != nil {
				return
			}
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			err = client.send(ActionError, errorResponse(fmt.Errorf("%w: unknown action %q", apperror.ErrInvalidInput, message.Action)))
			if err != nil {
				return
			}
			continue
		}

		if err = handler(ctx, client, &message); err != nil {
			if !apperror.IsExpected(err) {
				log.Error("error processing message", "action", message.Action, "error", err)
			}

			if err = client.send(message.Action, errorResponse(err)); err != nil {
				log.Warn("failed to send error response", "error", err)
				return
			}
		}
	}
}

// writePump - relays room events and keeps the connection alive.
func (that *Server) writePump(ctx context.Context, client *connection, sub *pubsub.Subscription) {
	log := that.logger.With("method", "writePump", "userID", client.user.ID)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	// closing the connection unblocks readPump
	defer client.conn.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case msg, ok := <-sub.Messages():
			if !ok {
				return
			}

			if err := client.forward(msg); err != nil {
				log.Warn("failed to forward event", "channel", msg.Channel, "error", err)
				return
			}
		case <-ticker.C:
			if err := client.ping(); err != nil {
				return
			}
		}
	}
}
