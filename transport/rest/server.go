package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	logger *slog.Logger
	echo   *echo.Echo
}

func New(logger *slog.Logger, users userUseCase, rooms roomUseCase, games gameUseCase, chat chatUseCase) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	server := &Server{
		logger: logger,
		echo:   e,
	}

	e.HTTPErrorHandler = server.handleError
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	auth := NewAuth(logger, users)
	api := NewHandlers(logger, rooms, games, chat)

	e.GET("/ping", NewPingHandler().Ping)

	e.POST("/api/auth/register", auth.Register)
	e.POST("/api/auth/login", auth.Login)
	e.GET("/api/leaderboard", auth.Leaderboard)

	private := e.Group("/api", auth.RequireUser)
	private.GET("/me", auth.Me)

	private.GET("/rooms", api.LobbyRooms)
	private.POST("/rooms", api.CreateRoom)
	private.GET("/rooms/:code", api.Room)
	private.POST("/rooms/:code/join", api.JoinRoom)
	private.POST("/rooms/:code/leave", api.LeaveRoom)
	private.GET("/rooms/:code/game", api.Game)
	private.GET("/rooms/:code/moves", api.Moves)
	private.POST("/rooms/:code/moves", api.MakeMove)
	private.GET("/rooms/:code/messages", api.Messages)
	private.POST("/rooms/:code/messages", api.SendMessage)

	return server
}

func (that *Server) Handler() http.Handler {
	return that.echo
}

// Start - serves until ctx is done, then shuts down gracefully.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.echo,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown HTTP server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
