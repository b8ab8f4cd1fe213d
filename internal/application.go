package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/pubsub"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-arena/transport/rest"
	"github.com/rocketscienceinc/tictactoe-arena/transport/websocket"
)

var (
	ErrAddrNotFound  = errors.New("redis address string is empty")
	ErrPathNotFound  = errors.New("sqlite storage path is empty")
	ErrSecretMissing = errors.New("jwt secret key is empty")
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	if conf.JWTSecretKey == "" {
		return ErrSecretMissing
	}

	if conf.SQLiteStoragePath == "" {
		return ErrPathNotFound
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	broker, closeBroker, err := newBroker(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer closeBroker()

	authService, err := service.NewAuthService(conf.JWTSecretKey, conf.JWTTTL)
	if err != nil {
		return fmt.Errorf("could not create auth service: %w", err)
	}

	conn := sqliteStorage.Connection
	userRepo := repository.NewUserRepository(conn)
	roomRepo := repository.NewRoomRepository(conn)
	gameRepo := repository.NewGameRepository(conn)
	chatRepo := repository.NewChatRepository(conn)

	gameUseCase := usecase.NewGameManager(logger, roomRepo, gameRepo)
	roomUseCase := usecase.NewRoomManager(logger, roomRepo, userRepo, gameUseCase, broker)
	chatUseCase := usecase.NewChatManager(logger, chatRepo, gameUseCase, broker)
	userUseCase := usecase.NewUserManager(logger, userRepo, authService)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		restServer := rest.New(logger, userUseCase, roomUseCase, gameUseCase, chatUseCase)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, userUseCase, roomUseCase, gameUseCase, chatUseCase, broker)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// newBroker - Redis fans updates out across instances; the in-memory broker serves a single process.
func newBroker(ctx context.Context, logger *slog.Logger, conf *config.Config) (pubsub.Broker, func(), error) {
	if conf.PubSubDriver == config.PubSubMemory {
		return pubsub.NewMemoryBroker(logger), func() {}, nil
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisClient, err := storage.NewRedisClient(ctx, storage.RedisOptions{
		Addr:     redisAddrString,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis: %w", err)
	}

	closeFn := func() {
		if closeErr := redisClient.Close(); closeErr != nil {
			logger.Error("could not close redis client", "error", closeErr)
		}
	}

	return pubsub.NewRedisBroker(logger, redisClient), closeFn, nil
}
