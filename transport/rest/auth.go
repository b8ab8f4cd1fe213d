package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/usecase"
)

const (
	userContextKey = "user"
	bearerPrefix   = "Bearer "
)

var errInvalidBody = fmt.Errorf("%w: invalid request body", apperror.ErrInvalidInput)

type userUseCase interface {
	Register(ctx context.Context, input usecase.RegisterInput) (*usecase.AuthResult, error)
	Login(ctx context.Context, input usecase.LoginInput) (*usecase.AuthResult, error)
	Authenticate(ctx context.Context, token string) (*entity.User, error)
	Me(ctx context.Context, userID string) (*entity.User, error)
	Leaderboard(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error)
}

type AuthHandler interface {
	Register(ctx echo.Context) error
	Login(ctx echo.Context) error
	Me(ctx echo.Context) error
	Leaderboard(ctx echo.Context) error

	RequireUser(next echo.HandlerFunc) echo.HandlerFunc
}

type authHandler struct {
	logger *slog.Logger

	user userUseCase
}

func NewAuth(logger *slog.Logger, user userUseCase) AuthHandler {
	return &authHandler{
		logger: logger.With("handler", "auth"),
		user:   user,
	}
}

func (that *authHandler) Register(ctx echo.Context) error {
	var input usecase.RegisterInput
	if err := ctx.Bind(&input); err != nil {
		return errInvalidBody
	}

	result, err := that.user.Register(ctx.Request().Context(), input)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, result)
}

func (that *authHandler) Login(ctx echo.Context) error {
	var input usecase.LoginInput
	if err := ctx.Bind(&input); err != nil {
		return errInvalidBody
	}

	result, err := that.user.Login(ctx.Request().Context(), input)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, result)
}

func (that *authHandler) Me(ctx echo.Context) error {
	user, err := that.user.Me(ctx.Request().Context(), currentUser(ctx).ID)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, user)
}

func (that *authHandler) Leaderboard(ctx echo.Context) error {
	limit, err := intQueryParam(ctx, "limit")
	if err != nil {
		return err
	}

	entries, err := that.user.Leaderboard(ctx.Request().Context(), limit)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, entries)
}

// RequireUser - resolves the bearer token into the request's user.
func (that *authHandler) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		header := ctx.Request().Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, bearerPrefix) {
			return apperror.ErrUnauthenticated
		}

		user, err := that.user.Authenticate(ctx.Request().Context(), strings.TrimSpace(header[len(bearerPrefix):]))
		if err != nil {
			return err
		}

		ctx.Set(userContextKey, user)

		return next(ctx)
	}
}

func currentUser(ctx echo.Context) *entity.User {
	user, _ := ctx.Get(userContextKey).(*entity.User)
	return user
}

// intQueryParam - zero when the parameter is absent.
func intQueryParam(ctx echo.Context, name string) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return 0, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", apperror.ErrInvalidInput, name)
	}

	return value, nil
}
