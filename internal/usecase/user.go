package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
)

const (
	MinPasswordLength = 8
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

var errInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperror.ErrInvalidInput)

type userRepo interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	Leaderboard(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error)
}

type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

type UserManager struct {
	logger *slog.Logger

	repo userRepo
	auth service.AuthService

	now func() time.Time
}

func NewUserManager(logger *slog.Logger, repo userRepo, auth service.AuthService) *UserManager {
	return &UserManager{
		logger: logger,

		repo: repo,
		auth: auth,

		now: func() time.Time { return time.Now().UTC() },
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (that *UserManager) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	log := that.logger.With("method", "Register")

	email := NormalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)

	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is not valid", apperror.ErrInvalidInput)
	}

	if n := utf8.RuneCountInString(username); n < MinUsernameLength || n > MaxUsernameLength {
		return nil, fmt.Errorf("%w: username must be between %d and %d characters",
			apperror.ErrInvalidInput, MinUsernameLength, MaxUsernameLength)
	}

	if len(input.Password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters long", apperror.ErrInvalidInput, MinPasswordLength)
	}

	if err := that.ensureUnique(ctx, email, username); err != nil {
		return nil, err
	}

	hash, err := that.auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Rating:       entity.DefaultRating,
		Status:       entity.UserOffline,
		CreatedAt:    that.now(),
	}

	if err = that.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email or username already in use", apperror.ErrInvalidInput)
		}

		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	log.Info("user registered", "userID", user.ID)

	return that.authResult(user)
}

func (that *UserManager) ensureUnique(ctx context.Context, email, username string) error {
	if _, err := that.repo.FindByEmail(ctx, email); err == nil {
		return fmt.Errorf("%w: email already in use", apperror.ErrInvalidInput)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	if _, err := that.repo.FindByUsername(ctx, username); err == nil {
		return fmt.Errorf("%w: username already in use", apperror.ErrInvalidInput)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("failed to check username: %w", err)
	}

	return nil
}

// Login - every credential mismatch yields the same error.
func (that *UserManager) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := that.repo.FindByEmail(ctx, NormalizeEmail(input.Email))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !that.auth.ComparePassword(user.PasswordHash, input.Password) {
		return nil, errInvalidCredentials
	}

	return that.authResult(user)
}

// Authenticate - resolves a bearer token to a live user.
func (that *UserManager) Authenticate(ctx context.Context, token string) (*entity.User, error) {
	claims, err := that.auth.ParseToken(token)
	if err != nil {
		return nil, err
	}

	user, err := that.repo.FindByID(ctx, claims.UserID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func (that *UserManager) Me(ctx context.Context, userID string) (*entity.User, error) {
	user, err := that.repo.FindByID(ctx, userID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

func (that *UserManager) Leaderboard(ctx context.Context, limit int) ([]entity.LeaderboardEntry, error) {
	entries, err := that.repo.Leaderboard(ctx, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	if entries == nil {
		entries = []entity.LeaderboardEntry{}
	}

	return entries, nil
}

func (that *UserManager) authResult(user *entity.User) (*AuthResult, error) {
	token, err := that.auth.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, User: user}, nil
}
