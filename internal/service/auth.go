package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

var ErrEmptySecret = errors.New("jwt secret key is not set")

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.StandardClaims
}

type AuthService interface {
	HashPassword(password string) (string, error)
	ComparePassword(hash, password string) bool
	GenerateToken(user *entity.User) (string, error)
	ParseToken(token string) (*Claims, error)
}

type authServiceImpl struct {
	secretKey string
	tokenTTL  time.Duration
}

// NewAuthService - refuses to work without a secret; a zero ttl means DefaultTokenTTL.
func NewAuthService(secretKey string, tokenTTL time.Duration) (AuthService, error) {
	if secretKey == "" {
		return nil, ErrEmptySecret
	}

	if tokenTTL == 0 {
		tokenTTL = DefaultTokenTTL
	}

	return &authServiceImpl{
		secretKey: secretKey,
		tokenTTL:  tokenTTL,
	}, nil
}

func (that *authServiceImpl) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hash), nil
}

func (that *authServiceImpl) ComparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (that *authServiceImpl) GenerateToken(user *entity.User) (string, error) {
	now := time.Now()

	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(that.tokenTTL).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(that.secretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ParseToken - any invalid, expired or foreign-signed token is ErrUnauthenticated.
func (that *authServiceImpl) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return []byte(that.secretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.ErrUnauthenticated
	}

	if claims.UserID == "" {
		return nil, apperror.ErrUnauthenticated
	}

	return claims, nil
}
