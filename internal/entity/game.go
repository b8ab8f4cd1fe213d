package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

type GameStatus string

const (
	GameRunning  GameStatus = "RUNNING"
	GameFinished GameStatus = "FINISHED"
	GameDraw     GameStatus = "DRAW"
)

var (
	ErrSamePlayer        = errors.New("a game needs two different players")
	ErrUnknownGameStatus = errors.New("unknown game status")
)

// GamePlayer pairs a user with the symbol they play.
type GamePlayer struct {
	UserID string `json:"user_id"`
	Symbol Symbol `json:"symbol"`
}

type Game struct {
	ID           string       `json:"id"`
	RoomID       string       `json:"room_id"`
	Board        Board        `json:"board"`
	Players      []GamePlayer `json:"players"`
	TurnUserID   string       `json:"turn_user_id,omitempty"`
	WinnerUserID string       `json:"winner_user_id,omitempty"`
	Status       GameStatus   `json:"status"`
	StartedAt    time.Time    `json:"started_at"`
	EndedAt      *time.Time   `json:"ended_at,omitempty"`

	// Version is bumped on every committed move and guards concurrent writers.
	Version int64 `json:"version"`
}

// NewGame - creates a running game where xUserID plays X and moves first.
func NewGame(id, roomID, xUserID, oUserID string, startedAt time.Time) (*Game, error) {
	if xUserID == "" || oUserID == "" || xUserID == oUserID {
		return nil, ErrSamePlayer
	}

	return &Game{
		ID:     id,
		RoomID: roomID,
		Board:  NewBoard(),
		Players: []GamePlayer{
			{UserID: xUserID, Symbol: SymbolX},
			{UserID: oUserID, Symbol: SymbolO},
		},
		TurnUserID: xUserID,
		Status:     GameRunning,
		StartedAt:  startedAt,
		Version:    1,
	}, nil
}

func (that *Game) IsRunning() bool {
	return that.Status == GameRunning
}

func (that *Game) IsOver() bool {
	return that.Status == GameFinished || that.Status == GameDraw
}

// ConfirmRunning - returns nil when the game still accepts moves.
func (that *Game) ConfirmRunning() error {
	switch that.Status {
	case GameRunning:
		return nil
	case GameFinished, GameDraw:
		return apperror.ErrGameAlreadyFinished
	default:
		return fmt.Errorf("%w: %s", ErrUnknownGameStatus, that.Status)
	}
}

func (that *Game) PlayerByUserID(userID string) (GamePlayer, bool) {
	for _, player := range that.Players {
		if player.UserID == userID {
			return player, true
		}
	}

	return GamePlayer{}, false
}

func (that *Game) PlayerBySymbol(symbol Symbol) (GamePlayer, bool) {
	for _, player := range that.Players {
		if player.Symbol == symbol {
			return player, true
		}
	}

	return GamePlayer{}, false
}

// OpponentOf - returns the other participant of userID.
func (that *Game) OpponentOf(userID string) (GamePlayer, bool) {
	for _, player := range that.Players {
		if player.UserID != userID {
			return player, true
		}
	}

	return GamePlayer{}, false
}

// Forfeit - ends the game in favour of the opponent of leaverID.
func (that *Game) Forfeit(leaverID string, endedAt time.Time) {
	opponent, _ := that.OpponentOf(leaverID)

	that.Status = GameFinished
	that.WinnerUserID = opponent.UserID
	that.TurnUserID = ""
	that.EndedAt = &endedAt
}

// Clone - returns a copy that shares no mutable state with the receiver.
func (that *Game) Clone() *Game {
	clone := *that
	clone.Players = append([]GamePlayer(nil), that.Players...)

	if that.EndedAt != nil {
		endedAt := *that.EndedAt
		clone.EndedAt = &endedAt
	}

	return &clone
}
