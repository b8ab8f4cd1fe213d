package entity

import (
	"strings"
	"time"
)

type RoomStatus string

const (
	RoomWaiting    RoomStatus = "WAITING"
	RoomInProgress RoomStatus = "IN_PROGRESS"
	RoomFinished   RoomStatus = "FINISHED"
)

const (
	MaxRoomPlayers  = 2
	DefaultRoomName = "Tic-Tac-Toe Room"
)

type Room struct {
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	Name         string     `json:"name"`
	OwnerID      string     `json:"owner_id"`
	Players      []string   `json:"players"`
	ActiveGameID string     `json:"active_game_id,omitempty"`
	Status       RoomStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NormalizeRoomCode - room codes are case-insensitive at every boundary.
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (that *Room) HasPlayer(userID string) bool {
	for _, id := range that.Players {
		if id == userID {
			return true
		}
	}

	return false
}

func (that *Room) IsFull() bool {
	return len(that.Players) >= MaxRoomPlayers
}

// SyncStatus - mirrors the active game's status onto the room.
func (that *Room) SyncStatus(game *Game) {
	switch {
	case game == nil:
		that.Status = RoomWaiting
	case game.IsRunning():
		that.Status = RoomInProgress
	default:
		that.Status = RoomFinished
	}
}
