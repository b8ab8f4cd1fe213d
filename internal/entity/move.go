package entity

import "time"

// Move is one accepted placement. Moves are append-only and form the game's replay log.
type Move struct {
	ID        string    `json:"id"`
	GameID    string    `json:"game_id"`
	UserID    string    `json:"user_id"`
	CellIndex int       `json:"cell_index"`
	Symbol    Symbol    `json:"symbol"`
	CreatedAt time.Time `json:"created_at"`
}
