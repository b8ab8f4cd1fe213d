package entity

import "time"

const DefaultRating = 1000

type UserStatus string

const (
	UserOnline  UserStatus = "ONLINE"
	UserInGame  UserStatus = "IN_GAME"
	UserOffline UserStatus = "OFFLINE"
)

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Rating       int        `json:"rating"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
}

type LeaderboardEntry struct {
	User        *User   `json:"user"`
	Rank        int     `json:"rank"`
	Rating      int     `json:"rating"`
	GamesPlayed int     `json:"games_played"`
	Wins        int     `json:"wins"`
	WinRate     float64 `json:"win_rate"`
}
