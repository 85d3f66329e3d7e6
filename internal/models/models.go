package models

import (
	"time"
)

const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleUser      = "user"
)

// User is the credential record. EmailNorm and UsernameNorm hold the
// lowercased values and carry the uniqueness constraints, so lookups and
// duplicate checks are case-insensitive.
type User struct {
	ID           string     `gorm:"primaryKey"                                 json:"id"`
	Email        string     `gorm:"not null"                                   json:"email"`
	EmailNorm    string     `gorm:"column:email_norm;uniqueIndex;not null"     json:"-"`
	Username     string     `gorm:"not null"                                   json:"username"`
	UsernameNorm string     `gorm:"column:username_norm;uniqueIndex;not null"  json:"-"`
	Name         string     `json:"name"`
	PasswordHash string     `gorm:"not null"                                   json:"-"`
	Role         string     `gorm:"not null;default:user"                      json:"role"`
	IsActive     bool       `gorm:"not null;default:true"                      json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// PlayerData mirrors the upstream ladder API payload. JSON tags match the
// upstream field names exactly.
type PlayerData struct {
	ID        int    `json:"id"`
	DiscordID int64  `json:"DiscordId"`
	Name      string `json:"Name"`
	MMR       int    `json:"MMR"`
	Wins      int    `json:"Wins"`
	Losses    int    `json:"Losses"`
	MatchUID  string `json:"MatchUID"`
	Rank      int    `json:"rank,omitempty"`
}

type PlayerStats struct {
	WinRate    float64 `json:"win_rate"`
	LossRate   float64 `json:"loss_rate"`
	NetWins    int     `json:"net_wins"`
	TotalGames int     `json:"total_games"`
}
