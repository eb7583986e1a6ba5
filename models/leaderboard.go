package models

import (
	"time"
)

// LeaderboardEntry is a materialized players-by-score projection, refreshed
// periodically by the leaderboard scheduler.
type LeaderboardEntry struct {
	Username string  `gorm:"primaryKey;type:varchar(64)" json:"username"`
	Score    float64 `gorm:"not null" json:"score"`
	Answered int     `gorm:"not null" json:"answered"`
	Rank     int     `gorm:"index;not null" json:"rank"`

	RefreshedAt time.Time `json:"refreshed_at"`
}
