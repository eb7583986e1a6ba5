package models

import (
	"time"
)

// Question is one AI-generated trivia question owned by a company.
// Answers are stored as a single lowercase word.
type Question struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	CompanyID   string `gorm:"index;not null" json:"company_id"` // owning company username
	CompanyName string `json:"company_name"`                     // denormalized for display

	Question string `gorm:"not null" json:"question"`
	Answer   string `gorm:"not null" json:"answer"`

	// Incremented once per presentation; best-effort, never rolled back.
	ViewCount int64 `gorm:"default:0" json:"view_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuestionPair is the generator's output unit and the shape of the
// denormalized snapshot kept on the company profile.
type QuestionPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
