package models

// PlayerProfile is keyed by the chosen username, same uniqueness domain as
// CompanyProfile. Score can go negative; life floors at 0.
type PlayerProfile struct {
	Username string `gorm:"primaryKey;type:varchar(64)" json:"username"`
	AuthUID  string `gorm:"uniqueIndex;not null" json:"auth_uid"`

	Email       string `gorm:"index;not null" json:"email"`
	DisplayName string `json:"display_name"`

	WalletAddress string `gorm:"uniqueIndex;type:varchar(128);not null" json:"wallet_address"`
	Bio           string `json:"bio"` // at most 10 words, validated at onboarding

	Life              int     `gorm:"default:5" json:"life"`
	Score             float64 `gorm:"default:0" json:"score"`
	Answered          int     `gorm:"default:0" json:"answered"`
	AssignedQuestions int     `gorm:"not null" json:"assigned_questions"`

	// Set true only after a confirmed stake transaction; never unset.
	IsStaked bool `gorm:"default:false" json:"is_staked"`

	Timestamps
}

// AnsweredQuestion records one correctly-resolved question for a player.
// The composite primary key gives set semantics: re-adding the same id is a
// no-op insert, which is how the quiz engine gets its idempotent "array union".
type AnsweredQuestion struct {
	PlayerUsername string `gorm:"primaryKey;type:varchar(64)" json:"player_username"`
	QuestionID     string `gorm:"primaryKey;type:uuid" json:"question_id"`

	Timestamps
}
