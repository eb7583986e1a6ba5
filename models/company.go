package models

import (
	"encoding/json"
)

// CompanyProfile is keyed by the chosen username — the username IS the row key,
// so a concurrent signup with the same name fails on the primary key instead of
// silently winning a read-then-write race.
type CompanyProfile struct {
	Username string `gorm:"primaryKey;type:varchar(64)" json:"username"`
	AuthUID  string `gorm:"uniqueIndex;not null" json:"auth_uid"`

	// Google account of the person who registered the company
	Name  string `json:"name"`
	Email string `gorm:"index;not null" json:"email"`

	CompanyName        string `gorm:"not null" json:"company_name"`
	Website            string `gorm:"not null" json:"website"`
	CompanyEmail       string `gorm:"not null" json:"company_email"`
	Country            string `json:"country"`
	CompanyDescription string `json:"company_description"`
	NumberOfQuestions  int    `gorm:"not null" json:"number_of_questions"`

	// Unique per table; cross-role uniqueness is enforced by the onboarding guard.
	WalletAddress string `gorm:"uniqueIndex;type:varchar(128);not null" json:"wallet_address"`

	// Staking outcome. TransactionDone flips to true exactly once.
	TransactionID   string `json:"transaction_id,omitempty"`
	TransactionDone bool   `gorm:"default:false" json:"transaction_done"`

	// Generation outcome. QuestionsGenerated is monotonic false→true and
	// QuestionsJSON holds the denormalized {question, answer} snapshot.
	QuestionsGenerated bool   `gorm:"default:false" json:"questions_generated"`
	QuestionsJSON      []byte `gorm:"type:jsonb" json:"-"`

	WebsiteConsent bool `json:"website_consent"`
	PrivacyConsent bool `json:"privacy_consent"`

	Timestamps
}

// QuestionSnapshot returns the denormalized generated Q&A pairs.
func (c *CompanyProfile) QuestionSnapshot() ([]QuestionPair, error) {
	if len(c.QuestionsJSON) == 0 {
		return nil, nil
	}
	var pairs []QuestionPair
	if err := json.Unmarshal(c.QuestionsJSON, &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

// SetQuestionSnapshot stores the denormalized generated Q&A pairs.
func (c *CompanyProfile) SetQuestionSnapshot(pairs []QuestionPair) error {
	raw, err := json.Marshal(pairs)
	if err != nil {
		return err
	}
	c.QuestionsJSON = raw
	return nil
}
