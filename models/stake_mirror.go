// models/stake_mirror.go
package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleCompany = "company"
	RolePlayer  = "player"
)

// StakeMirror is a local snapshot of on-chain stake state per participant
// wallet, kept fresh by the stake sync worker so dashboards don't hit the
// ledger RPC on every request.
// Table name: stake_mirror
type StakeMirror struct {
	ID            string    `gorm:"primaryKey;type:uuid;not null" json:"id"`
	WalletAddress string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"wallet_address"` // Primary lookup key
	Role          string    `gorm:"type:varchar(16);not null;index" json:"role"`
	Username      string    `gorm:"type:varchar(64);not null;index" json:"username"`
	StakedAmount  float64   `gorm:"not null" json:"staked_amount"`
	TxHash        string    `gorm:"type:varchar(128)" json:"tx_hash,omitempty"`
	LastCheckedAt time.Time `gorm:"not null" json:"last_checked_at"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`

	DeletedAt gorm.DeletedAt `gorm:"index"`
}
