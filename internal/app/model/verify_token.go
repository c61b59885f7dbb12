package model

import (
	"time"
)

type TokenPurpose string

const (
	TokenPurposeVerify TokenPurpose = "verify" // email confirmation after register
	TokenPurposeReset  TokenPurpose = "reset"  // forgotten password
	TokenPurposeSetup  TokenPurpose = "setup"  // first password for a guest checkout account
)

// VerifyToken is a single-use secret mailed to a user.
type VerifyToken struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UserID    uint         `gorm:"not null;index" json:"user_id"`
	Token     string       `gorm:"size:128;not null;uniqueIndex" json:"-"`
	Purpose   TokenPurpose `gorm:"type:varchar(20);not null" json:"purpose"`
	ExpiresAt time.Time    `gorm:"not null" json:"expires_at"`
	Used      bool         `json:"used"`
	CreatedAt time.Time    `json:"created_at"`
}

func (VerifyToken) TableName() string {
	return "verify_tokens"
}

func (t *VerifyToken) Usable(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}
