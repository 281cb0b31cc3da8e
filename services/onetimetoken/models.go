package onetimetoken

import "time"

type Purpose string

const (
	PurposeEmailConfirmation Purpose = "email_confirmation"
	PurposePasswordReset     Purpose = "password_reset"
	PurposeSession           Purpose = "session"
)

func (p Purpose) Valid() bool {
	switch p {
	case PurposeEmailConfirmation, PurposePasswordReset, PurposeSession:
		return true
	}
	return false
}

type Token struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	AccountID string     `json:"account_id" gorm:"size:36;not null;uniqueIndex:idx_token_account_purpose"`
	Purpose   Purpose    `json:"purpose" gorm:"size:32;not null;uniqueIndex:idx_token_account_purpose"`
	Value     string     `json:"-" gorm:"type:text;not null"`
	Device    string     `json:"device,omitempty" gorm:"size:255"`
	IssuedAt  time.Time  `json:"issued_at" gorm:"not null"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" gorm:"index"`

	// Reused is set by Issue when an outstanding token was returned instead
	// of a freshly minted one.
	Reused bool `json:"-" gorm:"-"`
}

func (Token) TableName() string {
	return "one_time_tokens"
}

func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}
