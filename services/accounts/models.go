package accounts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleAdmin  = "Admin"
	RoleClient = "Client"
)

type Account struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	DocumentID     string    `json:"document_id" gorm:"size:64;not null"`
	Username       string    `json:"username" gorm:"size:256;not null"`
	Email          string    `json:"email" gorm:"size:320;uniqueIndex;not null"`
	PasswordHash   string    `json:"-" gorm:"size:255;not null"`
	EmailConfirmed bool      `json:"email_confirmed" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Roles          []Role    `json:"roles,omitempty" gorm:"many2many:account_roles;constraint:OnDelete:CASCADE"`
}

func (Account) TableName() string {
	return "accounts"
}

func (a *Account) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = NormalizeEmail(a.Email)
	return nil
}

type Role struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:64;uniqueIndex;not null"`
}

func (Role) TableName() string {
	return "roles"
}

// NormalizeEmail is the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func Models() []any {
	return []any{&Account{}, &Role{}}
}
