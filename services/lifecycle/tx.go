package lifecycle

import (
	"context"

	"github.com/tech-arch1tect/gatekeeper/database"
	"github.com/tech-arch1tect/gatekeeper/services/accounts"
	"github.com/tech-arch1tect/gatekeeper/services/onetimetoken"
	"gorm.io/gorm"
)

// Repos groups the stores a transition reads and writes.
type Repos struct {
	Accounts accounts.Store
	Tokens   onetimetoken.Store
}

// Transactor runs fn with stores bound to a single transaction. An error
// from fn rolls everything back and is returned unchanged.
type Transactor interface {
	InTx(ctx context.Context, fn func(Repos) error) error
}

type GormTransactor struct {
	db       *gorm.DB
	accounts *accounts.GormStore
	tokens   *onetimetoken.GormStore
}

func NewGormTransactor(db *gorm.DB, accountStore *accounts.GormStore, tokenStore *onetimetoken.GormStore) *GormTransactor {
	return &GormTransactor{db: db, accounts: accountStore, tokens: tokenStore}
}

func (t *GormTransactor) InTx(ctx context.Context, fn func(Repos) error) error {
	var fnErr error
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(Repos{
			Accounts: t.accounts.WithTx(tx),
			Tokens:   t.tokens.WithTx(tx),
		})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	// begin or commit failed
	return database.Unavailable("transaction", err)
}
