package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/tech-arch1tect/gatekeeper/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrRoleNotFound    = errors.New("role not found")
)

type Store interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Insert(ctx context.Context, account *Account) error
	Update(ctx context.Context, account *Account) error
	AssignRole(ctx context.Context, accountID, role string) error
	Roles(ctx context.Context, accountID string) ([]string, error)
	EnsureRoles(ctx context.Context, names ...string) error
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// WithTx returns a store bound to tx so its writes join the caller's
// transaction.
func (s *GormStore) WithTx(tx *gorm.DB) *GormStore {
	return &GormStore{db: tx}
}

func (s *GormStore) GetByID(ctx context.Context, id string) (*Account, error) {
	var account Account
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, notFoundOr(err, "get account")
	}
	return &account, nil
}

func (s *GormStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var account Account
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&account).Error
	if err != nil {
		return nil, notFoundOr(err, "find account by email")
	}
	return &account, nil
}

func (s *GormStore) Insert(ctx context.Context, account *Account) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return database.Unavailable("insert account", err)
}

func (s *GormStore) Update(ctx context.Context, account *Account) error {
	account.Email = NormalizeEmail(account.Email)

	result := s.db.WithContext(ctx).Model(&Account{}).Where("id = ?", account.ID).Updates(map[string]any{
		"document_id":     account.DocumentID,
		"username":        account.Username,
		"email":           account.Email,
		"password_hash":   account.PasswordHash,
		"email_confirmed": account.EmailConfirmed,
	})
	if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	if result.Error != nil {
		return database.Unavailable("update account", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *GormStore) AssignRole(ctx context.Context, accountID, role string) error {
	db := s.db.WithContext(ctx)

	var r Role
	if err := db.Where("name = ?", role).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrRoleNotFound, role)
		}
		return database.Unavailable("find role", err)
	}

	if err := db.Model(&Account{ID: accountID}).Association("Roles").Append(&r); err != nil {
		return database.Unavailable("assign role", err)
	}
	return nil
}

func (s *GormStore) Roles(ctx context.Context, accountID string) ([]string, error) {
	var roles []Role
	if err := s.db.WithContext(ctx).Model(&Account{ID: accountID}).Association("Roles").Find(&roles); err != nil {
		return nil, database.Unavailable("list roles", err)
	}

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}
	return names, nil
}

func (s *GormStore) EnsureRoles(ctx context.Context, names ...string) error {
	for _, name := range names {
		role := Role{Name: name}
		if err := s.db.WithContext(ctx).Where(Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return database.Unavailable("ensure role "+name, err)
		}
	}
	return nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAccountNotFound
	}
	return database.Unavailable(op, err)
}
