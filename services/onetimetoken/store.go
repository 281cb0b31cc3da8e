package onetimetoken

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/database"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrTokenNotFound         = errors.New("token not found")
	ErrTokenMismatch         = errors.New("invalid or already used token")
	ErrTokenExpired          = errors.New("token has expired")
	ErrTokenExists           = errors.New("token already issued")
	ErrUnsupportedPurpose    = errors.New("unsupported token purpose")
	ErrTokenGenerationFailed = errors.New("failed to generate secure token")
)

type Store interface {
	Issue(ctx context.Context, accountID string, purpose Purpose) (*Token, error)
	Insert(ctx context.Context, token *Token) error
	Put(ctx context.Context, token *Token) error
	Find(ctx context.Context, accountID string, purpose Purpose) (*Token, error)
	Match(ctx context.Context, accountID string, purpose Purpose, value string) error
	Consume(ctx context.Context, accountID string, purpose Purpose, value string) error
	Delete(ctx context.Context, accountID string, purpose Purpose) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type GormStore struct {
	db          *gorm.DB
	tokenLength int
	ttl         map[Purpose]time.Duration
	logger      *logging.Service
	now         func() time.Time
}

func NewGormStore(db *gorm.DB, cfg *config.Config, logger *logging.Service) *GormStore {
	return &GormStore{
		db:          db,
		tokenLength: cfg.Auth.TokenLength,
		ttl: map[Purpose]time.Duration{
			PurposeEmailConfirmation: cfg.Auth.EmailConfirmationExpiry,
			PurposePasswordReset:     cfg.Auth.PasswordResetExpiry,
		},
		logger: logger,
		now:    time.Now,
	}
}

func (s *GormStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *GormStore) WithTx(tx *gorm.DB) *GormStore {
	clone := *s
	clone.db = tx
	return &clone
}

// Issue returns the outstanding token for accountID and purpose when one is
// still live, so links already sent by email keep working. Otherwise it mints
// a fresh value. Session tokens are signed elsewhere and stored with Insert
// or Put.
func (s *GormStore) Issue(ctx context.Context, accountID string, purpose Purpose) (*Token, error) {
	if purpose != PurposeEmailConfirmation && purpose != PurposePasswordReset {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPurpose, purpose)
	}

	existing, err := s.Find(ctx, accountID, purpose)
	switch {
	case err == nil && !existing.Expired(s.now()):
		existing.Reused = true
		return existing, nil
	case err == nil:
		if err := s.Delete(ctx, accountID, purpose); err != nil {
			return nil, err
		}
	case !errors.Is(err, ErrTokenNotFound):
		return nil, err
	}

	value, err := GenerateValue(s.tokenLength)
	if err != nil {
		return nil, err
	}

	now := s.now()
	token := &Token{
		AccountID: accountID,
		Purpose:   purpose,
		Value:     value,
		IssuedAt:  now,
	}
	if ttl := s.ttl[purpose]; ttl > 0 {
		expiresAt := now.Add(ttl)
		token.ExpiresAt = &expiresAt
	}

	if err := s.Insert(ctx, token); err != nil {
		if !errors.Is(err, ErrTokenExists) {
			return nil, err
		}
		// lost a race with a concurrent issue; hand out the winner's token
		winner, findErr := s.Find(ctx, accountID, purpose)
		if findErr != nil {
			return nil, findErr
		}
		winner.Reused = true
		return winner, nil
	}

	if s.logger != nil {
		s.logger.Debug("one-time token issued",
			zap.String("account_id", accountID),
			zap.String("purpose", string(purpose)))
	}
	return token, nil
}

// Insert stores token unless a row for the same account and purpose exists,
// in which case it reports ErrTokenExists and leaves the existing row alone.
func (s *GormStore) Insert(ctx context.Context, token *Token) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(token)
	if result.Error != nil {
		return database.Unavailable("insert token", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTokenExists
	}
	return nil
}

// Put stores token, replacing any existing row for the same account and
// purpose.
func (s *GormStore) Put(ctx context.Context, token *Token) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "purpose"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "device", "issued_at", "expires_at"}),
	}).Create(token).Error
	return database.Unavailable("put token", err)
}

func (s *GormStore) Find(ctx context.Context, accountID string, purpose Purpose) (*Token, error) {
	var token Token
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND purpose = ?", accountID, purpose).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, database.Unavailable("find token", err)
	}
	return &token, nil
}

// Match checks value against the stored token without consuming it.
func (s *GormStore) Match(ctx context.Context, accountID string, purpose Purpose, value string) error {
	token, err := s.Find(ctx, accountID, purpose)
	if errors.Is(err, ErrTokenNotFound) {
		return ErrTokenMismatch
	}
	if err != nil {
		return err
	}

	if value == "" || subtle.ConstantTimeCompare([]byte(token.Value), []byte(value)) != 1 {
		return ErrTokenMismatch
	}
	if token.Expired(s.now()) {
		return ErrTokenExpired
	}
	return nil
}

// Consume deletes the token only if it still holds value. Consuming a token
// that is already gone reports ErrTokenMismatch.
func (s *GormStore) Consume(ctx context.Context, accountID string, purpose Purpose, value string) error {
	result := s.db.WithContext(ctx).
		Where("account_id = ? AND purpose = ? AND value = ?", accountID, purpose, value).
		Delete(&Token{})
	if result.Error != nil {
		return database.Unavailable("consume token", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTokenMismatch
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, accountID string, purpose Purpose) error {
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND purpose = ?", accountID, purpose).
		Delete(&Token{}).Error
	return database.Unavailable("delete token", err)
}

func (s *GormStore) DeleteExpired(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).
		Delete(&Token{})
	if result.Error != nil {
		return 0, database.Unavailable("delete expired tokens", result.Error)
	}
	return result.RowsAffected, nil
}

func GenerateValue(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenGenerationFailed, err)
	}
	return hex.EncodeToString(bytes), nil
}
