package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"github.com/tech-arch1tect/gatekeeper/services/password"
	"go.uber.org/zap"
)

type Seeder struct {
	store  Store
	hasher *password.Hasher
	cfg    config.SeedConfig
	logger *logging.Service
}

func NewSeeder(store Store, hasher *password.Hasher, cfg *config.Config, logger *logging.Service) *Seeder {
	return &Seeder{store: store, hasher: hasher, cfg: cfg.Seed, logger: logger}
}

// Seed creates the built-in roles and, when configured, an administrative
// account that is already confirmed. It is safe to run on every start.
func (s *Seeder) Seed(ctx context.Context) error {
	if err := s.store.EnsureRoles(ctx, RoleAdmin, RoleClient); err != nil {
		return fmt.Errorf("failed to seed roles: %w", err)
	}

	if s.cfg.AdminEmail == "" || s.cfg.AdminPassword == "" {
		return nil
	}

	_, err := s.store.FindByEmail(ctx, s.cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return fmt.Errorf("failed to look up admin account: %w", err)
	}

	hash, err := s.hasher.Hash(s.cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin := &Account{
		DocumentID:     s.cfg.AdminDocumentID,
		Username:       s.cfg.AdminUsername,
		Email:          s.cfg.AdminEmail,
		PasswordHash:   hash,
		EmailConfirmed: true,
	}
	if err := s.store.Insert(ctx, admin); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("failed to create admin account: %w", err)
	}
	if err := s.store.AssignRole(ctx, admin.ID, RoleAdmin); err != nil {
		return fmt.Errorf("failed to assign admin role: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("seeded administrative account", zap.String("account_id", admin.ID))
	}
	return nil
}
