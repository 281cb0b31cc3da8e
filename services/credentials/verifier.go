package credentials

import (
	"context"
	"errors"

	"github.com/tech-arch1tect/gatekeeper/services/accounts"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"github.com/tech-arch1tect/gatekeeper/services/password"
	"go.uber.org/zap"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email address has not been confirmed")
)

type Verifier struct {
	accounts accounts.Store
	hasher   *password.Hasher
	logger   *logging.Service

	// compared against when the email is unknown so both failure paths
	// cost one bcrypt comparison
	dummyHash string
}

func NewVerifier(store accounts.Store, hasher *password.Hasher, logger *logging.Service) (*Verifier, error) {
	dummy, err := hasher.Hash("gatekeeper-timing-equaliser")
	if err != nil {
		return nil, err
	}
	return &Verifier{accounts: store, hasher: hasher, logger: logger, dummyHash: dummy}, nil
}

// Authenticate resolves email to an account and checks, in order, that it
// exists, that its email is confirmed and that plain matches its password.
func (v *Verifier) Authenticate(ctx context.Context, email, plain string) (*accounts.Account, error) {
	account, err := v.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, accounts.ErrAccountNotFound) {
			v.hasher.Verify(v.dummyHash, plain)
			if v.logger != nil {
				v.logger.Info("authentication failed", zap.String("reason", "unknown_account"))
			}
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !account.EmailConfirmed {
		if v.logger != nil {
			v.logger.Info("authentication refused",
				zap.String("account_id", account.ID),
				zap.String("reason", "email_not_confirmed"))
		}
		return nil, ErrEmailNotConfirmed
	}

	if err := v.VerifyPassword(account, plain); err != nil {
		return nil, err
	}
	return account, nil
}

func (v *Verifier) VerifyPassword(account *accounts.Account, plain string) error {
	if !v.hasher.Verify(account.PasswordHash, plain) {
		if v.logger != nil {
			v.logger.Info("authentication failed",
				zap.String("account_id", account.ID),
				zap.String("reason", "password_mismatch"))
		}
		return ErrInvalidCredentials
	}
	return nil
}
