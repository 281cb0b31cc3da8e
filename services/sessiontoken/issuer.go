package sessiontoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tech-arch1tect/gatekeeper/services/accounts"
	"github.com/tech-arch1tect/gatekeeper/services/jwt"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"github.com/tech-arch1tect/gatekeeper/services/onetimetoken"
	"go.uber.org/zap"
)

var (
	ErrIssuanceFailed = errors.New("failed to issue session token")
	ErrSessionInvalid = errors.New("invalid or expired session")
)

type Authenticator interface {
	Authenticate(ctx context.Context, email, plain string) (*accounts.Account, error)
}

type Session struct {
	Account   *accounts.Account
	Token     string
	ExpiresAt time.Time
	Reused    bool
}

type issueOptions struct {
	device string
}

type IssueOption func(*issueOptions)

func WithUserAgent(userAgent string) IssueOption {
	return func(o *issueOptions) {
		o.device = DeviceLabel(userAgent)
	}
}

type Issuer struct {
	verifier Authenticator
	accounts accounts.Store
	tokens   onetimetoken.Store
	jwt      *jwt.Service
	logger   *logging.Service
}

func NewIssuer(verifier Authenticator, accountStore accounts.Store, tokens onetimetoken.Store, jwtSvc *jwt.Service, logger *logging.Service) *Issuer {
	return &Issuer{
		verifier: verifier,
		accounts: accountStore,
		tokens:   tokens,
		jwt:      jwtSvc,
		logger:   logger,
	}
}

// IssueOrReuse authenticates the credentials and returns the account's
// current session token while it is still valid, minting a replacement
// otherwise. Verifier errors are returned unchanged.
func (i *Issuer) IssueOrReuse(ctx context.Context, email, plain string, opts ...IssueOption) (*Session, error) {
	account, err := i.verifier.Authenticate(ctx, email, plain)
	if err != nil {
		return nil, err
	}

	var o issueOptions
	for _, opt := range opts {
		opt(&o)
	}

	stale := false
	stored, err := i.tokens.Find(ctx, account.ID, onetimetoken.PurposeSession)
	switch {
	case err == nil:
		if session := i.reusable(account, stored); session != nil {
			return session, nil
		}
		stale = true
	case !errors.Is(err, onetimetoken.ErrTokenNotFound):
		return nil, i.failed(account, "look up session token", err)
	}

	signed, claims, err := i.jwt.Generate(account.ID, account.Email)
	if err != nil {
		return nil, i.failed(account, "sign session token", err)
	}

	expiresAt := claims.ExpiresAt.Time
	token := &onetimetoken.Token{
		AccountID: account.ID,
		Purpose:   onetimetoken.PurposeSession,
		Value:     signed,
		Device:    o.device,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: &expiresAt,
	}

	if stale {
		err = i.tokens.Put(ctx, token)
	} else {
		err = i.tokens.Insert(ctx, token)
		if errors.Is(err, onetimetoken.ErrTokenExists) {
			// a concurrent login stored its token first
			if winner, findErr := i.tokens.Find(ctx, account.ID, onetimetoken.PurposeSession); findErr == nil {
				if session := i.reusable(account, winner); session != nil {
					return session, nil
				}
			}
			err = i.tokens.Put(ctx, token)
		}
	}
	if err != nil {
		return nil, i.failed(account, "store session token", err)
	}

	if i.logger != nil {
		i.logger.Info("session token issued",
			zap.String("account_id", account.ID),
			zap.String("device", o.device),
			zap.Time("expires_at", expiresAt))
	}

	return &Session{Account: account, Token: signed, ExpiresAt: expiresAt}, nil
}

// reusable returns the stored token as a session while both the JWT and the
// stored row are unexpired. The JWT check tolerates clock skew and the row
// check does not, so the row decides near expiry, as Authenticate does.
func (i *Issuer) reusable(account *accounts.Account, stored *onetimetoken.Token) *Session {
	if stored.Expired(i.jwt.Now()) {
		return nil
	}
	claims, err := i.jwt.Validate(stored.Value)
	if err != nil || claims.AccountID() != account.ID {
		return nil
	}

	if i.logger != nil {
		i.logger.Debug("reusing session token", zap.String("account_id", account.ID))
	}
	return &Session{Account: account, Token: stored.Value, ExpiresAt: claims.ExpiresAt.Time, Reused: true}
}

func (i *Issuer) failed(account *accounts.Account, op string, err error) error {
	if i.logger != nil {
		i.logger.Error("session token issuance failed",
			zap.String("account_id", account.ID),
			zap.String("operation", op),
			zap.Error(err))
	}
	return fmt.Errorf("%w: %s: %w", ErrIssuanceFailed, op, err)
}

// Authenticate resolves a presented bearer token to its account. The token
// must verify, be the one currently stored for the account and belong to an
// account that still exists.
func (i *Issuer) Authenticate(ctx context.Context, bearer string) (*jwt.Claims, *accounts.Account, error) {
	claims, err := i.jwt.Validate(bearer)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	}

	err = i.tokens.Match(ctx, claims.AccountID(), onetimetoken.PurposeSession, bearer)
	switch {
	case errors.Is(err, onetimetoken.ErrTokenMismatch), errors.Is(err, onetimetoken.ErrTokenExpired):
		return nil, nil, fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	case err != nil:
		return nil, nil, err
	}

	account, err := i.accounts.GetByID(ctx, claims.AccountID())
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return nil, nil, fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	}
	if err != nil {
		return nil, nil, err
	}

	return claims, account, nil
}

func (i *Issuer) Revoke(ctx context.Context, accountID string) error {
	if err := i.tokens.Delete(ctx, accountID, onetimetoken.PurposeSession); err != nil {
		return err
	}
	if i.logger != nil {
		i.logger.Info("session token revoked", zap.String("account_id", accountID))
	}
	return nil
}
