package lifecycle

import (
	"context"
	"time"

	"github.com/tech-arch1tect/gatekeeper/services/accounts"
	"github.com/tech-arch1tect/gatekeeper/services/sessiontoken"
)

type LoginResult struct {
	Account   *accounts.Account `json:"account"`
	Roles     []string          `json:"roles"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
}

type Profile struct {
	Account *accounts.Account `json:"account"`
	Roles   []string          `json:"roles"`
}

// Login exchanges credentials for a bearer token. Credential failures are
// returned as the verifier reported them.
func (s *Service) Login(ctx context.Context, email, plain, userAgent string) (*LoginResult, error) {
	session, err := s.sessions.IssueOrReuse(ctx, email, plain, sessiontoken.WithUserAgent(userAgent))
	if err != nil {
		return nil, err
	}

	roles, err := s.repos.Accounts.Roles(ctx, session.Account.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Account:   session.Account,
		Roles:     roles,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *Service) Logout(ctx context.Context, accountID string) error {
	return s.sessions.Revoke(ctx, accountID)
}

func (s *Service) Profile(ctx context.Context, accountID string) (*Profile, error) {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}

	roles, err := s.repos.Accounts.Roles(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return &Profile{Account: account, Roles: roles}, nil
}
