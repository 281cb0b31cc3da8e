package lifecycle

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/services/accounts"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"github.com/tech-arch1tect/gatekeeper/services/onetimetoken"
	"github.com/tech-arch1tect/gatekeeper/services/password"
	"github.com/tech-arch1tect/gatekeeper/services/sessiontoken"
	"go.uber.org/zap"
)

type Mailer interface {
	SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error
}

type PasswordChecker interface {
	VerifyPassword(account *accounts.Account, plain string) error
}

type Sessions interface {
	IssueOrReuse(ctx context.Context, email, plain string, opts ...sessiontoken.IssueOption) (*sessiontoken.Session, error)
	Revoke(ctx context.Context, accountID string) error
}

// Service drives accounts through registration, confirmation, password
// recovery and login.
type Service struct {
	cfg      *config.Config
	repos    Repos
	tx       Transactor
	hasher   *password.Hasher
	policy   password.Policy
	checker  PasswordChecker
	sessions Sessions
	mailer   Mailer
	logger   *logging.Service
	now      func() time.Time
}

func NewService(cfg *config.Config, repos Repos, tx Transactor, hasher *password.Hasher, checker PasswordChecker, sessions Sessions, mailer Mailer, logger *logging.Service) *Service {
	return &Service{
		cfg:      cfg,
		repos:    repos,
		tx:       tx,
		hasher:   hasher,
		policy:   password.PolicyFromConfig(cfg.Auth),
		checker:  checker,
		sessions: sessions,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) account(ctx context.Context, accountID string) (*accounts.Account, error) {
	account, err := s.repos.Accounts.GetByID(ctx, accountID)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return nil, ErrUnknownAccount
	}
	return account, err
}

// link fills the #Id and #Token placeholders of a configured URL template.
func link(template, accountID, token string) string {
	return strings.NewReplacer(
		"#Id", url.QueryEscape(accountID),
		"#Token", url.QueryEscape(token),
	).Replace(template)
}

func (s *Service) expiresIn(token *onetimetoken.Token) string {
	if token.ExpiresAt == nil {
		return ""
	}
	return token.ExpiresAt.Sub(s.now()).Round(time.Minute).String()
}

// notify sends a templated email after the transition has committed. A
// delivery failure is logged and reported as false.
func (s *Service) notify(ctx context.Context, account *accounts.Account, templateName, subject string, data map[string]any) bool {
	if s.mailer == nil {
		return false
	}

	payload := map[string]any{
		"AppName":  s.cfg.App.Name,
		"Username": account.Username,
	}
	for k, v := range data {
		payload[k] = v
	}

	if err := s.mailer.SendTemplate(ctx, templateName, []string{account.Email}, subject, payload); err != nil {
		if s.logger != nil {
			s.logger.Error("failed to send account email",
				zap.Error(err),
				zap.String("account_id", account.ID),
				zap.String("template", templateName))
		}
		return false
	}
	return true
}
