package lifecycle

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/tech-arch1tect/gatekeeper/services/accounts"
	"github.com/tech-arch1tect/gatekeeper/services/mail"
	"github.com/tech-arch1tect/gatekeeper/services/onetimetoken"
	"go.uber.org/zap"
)

type RegisterInput struct {
	DocumentID      string `json:"document_id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type RegisterResult struct {
	Account              *accounts.Account `json:"account"`
	ConfirmationRequired bool              `json:"confirmation_required"`
	ConfirmationSent     bool              `json:"confirmation_sent"`
}

func (s *Service) validateRegistration(in RegisterInput) error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.DocumentID, validation.Required, validation.Length(s.cfg.Auth.DocumentIDMinLength, 0)),
		validation.Field(&in.Username, validation.Required, validation.Length(1, s.cfg.Auth.UsernameMaxLength)),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, validation.By(s.passwordRule)),
		validation.Field(&in.ConfirmPassword, validation.Required, validation.By(equalsRule(in.Password))),
	)
	return asValidationError(err)
}

func (s *Service) passwordRule(value interface{}) error {
	plain, _ := value.(string)
	return s.policy.Validate(plain)
}

func equalsRule(expected string) validation.RuleFunc {
	return func(value interface{}) error {
		if v, _ := value.(string); v != expected {
			return errors.New("must match password")
		}
		return nil
	}
}

// Register creates an account with the Client role. When confirmation is
// required the account starts unconfirmed and a confirmation link is mailed
// once the account has been committed.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if err := s.validateRegistration(in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	requireConfirmation := s.cfg.Auth.RequireEmailConfirmation
	account := &accounts.Account{
		DocumentID:     in.DocumentID,
		Username:       in.Username,
		Email:          in.Email,
		PasswordHash:   hash,
		EmailConfirmed: !requireConfirmation,
	}

	var token *onetimetoken.Token
	err = s.tx.InTx(ctx, func(r Repos) error {
		if err := r.Accounts.Insert(ctx, account); err != nil {
			if errors.Is(err, accounts.ErrDuplicateEmail) {
				return fmt.Errorf("%w: %w", ErrAccountCreation, err)
			}
			return err
		}
		if err := r.Accounts.AssignRole(ctx, account.ID, accounts.RoleClient); err != nil {
			return err
		}
		if !requireConfirmation {
			return nil
		}

		var err error
		token, err = r.Tokens.Issue(ctx, account.ID, onetimetoken.PurposeEmailConfirmation)
		return err
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("registration failed", zap.Error(err))
		}
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("account registered",
			zap.String("account_id", account.ID),
			zap.Bool("confirmation_required", requireConfirmation))
	}

	result := &RegisterResult{Account: account, ConfirmationRequired: requireConfirmation}
	if token != nil {
		result.ConfirmationSent = s.sendConfirmation(ctx, account, token)
	}
	return result, nil
}

func (s *Service) sendConfirmation(ctx context.Context, account *accounts.Account, token *onetimetoken.Token) bool {
	return s.notify(ctx, account, mail.TemplateEmailConfirmation, "Confirm your email address", map[string]any{
		"Link":      link(s.cfg.Links.ConfirmationURL, account.ID, token.Value),
		"ExpiresIn": s.expiresIn(token),
	})
}

// ConfirmEmail marks the account confirmed and consumes its confirmation
// token. Confirming an already confirmed account succeeds without checking
// the token.
func (s *Service) ConfirmEmail(ctx context.Context, accountID, token string) error {
	account, err := s.account(ctx, accountID)
	if err != nil {
		return err
	}
	if account.EmailConfirmed {
		return nil
	}

	if err := s.repos.Tokens.Match(ctx, account.ID, onetimetoken.PurposeEmailConfirmation, token); err != nil {
		return err
	}

	err = s.tx.InTx(ctx, func(r Repos) error {
		if err := r.Tokens.Consume(ctx, account.ID, onetimetoken.PurposeEmailConfirmation, token); err != nil {
			return err
		}
		account.EmailConfirmed = true
		return r.Accounts.Update(ctx, account)
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("email confirmed", zap.String("account_id", account.ID))
	}
	return nil
}

// RequestEmailConfirmation mails the outstanding confirmation link again,
// minting a new token if the previous one expired. Unknown and already
// confirmed addresses are ignored.
func (s *Service) RequestEmailConfirmation(ctx context.Context, email string) error {
	account, err := s.repos.Accounts.FindByEmail(ctx, email)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if account.EmailConfirmed {
		return nil
	}

	token, err := s.repos.Tokens.Issue(ctx, account.ID, onetimetoken.PurposeEmailConfirmation)
	if err != nil {
		return err
	}
	s.sendConfirmation(ctx, account, token)
	return nil
}
