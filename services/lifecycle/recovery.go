package lifecycle

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/services/accounts"
	"github.com/tech-arch1tect/gatekeeper/services/mail"
	"github.com/tech-arch1tect/gatekeeper/services/onetimetoken"
	"go.uber.org/zap"
)

type ResetPasswordInput struct {
	AccountID       string `json:"id"`
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type ChangePasswordInput struct {
	AccountID       string `json:"-"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (s *Service) validateNewPassword(field, plain string) error {
	return asValidationError(validation.Errors{
		field: validation.Validate(plain, validation.Required, validation.By(s.passwordRule)),
	}.Filter())
}

// ForgotPassword mails a reset link when email belongs to an account. The
// result is the same whether or not it does.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.repos.Accounts.FindByEmail(ctx, email)
	if errors.Is(err, accounts.ErrAccountNotFound) {
		if s.logger != nil {
			s.logger.Info("password reset requested for unknown email")
		}
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.repos.Tokens.Issue(ctx, account.ID, onetimetoken.PurposePasswordReset)
	if err != nil {
		return err
	}

	sent := s.notify(ctx, account, mail.TemplatePasswordReset, "Reset your password", map[string]any{
		"Link":      link(s.cfg.Links.ResetURL, account.ID, token.Value),
		"ExpiresIn": s.expiresIn(token),
	})
	if s.logger != nil {
		s.logger.Info("password reset requested",
			zap.String("account_id", account.ID),
			zap.Bool("reused_token", token.Reused),
			zap.Bool("sent", sent))
	}
	return nil
}

// ResetPassword sets a new password using a reset token. The account's
// session token is revoked in the same transaction.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	account, err := s.account(ctx, in.AccountID)
	if err != nil {
		return err
	}

	if err := s.repos.Tokens.Match(ctx, account.ID, onetimetoken.PurposePasswordReset, in.Token); err != nil {
		return err
	}
	if in.Password != in.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if err := s.validateNewPassword("password", in.Password); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return err
	}

	err = s.tx.InTx(ctx, func(r Repos) error {
		account.PasswordHash = hash
		if err := r.Accounts.Update(ctx, account); err != nil {
			return err
		}
		if s.cfg.Auth.ResetTokenPolicy != config.ResetTokenRetain {
			if err := r.Tokens.Consume(ctx, account.ID, onetimetoken.PurposePasswordReset, in.Token); err != nil {
				return err
			}
		}
		return r.Tokens.Delete(ctx, account.ID, onetimetoken.PurposeSession)
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("password reset completed", zap.String("account_id", account.ID))
	}
	s.notify(ctx, account, mail.TemplatePasswordChanged, "Your password was changed", nil)
	return nil
}

// ChangePassword replaces the password of an authenticated account after
// re-checking the current one.
func (s *Service) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	account, err := s.account(ctx, in.AccountID)
	if err != nil {
		return err
	}

	if err := s.checker.VerifyPassword(account, in.CurrentPassword); err != nil {
		return ErrInvalidPassword
	}
	if in.NewPassword != in.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if err := s.validateNewPassword("new_password", in.NewPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(in.NewPassword)
	if err != nil {
		return err
	}

	account.PasswordHash = hash
	if err := s.repos.Accounts.Update(ctx, account); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("password changed", zap.String("account_id", account.ID))
	}
	s.notify(ctx, account, mail.TemplatePasswordChanged, "Your password was changed", nil)
	return nil
}
