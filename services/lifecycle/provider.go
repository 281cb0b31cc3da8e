package lifecycle

import (
	"github.com/tech-arch1tect/gatekeeper/services/accounts"
	"github.com/tech-arch1tect/gatekeeper/services/credentials"
	"github.com/tech-arch1tect/gatekeeper/services/mail"
	"github.com/tech-arch1tect/gatekeeper/services/onetimetoken"
	"github.com/tech-arch1tect/gatekeeper/services/sessiontoken"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		func(a accounts.Store, t onetimetoken.Store) Repos {
			return Repos{Accounts: a, Tokens: t}
		},
		fx.Annotate(NewGormTransactor, fx.As(new(Transactor))),
		func(v *credentials.Verifier) PasswordChecker { return v },
		func(i *sessiontoken.Issuer) Sessions { return i },
		func(m *mail.Service) Mailer { return m },
		NewService,
	),
)
