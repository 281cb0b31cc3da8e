package app

import (
	"context"

	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/database"
	"github.com/tech-arch1tect/gatekeeper/handlers"
	"github.com/tech-arch1tect/gatekeeper/middleware/bearer"
	"github.com/tech-arch1tect/gatekeeper/middleware/ratelimit"
	"github.com/tech-arch1tect/gatekeeper/openapi"
	"github.com/tech-arch1tect/gatekeeper/server"
	"github.com/tech-arch1tect/gatekeeper/services/accounts"
	"github.com/tech-arch1tect/gatekeeper/services/credentials"
	"github.com/tech-arch1tect/gatekeeper/services/jwt"
	"github.com/tech-arch1tect/gatekeeper/services/lifecycle"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"github.com/tech-arch1tect/gatekeeper/services/mail"
	"github.com/tech-arch1tect/gatekeeper/services/onetimetoken"
	"github.com/tech-arch1tect/gatekeeper/services/password"
	"github.com/tech-arch1tect/gatekeeper/services/sessiontoken"
	"go.uber.org/fx"
)

const (
	OpenAPIJSONPath = "/openapi.json"
	OpenAPIYAMLPath = "/openapi.yaml"

	bearerScheme = "bearerAuth"
)

func models() []any {
	return append(accounts.Models(), &onetimetoken.Token{})
}

// modules lists the whole service graph. Seeding is registered ahead of the
// server so roles exist before the first request is accepted.
func modules(cfg *config.Config) []fx.Option {
	return []fx.Option{
		fx.NopLogger,
		config.NewProvider(cfg),
		logging.Module,
		fx.Supply(database.WithModels(models()...)),
		database.Module,
		password.Module,
		accounts.Module,
		onetimetoken.Module,
		jwt.Options,
		credentials.Module,
		sessiontoken.Module,
		mail.Module,
		lifecycle.Module,
		ratelimit.Module,
		fx.Provide(
			newDocument,
			func(svc *lifecycle.Service) handlers.Lifecycle { return svc },
			handlers.NewAccountHandler,
		),
		fx.Invoke(seedOnStart),
		server.NewProvider(),
		fx.Invoke(registerRoutes),
	}
}

func newDocument(cfg *config.Config) *openapi.Document {
	return openapi.New(cfg.App.Name, cfg.App.Version).
		Description("Account registration, confirmation, password recovery and bearer sessions.").
		Server(cfg.App.URL, "").
		Tag("accounts", "Account lifecycle").
		BearerAuth(bearerScheme, "Session token returned by the login endpoint")
}

func seedOnStart(lc fx.Lifecycle, seeder *accounts.Seeder) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return seeder.Seed(ctx)
		},
	})
}

func registerRoutes(srv *server.Server, doc *openapi.Document, h *handlers.AccountHandler, issuer *sessiontoken.Issuer, limiter *ratelimit.Limiter, logger *logging.Service) {
	e := srv.Echo()
	h.Routes(e, doc, bearer.RequireBearer(issuer, logger), limiter.Middleware(), limiter.SendingMiddleware())
	doc.Mount(e, OpenAPIJSONPath, OpenAPIYAMLPath)
}
