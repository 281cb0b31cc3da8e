package password

import (
	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(
		func(cfg *config.Config, logger *logging.Service) *Hasher {
			return NewHasher(cfg.Auth.BcryptCost, logger)
		},
	),
)
