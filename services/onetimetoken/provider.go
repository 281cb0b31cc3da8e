package onetimetoken

import (
	"context"

	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func StartCleanupWorker(lc fx.Lifecycle, cfg *config.Config, store Store, logger *logging.Service) {
	cleaner := NewCleaner(store, cfg.Auth.TokenCleanupInterval, logger)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Debug("starting one-time token cleanup worker",
				zap.Duration("interval", cfg.Auth.TokenCleanupInterval))
			cleaner.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			cleaner.Stop()
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(
		NewGormStore,
		func(s *GormStore) Store { return s },
	),
	fx.Invoke(StartCleanupWorker),
)
