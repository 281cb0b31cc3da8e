package server

import (
	"context"

	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewProvider() fx.Option {
	return fx.Options(
		fx.Provide(New),
		fx.Invoke(func(lc fx.Lifecycle, srv *Server, shutdowner fx.Shutdowner, logger *logging.Service) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						if err := srv.Start(); err != nil {
							logger.Error("server stopped", zap.Error(err))
							_ = shutdowner.Shutdown(fx.ExitCode(1))
						}
					}()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return srv.Shutdown(ctx)
				},
			})
		}),
	)
}
