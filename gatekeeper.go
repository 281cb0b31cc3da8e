package gatekeeper

import (
	"github.com/tech-arch1tect/gatekeeper/app"
	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/internal/options"
	"go.uber.org/fx"
)

type App = app.App

func New(opts ...options.Option) (*App, error) {
	return app.New(opts...)
}

func WithConfig(cfg *config.Config) options.Option {
	return options.WithConfig(cfg)
}

func WithFxOptions(fxOpts ...fx.Option) options.Option {
	return options.WithFxOptions(fxOpts...)
}
