package options

import (
	"github.com/tech-arch1tect/gatekeeper/config"
	"go.uber.org/fx"
)

type Options struct {
	Config    *config.Config
	FxOptions []fx.Option
}

type Option func(*Options)

func WithConfig(cfg *config.Config) Option {
	return func(opts *Options) {
		opts.Config = cfg
	}
}

// WithFxOptions appends options to the dependency graph after the built-in
// modules, so fx.Decorate and fx.Replace can override them.
func WithFxOptions(fxOpts ...fx.Option) Option {
	return func(opts *Options) {
		opts.FxOptions = append(opts.FxOptions, fxOpts...)
	}
}

func Apply(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
