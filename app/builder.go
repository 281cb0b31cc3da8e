package app

import (
	"errors"
	"fmt"

	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/internal/options"
	"github.com/tech-arch1tect/gatekeeper/server"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type AppBuilder struct {
	config    *config.Config
	fxOptions []fx.Option
	errors    []error
}

func NewApp() *AppBuilder {
	return &AppBuilder{
		fxOptions: make([]fx.Option, 0),
		errors:    make([]error, 0),
	}
}

// New builds the application from functional options.
func New(opts ...options.Option) (*App, error) {
	o := options.Apply(opts...)

	b := NewApp()
	if o.Config != nil {
		b.WithConfig(o.Config)
	}
	return b.WithFxOptions(o.FxOptions...).Build()
}

func (b *AppBuilder) WithConfig(cfg *config.Config) *AppBuilder {
	if cfg == nil {
		b.addError("config cannot be nil")
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithAutoConfig() *AppBuilder {
	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		b.addError(fmt.Sprintf("failed to load config: %v", err))
		return b
	}
	b.config = cfg
	return b
}

func (b *AppBuilder) WithFxOptions(opts ...fx.Option) *AppBuilder {
	b.fxOptions = append(b.fxOptions, opts...)
	return b
}

func (b *AppBuilder) Build() (*App, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	if b.config == nil {
		if err := b.WithAutoConfig().validate(); err != nil {
			return nil, err
		}
	}

	app := &App{config: b.config}

	opts := append(modules(b.config), b.fxOptions...)
	opts = append(opts, fx.Invoke(func(logger *logging.Service, db *gorm.DB, srv *server.Server) {
		app.logger = logger
		app.db = db
		app.server = srv
	}))

	app.fx = fx.New(opts...)
	if err := app.fx.Err(); err != nil {
		return nil, fmt.Errorf("failed to build application: %w", err)
	}

	return app, nil
}

func (b *AppBuilder) addError(msg string) {
	b.errors = append(b.errors, errors.New(msg))
}

func (b *AppBuilder) validate() error {
	if len(b.errors) > 0 {
		return fmt.Errorf("configuration errors: %w", errors.Join(b.errors...))
	}
	return nil
}
