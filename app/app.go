package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/server"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const stopTimeout = 30 * time.Second

type App struct {
	fx     *fx.App
	config *config.Config
	logger *logging.Service
	db     *gorm.DB
	server *server.Server
}

// Start runs every start hook: migrations have already happened during
// Build, then roles are seeded and the listener is opened.
func (a *App) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

func (a *App) Stop(ctx context.Context) error {
	return a.fx.Stop(ctx)
}

// Run starts the application and blocks until SIGINT, SIGTERM or an fx
// shutdown request, then stops it gracefully.
func (a *App) Run() {
	if err := a.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		a.logger.Info("received shutdown signal, stopping gracefully", zap.String("signal", sig.String()))
	case sig := <-a.fx.Wait():
		a.logger.Info("shutdown requested", zap.Int("exit_code", sig.ExitCode))
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := a.Stop(ctx); err != nil {
		a.logger.Error("failed to stop application gracefully", zap.Error(err))
	}
}

// Server returns the echo instance, which can serve requests directly
// without Start when exercised through httptest.
func (a *App) Server() *echo.Echo {
	if a.server == nil {
		return nil
	}
	return a.server.Echo()
}

func (a *App) HTTPServer() *server.Server {
	return a.server
}

func (a *App) DB() *gorm.DB {
	return a.db
}

func (a *App) Logger() *logging.Service {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.config
}
