package database

import (
	"errors"
	"fmt"

	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrUnavailable marks failures of the backing store itself, as opposed to
// domain outcomes such as a missing row or a duplicate key.
var ErrUnavailable = errors.New("storage unavailable")

type ModelsOption struct {
	models []any
}

func WithModels(models ...any) *ModelsOption {
	return &ModelsOption{models: models}
}

func (o *ModelsOption) Models() []any {
	if o == nil {
		return nil
	}
	return o.models
}

func ProvideDatabase(cfg config.Config, modelsOpt *ModelsOption, logger *logging.Service) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	}

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.Database.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", cfg.Database.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.Driver == "sqlite" {
		// each :memory: connection is its own database
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if cfg.Database.AutoMigrate && len(modelsOpt.Models()) > 0 {
		if err := db.AutoMigrate(modelsOpt.Models()...); err != nil {
			return nil, fmt.Errorf("failed to auto-migrate models: %w", err)
		}
	}

	logger.Info("database connected",
		zap.String("driver", cfg.Database.Driver),
		zap.Int("migrated_models", len(modelsOpt.Models())))

	return db, nil
}

// Unavailable wraps err so callers can match ErrUnavailable with errors.Is
// while keeping the driver error in the chain.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
