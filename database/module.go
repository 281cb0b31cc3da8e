package database

import (
	"context"

	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(ProvideDatabaseFx),
)

func ProvideDatabaseFx(lc fx.Lifecycle, cfg *config.Config, modelsOpt *ModelsOption, logger *logging.Service) (*gorm.DB, error) {
	db, err := ProvideDatabase(*cfg, modelsOpt, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}
