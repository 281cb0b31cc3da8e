package ratelimit

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Limiter is the configured credential-endpoint limiter. When disabled its
// Middleware passes every request through.
type Limiter struct {
	enabled bool
	cfg     Config
	store   *MemoryStore
}

func NewLimiter(cfg *config.Config, logger *logging.Service) *Limiter {
	store := NewMemoryStore()
	return &Limiter{
		enabled: cfg.RateLimit.Enabled,
		store:   store,
		cfg: Config{
			Store:     store,
			Rate:      cfg.RateLimit.Rate,
			Period:    cfg.RateLimit.Period,
			CountMode: cfg.RateLimit.CountMode,
			Logger:    logger,
		},
	}
}

func (l *Limiter) Middleware() echo.MiddlewareFunc {
	if !l.enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return Middleware(l.cfg)
}

// SendingMiddleware limits endpoints that send mail. Those answer 200 for
// unknown addresses too, so every request counts whatever CountMode says.
func (l *Limiter) SendingMiddleware() echo.MiddlewareFunc {
	if !l.enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	cfg := l.cfg
	cfg.CountMode = config.CountAll
	return Middleware(cfg)
}

func sweepExpiredWindows(lc fx.Lifecycle, limiter *Limiter, cfg *config.Config, logger *logging.Service) {
	if !limiter.enabled {
		return
	}

	stop := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(cfg.RateLimit.Period)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if n := limiter.store.Sweep(); n > 0 {
							logger.Debug("rate limit windows swept", zap.Int("removed", n))
						}
					case <-stop:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			close(stop)
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(NewLimiter),
	fx.Invoke(sweepExpiredWindows),
)
