package ratelimit

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/zap"
)

type Config struct {
	Store        Store
	Rate         int
	Period       time.Duration
	CountMode    config.CountingMode
	KeyGenerator func(c echo.Context) string
	Logger       *logging.Service
}

// Middleware limits each key to Rate counted requests per Period. Which
// requests count depends on CountMode: all of them, only those that ended
// in a 4xx/5xx, or only successful ones.
func Middleware(cfg Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}
	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = RouteKeyGenerator
	}
	if cfg.CountMode == "" {
		cfg.CountMode = config.CountAll
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := cfg.KeyGenerator(c)

			count, resetAt, _ := cfg.Store.Get(key)
			if count >= cfg.Rate {
				setHeaders(c, cfg.Rate, 0, resetAt)
				if cfg.Logger != nil {
					cfg.Logger.Warn("rate limit exceeded",
						zap.String("key", key),
						zap.String("path", c.Path()))
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}

			if cfg.CountMode == config.CountAll {
				count, resetAt = cfg.Store.Increment(key, cfg.Period)
				setHeaders(c, cfg.Rate, cfg.Rate-count, resetAt)
				return next(c)
			}

			setHeaders(c, cfg.Rate, cfg.Rate-count, resetAt)
			err := next(c)

			status := responseStatus(c, err)
			if (cfg.CountMode == config.CountFailures) == (status >= http.StatusBadRequest) {
				count, resetAt = cfg.Store.Increment(key, cfg.Period)
			}
			if !c.Response().Committed {
				setHeaders(c, cfg.Rate, cfg.Rate-count, resetAt)
			}
			return err
		}
	}
}

// responseStatus is the status the request will end with. A returned error
// has not been written yet, so its code comes from the error itself.
func responseStatus(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

func setHeaders(c echo.Context, limit, remaining int, resetAt time.Time) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	if !resetAt.IsZero() {
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

// RouteKeyGenerator buckets requests by client IP and route so that one
// endpoint's budget does not drain another's.
func RouteKeyGenerator(c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	return "rate_limit:" + ip + ":" + c.Path()
}
