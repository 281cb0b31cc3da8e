package logging

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request, keyed by route rather than raw
// URI. Requests to skipPaths are not logged.
func RequestLogger(logger *Service, skipPaths ...string) echo.MiddlewareFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, path := range skipPaths {
		skip[path] = true
	}

	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogRoutePath: true,
		LogRequestID: true,
		LogError:     true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		Skipper: func(c echo.Context) bool {
			return skip[c.Request().URL.Path]
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request_id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("route", v.RoutePath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("user_agent", v.UserAgent),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}

			switch {
			case v.Status >= http.StatusInternalServerError:
				logger.Error("request failed", fields...)
			case v.Status == http.StatusTooManyRequests:
				logger.Warn("request rate limited", fields...)
			case v.Status >= http.StatusBadRequest:
				logger.Warn("request rejected", fields...)
			default:
				logger.Info("request", fields...)
			}
			return nil
		},
	})
}
