package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/zap"
)

type Server struct {
	echo   *echo.Echo
	cfg    *config.Config
	logger *logging.Service
}

func New(cfg *config.Config, logger *logging.Service) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	configureTrustedProxies(e, cfg.Server.TrustedProxies, logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if logger != nil {
		e.Use(logging.RequestLogger(logger, "/health"))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	return &Server{echo: e, cfg: cfg, logger: logger}
}

func (s *Server) Addr() string {
	return net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)
}

// Start listens until Shutdown is called. A normal shutdown is not an
// error.
func (s *Server) Start() error {
	if s.logger != nil {
		s.logger.Info("starting server", zap.String("addr", s.Addr()))
	}
	if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) Group(prefix string, m ...echo.MiddlewareFunc) *echo.Group {
	return s.echo.Group(prefix, m...)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// configureTrustedProxies reads client addresses from X-Forwarded-For only
// when the request came through one of the listed proxies. Unparseable
// entries are skipped.
func configureTrustedProxies(e *echo.Echo, proxies []string, logger *logging.Service) {
	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	trusted := 0
	for _, proxy := range proxies {
		proxy = strings.TrimSpace(proxy)
		if proxy == "" {
			continue
		}

		if !strings.Contains(proxy, "/") {
			ip := net.ParseIP(proxy)
			if ip == nil {
				logger.Warn("ignoring invalid trusted proxy", zap.String("proxy", proxy))
				continue
			}
			if ip.To4() != nil {
				proxy += "/32"
			} else {
				proxy += "/128"
			}
		}

		_, network, err := net.ParseCIDR(proxy)
		if err != nil {
			logger.Warn("ignoring invalid trusted proxy", zap.String("proxy", proxy))
			continue
		}
		options = append(options, echo.TrustIPRange(network))
		trusted++
	}

	if trusted == 0 {
		e.IPExtractor = echo.ExtractIPDirect()
		return
	}
	e.IPExtractor = echo.ExtractIPFromXFFHeader(options...)
}
