package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/testutils"
)

func serve(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("X-Real-IP", "203.0.113.7")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newEcho(cfg Config) *echo.Echo {
	e := echo.New()
	limited := e.Group("", Middleware(cfg))
	limited.POST("/ok", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	limited.POST("/fail", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "bad credentials")
	})
	limited.POST("/other", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	return e
}

func TestMiddleware_CountAll(t *testing.T) {
	e := newEcho(Config{Rate: 2, Period: time.Minute, CountMode: config.CountAll})

	first := serve(e, http.MethodPost, "/ok")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, first.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/ok").Code)

	limited := serve(e, http.MethodPost, "/ok")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "0", limited.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/other").Code, "routes have separate budgets")
}

func TestMiddleware_CountFailures(t *testing.T) {
	e := echo.New()
	store := NewMemoryStore()
	handlerStatus := http.StatusOK
	e.POST("/login", func(c echo.Context) error {
		if handlerStatus != http.StatusOK {
			return echo.NewHTTPError(handlerStatus)
		}
		return c.NoContent(http.StatusOK)
	}, Middleware(Config{Store: store, Rate: 2, Period: time.Minute, CountMode: config.CountFailures}))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/login").Code, "successes are free")
	}

	handlerStatus = http.StatusBadRequest
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPost, "/login").Code)
	rec := serve(e, http.MethodPost, "/login")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	handlerStatus = http.StatusOK
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/login").Code)
}

func TestMiddleware_CountSuccess(t *testing.T) {
	e := newEcho(Config{Rate: 1, Period: time.Minute, CountMode: config.CountSuccess})

	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPost, "/fail").Code)
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPost, "/fail").Code)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/ok").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/ok").Code)
}

func TestMiddleware_WindowExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.SetClock(func() time.Time { return now })

	e := newEcho(Config{Store: store, Rate: 1, Period: time.Minute, CountMode: config.CountAll})

	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/ok").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/ok").Code)

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/ok").Code)
}

func TestMiddleware_Defaults(t *testing.T) {
	e := newEcho(Config{})

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/ok").Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/ok").Code)
}

func TestRouteKeyGenerator(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/accounts/login", nil)
	req.Header.Set("X-Real-IP", "198.51.100.4")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/accounts/login")

	assert.Equal(t, "rate_limit:198.51.100.4:/api/accounts/login", RouteKeyGenerator(c))
}

func TestLimiter(t *testing.T) {
	t.Run("disabled passes through", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		cfg.RateLimit.Enabled = false
		cfg.RateLimit.Rate = 1

		e := echo.New()
		e.POST("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
			NewLimiter(cfg, nil).Middleware())

		for i := 0; i < 3; i++ {
			rec := serve(e, http.MethodPost, "/ok")
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
		}
	})

	t.Run("enabled uses configured rate", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.Rate = 1
		cfg.RateLimit.CountMode = config.CountAll

		e := echo.New()
		e.POST("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
			NewLimiter(cfg, nil).Middleware())

		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/ok").Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/ok").Code)
	})

	t.Run("sending endpoints count successes in failures mode", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		cfg.RateLimit.Enabled = true
		cfg.RateLimit.Rate = 2
		cfg.RateLimit.CountMode = config.CountFailures

		limiter := NewLimiter(cfg, nil)
		e := echo.New()
		ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
		e.POST("/login", ok, limiter.Middleware())
		e.POST("/forgot", ok, limiter.SendingMiddleware())

		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/login").Code)
		}

		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/forgot").Code)
		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/forgot").Code)
		assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodPost, "/forgot").Code)
	})

	t.Run("sending middleware disabled passes through", func(t *testing.T) {
		cfg := testutils.GetTestConfig()
		cfg.RateLimit.Enabled = false
		cfg.RateLimit.Rate = 1

		e := echo.New()
		e.POST("/forgot", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
			NewLimiter(cfg, nil).SendingMiddleware())

		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/forgot").Code)
		}
	})
}
