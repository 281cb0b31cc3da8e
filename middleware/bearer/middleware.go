package bearer

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/gatekeeper/services/accounts"
	"github.com/tech-arch1tect/gatekeeper/services/jwt"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"github.com/tech-arch1tect/gatekeeper/services/sessiontoken"
	"go.uber.org/zap"
)

const (
	AccountKey = "_bearer_account"
	ClaimsKey  = "_bearer_claims"
)

type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*jwt.Claims, *accounts.Account, error)
}

// RequireBearer rejects requests without a valid session token and stores
// the resolved account and claims on the context.
func RequireBearer(auth Authenticator, logger *logging.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authorization header required")
			}

			scheme, token, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header format")
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "bearer token required")
			}

			claims, account, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				return rejection(err, logger)
			}

			c.Set(AccountKey, account)
			c.Set(ClaimsKey, claims)
			return next(c)
		}
	}
}

func rejection(err error, logger *logging.Service) error {
	switch {
	case errors.Is(err, jwt.ErrExpiredToken):
		return echo.NewHTTPError(http.StatusUnauthorized, "token has expired")
	case errors.Is(err, jwt.ErrMalformedToken):
		return echo.NewHTTPError(http.StatusUnauthorized, "malformed token")
	case errors.Is(err, jwt.ErrInvalidSignature):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token signature")
	case errors.Is(err, sessiontoken.ErrSessionInvalid):
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or revoked token")
	default:
		if logger != nil {
			logger.Error("bearer authentication failed", zap.Error(err))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "authentication unavailable").SetInternal(err)
	}
}

func GetAccount(c echo.Context) *accounts.Account {
	if account, ok := c.Get(AccountKey).(*accounts.Account); ok {
		return account
	}
	return nil
}

func GetAccountID(c echo.Context) string {
	if account := GetAccount(c); account != nil {
		return account.ID
	}
	return ""
}

func GetClaims(c echo.Context) *jwt.Claims {
	if claims, ok := c.Get(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}
