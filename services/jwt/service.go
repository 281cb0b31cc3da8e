package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/zap"
)

var (
	ErrInvalidToken     = errors.New("invalid JWT token")
	ErrExpiredToken     = errors.New("JWT token has expired")
	ErrNotYetValid      = errors.New("JWT token is not valid yet")
	ErrMalformedToken   = errors.New("malformed JWT token")
	ErrInvalidSignature = errors.New("invalid JWT token signature")
	ErrInvalidIssuer    = errors.New("JWT token has an unexpected issuer")
	ErrInvalidAudience  = errors.New("JWT token has an unexpected audience")
)

// Claims carries the account id in the registered subject claim next to the
// account email.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (c *Claims) AccountID() string {
	return c.Subject
}

type Service struct {
	config config.JWTConfig
	logger *logging.Service
	now    func() time.Time
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		config: cfg.JWT,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) Expiry() time.Duration {
	return s.config.Expiry
}

func (s *Service) Generate(accountID, email string) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.config.Issuer,
			Subject:   accountID,
			Audience:  jwt.ClaimStrings{s.config.Audience},
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.Expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.SecretKey))
	if err != nil {
		if s.logger != nil {
			s.logger.Error("failed to sign JWT token", zap.Error(err))
		}
		return "", nil, fmt.Errorf("failed to generate JWT token: %w", err)
	}

	return signed, claims, nil
}

func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() == "none" {
			return nil, errors.New("'none' algorithm is not allowed")
		}
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid algorithm family: %v", token.Header["alg"])
		}
		return []byte(s.config.SecretKey), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithAudience(s.config.Audience),
		jwt.WithLeeway(s.config.ClockSkew),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("JWT token validation failed", zap.Error(err))
		}

		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrNotYetValid
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, ErrInvalidIssuer
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, ErrInvalidAudience
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Valid reports whether tokenString passes Validate.
func (s *Service) Valid(tokenString string) bool {
	_, err := s.Validate(tokenString)
	return err == nil
}
