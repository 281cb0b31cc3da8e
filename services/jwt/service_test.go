package jwt

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/testutils"
)

func newTestService(t *testing.T) (*Service, *time.Time) {
	service := NewService(testutils.GetTestConfig(), nil)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }
	return service, &now
}

func TestService_Generate(t *testing.T) {
	service, now := newTestService(t)
	cfg := testutils.GetTestConfig()

	tokenString, claims, err := service.Generate("acc-123", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, len(strings.Split(tokenString, ".")))

	assert.Equal(t, "acc-123", claims.AccountID())
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, cfg.JWT.Issuer, claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{cfg.JWT.Audience}, claims.Audience)
	assert.Equal(t, now.Unix(), claims.NotBefore.Unix())
	assert.Equal(t, now.Add(28*24*time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)

	t.Run("unique ids", func(t *testing.T) {
		a, ca, err := service.Generate("acc-123", "alice@example.com")
		require.NoError(t, err)
		b, cb, err := service.Generate("acc-123", "alice@example.com")
		require.NoError(t, err)

		assert.NotEqual(t, ca.ID, cb.ID)
		assert.NotEqual(t, a, b)
	})
}

func TestService_Validate(t *testing.T) {
	t.Run("valid immediately after issuance", func(t *testing.T) {
		service, _ := newTestService(t)
		tokenString, _, err := service.Generate("acc-1", "a@example.com")
		require.NoError(t, err)

		claims, err := service.Validate(tokenString)
		require.NoError(t, err)
		assert.Equal(t, "acc-1", claims.AccountID())
		assert.Equal(t, "a@example.com", claims.Email)
		assert.True(t, service.Valid(tokenString))
	})

	t.Run("expired after horizon", func(t *testing.T) {
		service, now := newTestService(t)
		tokenString, _, err := service.Generate("acc-1", "a@example.com")
		require.NoError(t, err)

		*now = now.Add(28*24*time.Hour + 6*time.Minute)
		_, err = service.Validate(tokenString)
		assert.ErrorIs(t, err, ErrExpiredToken)
		assert.False(t, service.Valid(tokenString))
	})

	t.Run("clock skew allowance", func(t *testing.T) {
		service, now := newTestService(t)
		tokenString, _, err := service.Generate("acc-1", "a@example.com")
		require.NoError(t, err)

		*now = now.Add(28*24*time.Hour + 4*time.Minute)
		assert.True(t, service.Valid(tokenString))

		*now = now.Add(-(28*24*time.Hour + 4*time.Minute) - 4*time.Minute)
		assert.True(t, service.Valid(tokenString), "within skew before not-before")
	})

	t.Run("not yet valid", func(t *testing.T) {
		service, now := newTestService(t)
		tokenString, _, err := service.Generate("acc-1", "a@example.com")
		require.NoError(t, err)

		*now = now.Add(-10 * time.Minute)
		_, err = service.Validate(tokenString)
		assert.ErrorIs(t, err, ErrNotYetValid)
	})

	t.Run("tampered signature", func(t *testing.T) {
		service, _ := newTestService(t)
		tokenString, _, err := service.Generate("acc-1", "a@example.com")
		require.NoError(t, err)

		parts := strings.Split(tokenString, ".")
		sig := []byte(parts[2])
		if sig[0] == 'A' {
			sig[0] = 'B'
		} else {
			sig[0] = 'A'
		}
		tampered := parts[0] + "." + parts[1] + "." + string(sig)

		_, err = service.Validate(tampered)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("different secret", func(t *testing.T) {
		service, now := newTestService(t)
		tokenString, _, err := service.Generate("acc-1", "a@example.com")
		require.NoError(t, err)

		other := testutils.GetTestConfig()
		other.JWT.SecretKey = "Zr8wq3Lm5Nt2Vb7Kx1Jh4Gf6Dp9Sc0Ya"
		verifier := NewService(other, nil)
		verifier.SetClock(func() time.Time { return *now })
		_, err = verifier.Validate(tokenString)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("wrong issuer and audience", func(t *testing.T) {
		service, now := newTestService(t)
		tokenString, _, err := service.Generate("acc-1", "a@example.com")
		require.NoError(t, err)

		verifier := func(mutate func(*config.Config)) *Service {
			cfg := testutils.GetTestConfig()
			mutate(cfg)
			svc := NewService(cfg, nil)
			svc.SetClock(func() time.Time { return *now })
			return svc
		}

		_, err = verifier(func(cfg *config.Config) { cfg.JWT.Issuer = "someone-else" }).Validate(tokenString)
		assert.ErrorIs(t, err, ErrInvalidIssuer)

		_, err = verifier(func(cfg *config.Config) { cfg.JWT.Audience = "other-clients" }).Validate(tokenString)
		assert.ErrorIs(t, err, ErrInvalidAudience)
	})

	t.Run("malformed", func(t *testing.T) {
		service, _ := newTestService(t)

		_, err := service.Validate("not.a.jwt")
		assert.ErrorIs(t, err, ErrMalformedToken)
		assert.False(t, service.Valid(""))
	})

	t.Run("none algorithm rejected", func(t *testing.T) {
		service, _ := newTestService(t)
		cfg := testutils.GetTestConfig()

		claims := Claims{
			Email: "a@example.com",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    cfg.JWT.Issuer,
				Subject:   "acc-1",
				Audience:  jwt.ClaimStrings{cfg.JWT.Audience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		tokenString, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.Validate(tokenString)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing expiry rejected", func(t *testing.T) {
		service, _ := newTestService(t)
		cfg := testutils.GetTestConfig()

		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:   cfg.JWT.Issuer,
				Subject:  "acc-1",
				Audience: jwt.ClaimStrings{cfg.JWT.Audience},
			},
		}
		tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWT.SecretKey))
		require.NoError(t, err)

		assert.False(t, service.Valid(tokenString))
	})

	t.Run("HS512 rejected", func(t *testing.T) {
		service, now := newTestService(t)
		cfg := testutils.GetTestConfig()

		claims := Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    cfg.JWT.Issuer,
				Subject:   "acc-1",
				Audience:  jwt.ClaimStrings{cfg.JWT.Audience},
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
		tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.JWT.SecretKey))
		require.NoError(t, err)

		assert.False(t, service.Valid(tokenString))
	})
}
