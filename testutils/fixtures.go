package testutils

import (
	"time"

	"github.com/tech-arch1tect/gatekeeper/config"
	"golang.org/x/crypto/bcrypt"
)

const TestSigningKey = "k9Qz2vX7mN4pR8sT1wY6bC3dF5gH0jL2"

func GetTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name: "Gatekeeper Test",
			URL:  "http://localhost:8080",
		},
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: "0",
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "json",
			Output: "stdout",
		},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DSN:         ":memory:",
			AutoMigrate: true,
		},
		Auth: config.AuthConfig{
			MinLength:                8,
			MaxLength:                72,
			RequireUpper:             true,
			RequireLower:             true,
			RequireNumber:            true,
			BcryptCost:               bcrypt.MinCost,
			DocumentIDMinLength:      6,
			UsernameMaxLength:        256,
			RequireEmailConfirmation: true,
			TokenLength:              32,
			EmailConfirmationExpiry:  72 * time.Hour,
			PasswordResetExpiry:      time.Hour,
			ResetTokenPolicy:         config.ResetTokenConsume,
			TokenCleanupInterval:     time.Hour,
		},
		JWT: config.JWTConfig{
			SecretKey: TestSigningKey,
			Algorithm: "HS256",
			Issuer:    "gatekeeper-test",
			Audience:  "gatekeeper-test-clients",
			Expiry:    28 * 24 * time.Hour,
			ClockSkew: 5 * time.Minute,
		},
		Mail: config.MailConfig{
			Transport:   "log",
			FromAddress: "no-reply@example.com",
			FromName:    "Gatekeeper",
		},
		Links: config.LinksConfig{
			ConfirmationURL: "https://app.example.com/confirm?id=#Id&token=#Token",
			ResetURL:        "https://app.example.com/reset?id=#Id&token=#Token",
		},
		RateLimit: config.RateLimitConfig{
			Enabled:   false,
			Rate:      10,
			Period:    time.Minute,
			CountMode: config.CountFailures,
		},
	}
}

var TestPasswords = struct {
	Valid    string
	Other    string
	TooShort string
	NoUpper  string
	NoLower  string
	NoNumber string
}{
	Valid:    "Password123",
	Other:    "Different456",
	TooShort: "Pass1",
	NoUpper:  "password123",
	NoLower:  "PASSWORD123",
	NoNumber: "Password",
}

type TestAccount struct {
	DocumentID string
	Username   string
	Email      string
	Password   string
}

var ValidAccount = TestAccount{
	DocumentID: "12345678-9",
	Username:   "jdoe",
	Email:      "jdoe@example.com",
	Password:   "Password123",
}
