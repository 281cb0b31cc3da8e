package password

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tech-arch1tect/gatekeeper/config"
)

type Policy struct {
	MinLength      int
	MaxLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireNumber  bool
	RequireSpecial bool
}

func PolicyFromConfig(cfg config.AuthConfig) Policy {
	return Policy{
		MinLength:      cfg.MinLength,
		MaxLength:      cfg.MaxLength,
		RequireUpper:   cfg.RequireUpper,
		RequireLower:   cfg.RequireLower,
		RequireNumber:  cfg.RequireNumber,
		RequireSpecial: cfg.RequireSpecial,
	}
}

// PolicyError lists every requirement a candidate password failed.
type PolicyError struct {
	Unmet []string
}

func (e *PolicyError) Error() string {
	return "password must " + strings.Join(e.Unmet, ", ")
}

func (p Policy) Validate(plain string) error {
	var unmet []string

	// the minimum is in characters, the maximum in bytes because bcrypt
	// truncates by byte
	if utf8.RuneCountInString(plain) < p.MinLength {
		unmet = append(unmet, fmt.Sprintf("be at least %d characters", p.MinLength))
	}
	if p.MaxLength > 0 && len(plain) > p.MaxLength {
		unmet = append(unmet, fmt.Sprintf("be at most %d bytes", p.MaxLength))
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range plain {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	if p.RequireUpper && !hasUpper {
		unmet = append(unmet, "contain one uppercase letter")
	}
	if p.RequireLower && !hasLower {
		unmet = append(unmet, "contain one lowercase letter")
	}
	if p.RequireNumber && !hasNumber {
		unmet = append(unmet, "contain one number")
	}
	if p.RequireSpecial && !hasSpecial {
		unmet = append(unmet, "contain one special character")
	}

	if len(unmet) > 0 {
		return &PolicyError{Unmet: unmet}
	}
	return nil
}
