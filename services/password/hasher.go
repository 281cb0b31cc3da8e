package password

import (
	"errors"
	"fmt"

	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrHashingFailed = errors.New("failed to hash password")

type Hasher struct {
	cost   int
	logger *logging.Service
}

func NewHasher(cost int, logger *logging.Service) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost, logger: logger}
}

func (h *Hasher) Cost() int {
	return h.cost
}

func (h *Hasher) Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		h.logger.Error("password hashing failed", zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrHashingFailed, err)
	}
	return string(hash), nil
}

// Verify reports whether plain matches hash. A malformed hash is a mismatch.
func (h *Hasher) Verify(hash, plain string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
	if err != nil && !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		h.logger.Warn("stored password hash is unreadable", zap.Error(err))
	}
	return err == nil
}

// NeedsRehash reports whether hash was produced with a cost other than the
// hasher's current one.
func (h *Hasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	return err != nil || cost != h.cost
}
