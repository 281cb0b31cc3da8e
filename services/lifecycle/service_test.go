package lifecycle

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/gatekeeper/config"
	"github.com/tech-arch1tect/gatekeeper/services/accounts"
	"github.com/tech-arch1tect/gatekeeper/services/credentials"
	"github.com/tech-arch1tect/gatekeeper/services/jwt"
	"github.com/tech-arch1tect/gatekeeper/services/mail"
	"github.com/tech-arch1tect/gatekeeper/services/onetimetoken"
	"github.com/tech-arch1tect/gatekeeper/services/password"
	"github.com/tech-arch1tect/gatekeeper/services/sessiontoken"
	"github.com/tech-arch1tect/gatekeeper/testutils"
	"gorm.io/gorm"
)

type fixture struct {
	service  *Service
	cfg      *config.Config
	db       *gorm.DB
	accounts *accounts.GormStore
	tokens   *onetimetoken.GormStore
	issuer   *sessiontoken.Issuer
	mailer   *testutils.MockMailService
	now      *time.Time
}

func setup(t *testing.T, configure ...func(*config.Config)) *fixture {
	cfg := testutils.GetTestConfig()
	for _, fn := range configure {
		fn(cfg)
	}

	db := testutils.SetupTestDB(t, append(accounts.Models(), &onetimetoken.Token{})...)

	now := time.Now().UTC().Truncate(time.Second)
	clock := func() time.Time { return now }

	accountStore := accounts.NewGormStore(db)
	require.NoError(t, accountStore.EnsureRoles(context.Background(), accounts.RoleAdmin, accounts.RoleClient))

	tokens := onetimetoken.NewGormStore(db, cfg, nil)
	tokens.SetClock(clock)
	jwtSvc := jwt.NewService(cfg, nil)
	jwtSvc.SetClock(clock)
	hasher := password.NewHasher(cfg.Auth.BcryptCost, nil)

	verifier, err := credentials.NewVerifier(accountStore, hasher, nil)
	require.NoError(t, err)
	issuer := sessiontoken.NewIssuer(verifier, accountStore, tokens, jwtSvc, nil)

	mailer := &testutils.MockMailService{}
	mailer.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	service := NewService(cfg,
		Repos{Accounts: accountStore, Tokens: tokens},
		NewGormTransactor(db, accountStore, tokens),
		hasher, verifier, issuer, mailer, nil)
	service.now = clock

	return &fixture{
		service:  service,
		cfg:      cfg,
		db:       db,
		accounts: accountStore,
		tokens:   tokens,
		issuer:   issuer,
		mailer:   mailer,
		now:      &now,
	}
}

func (f *fixture) advance(d time.Duration) {
	*f.now = f.now.Add(d)
}

func registration(email string) RegisterInput {
	return RegisterInput{
		DocumentID:      testutils.ValidAccount.DocumentID,
		Username:        testutils.ValidAccount.Username,
		Email:           email,
		Password:        testutils.TestPasswords.Valid,
		ConfirmPassword: testutils.TestPasswords.Valid,
	}
}

// linkToken pulls the token query parameter out of the link most recently
// mailed with templateName.
func (f *fixture) linkToken(t *testing.T, templateName string) (id, token string) {
	data := f.mailer.LastData(templateName)
	require.NotNil(t, data, "no %s email sent", templateName)

	parsed, err := url.Parse(data["Link"].(string))
	require.NoError(t, err)
	return parsed.Query().Get("id"), parsed.Query().Get("token")
}

func (f *fixture) register(t *testing.T, email string) *accounts.Account {
	result, err := f.service.Register(context.Background(), registration(email))
	require.NoError(t, err)
	return result.Account
}

func (f *fixture) registerConfirmed(t *testing.T, email string) *accounts.Account {
	account := f.register(t, email)
	id, token := f.linkToken(t, mail.TemplateEmailConfirmation)
	require.NoError(t, f.service.ConfirmEmail(context.Background(), id, token))
	return account
}

func (f *fixture) sentCount(templateName string) int {
	n := 0
	for _, call := range f.mailer.Calls {
		if call.Method == "SendTemplate" && call.Arguments.String(1) == templateName {
			n++
		}
	}
	return n
}

func (f *fixture) countAccounts(t *testing.T) int64 {
	var n int64
	require.NoError(t, f.db.Model(&accounts.Account{}).Count(&n).Error)
	return n
}

func TestLink(t *testing.T) {
	got := link("https://app.example.com/confirm?id=#Id&token=#Token", "abc-123", "f00d")
	assert.Equal(t, "https://app.example.com/confirm?id=abc-123&token=f00d", got)
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"username": "cannot be blank",
		"email":    "must be a valid email address",
	}}
	assert.Equal(t, "email: must be a valid email address; username: cannot be blank", err.Error())
}
