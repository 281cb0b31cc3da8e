package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/tech-arch1tect/gatekeeper/database"
	"github.com/tech-arch1tect/gatekeeper/middleware/bearer"
	"github.com/tech-arch1tect/gatekeeper/openapi"
	"github.com/tech-arch1tect/gatekeeper/services/credentials"
	"github.com/tech-arch1tect/gatekeeper/services/lifecycle"
	"github.com/tech-arch1tect/gatekeeper/services/logging"
	"github.com/tech-arch1tect/gatekeeper/services/onetimetoken"
	"github.com/tech-arch1tect/gatekeeper/services/sessiontoken"
	"go.uber.org/zap"
)

const BasePath = "/api/accounts"

type Lifecycle interface {
	Register(ctx context.Context, in lifecycle.RegisterInput) (*lifecycle.RegisterResult, error)
	ConfirmEmail(ctx context.Context, accountID, token string) error
	RequestEmailConfirmation(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in lifecycle.ResetPasswordInput) error
	ChangePassword(ctx context.Context, in lifecycle.ChangePasswordInput) error
	Login(ctx context.Context, email, plain, userAgent string) (*lifecycle.LoginResult, error)
	Logout(ctx context.Context, accountID string) error
	Profile(ctx context.Context, accountID string) (*lifecycle.Profile, error)
}

type ConfirmEmailRequest struct {
	AccountID string `json:"id"`
	Token     string `json:"token"`
}

type EmailRequest struct {
	Email string `json:"email" example:"alice@example.com"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ValidationResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

type AccountHandler struct {
	svc    Lifecycle
	logger *logging.Service
}

func NewAccountHandler(svc Lifecycle, logger *logging.Service) *AccountHandler {
	return &AccountHandler{svc: svc, logger: logger}
}

func (h *AccountHandler) Register(c echo.Context) error {
	var in lifecycle.RegisterInput
	if err := c.Bind(&in); err != nil {
		return badRequest()
	}

	result, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		return h.failure(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *AccountHandler) ConfirmEmail(c echo.Context) error {
	var req ConfirmEmailRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	if err := h.svc.ConfirmEmail(c.Request().Context(), req.AccountID, req.Token); err != nil {
		return h.failure(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "email confirmed"})
}

func (h *AccountHandler) ResendConfirmation(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	if err := h.svc.RequestEmailConfirmation(c.Request().Context(), req.Email); err != nil {
		return h.failure(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "if the account exists and is unconfirmed, a confirmation email has been sent"})
}

func (h *AccountHandler) ForgotPassword(c echo.Context) error {
	var req EmailRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	if err := h.svc.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return h.failure(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "if the account exists, a password reset email has been sent"})
}

func (h *AccountHandler) ResetPassword(c echo.Context) error {
	var in lifecycle.ResetPasswordInput
	if err := c.Bind(&in); err != nil {
		return badRequest()
	}

	if err := h.svc.ResetPassword(c.Request().Context(), in); err != nil {
		return h.failure(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "password has been reset"})
}

func (h *AccountHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest()
	}

	result, err := h.svc.Login(c.Request().Context(), req.Email, req.Password, c.Request().UserAgent())
	if err != nil {
		return h.failure(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *AccountHandler) ChangePassword(c echo.Context) error {
	var in lifecycle.ChangePasswordInput
	if err := c.Bind(&in); err != nil {
		return badRequest()
	}
	in.AccountID = bearer.GetAccountID(c)

	if err := h.svc.ChangePassword(c.Request().Context(), in); err != nil {
		return h.failure(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "password changed"})
}

func (h *AccountHandler) Logout(c echo.Context) error {
	if err := h.svc.Logout(c.Request().Context(), bearer.GetAccountID(c)); err != nil {
		return h.failure(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

func (h *AccountHandler) Me(c echo.Context) error {
	profile, err := h.svc.Profile(c.Request().Context(), bearer.GetAccountID(c))
	if err != nil {
		return h.failure(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// Routes mounts the account endpoints under BasePath and documents them.
// limit guards the unauthenticated credential endpoints, sendLimit the
// unauthenticated endpoints that send mail, and auth guards the rest.
func (h *AccountHandler) Routes(e *echo.Echo, doc *openapi.Document, auth, limit, sendLimit echo.MiddlewareFunc) {
	g := e.Group(BasePath)

	route := func(method, path string, handler echo.HandlerFunc, mw echo.MiddlewareFunc) *openapi.Operation {
		g.Add(method, path, handler, mw)
		return doc.Document(method, BasePath+path).Tags("accounts")
	}

	route(http.MethodPost, "/register", h.Register, limit).
		Summary("Register an account").
		Body(lifecycle.RegisterInput{}, "new account details").
		Response(http.StatusOK, lifecycle.RegisterResult{}, "account created").
		Response(http.StatusBadRequest, ValidationResponse{}, "invalid input or email already registered").
		Build()

	route(http.MethodPost, "/confirm/email", h.ConfirmEmail, limit).
		Summary("Confirm an email address").
		Body(ConfirmEmailRequest{}, "account id and confirmation token").
		Response(http.StatusOK, MessageResponse{}, "confirmed").
		Response(http.StatusBadRequest, MessageResponse{}, "unknown account or invalid token").
		Build()

	route(http.MethodPost, "/confirm/resend", h.ResendConfirmation, sendLimit).
		Summary("Resend the confirmation email").
		Body(EmailRequest{}, "account email").
		Response(http.StatusOK, MessageResponse{}, "accepted").
		Build()

	route(http.MethodPost, "/forgot", h.ForgotPassword, sendLimit).
		Summary("Request a password reset email").
		Body(EmailRequest{}, "account email").
		Response(http.StatusOK, MessageResponse{}, "accepted").
		Build()

	route(http.MethodPost, "/reset", h.ResetPassword, limit).
		Summary("Reset a password with a reset token").
		Body(lifecycle.ResetPasswordInput{}, "reset token and new password").
		Response(http.StatusOK, MessageResponse{}, "password reset").
		Response(http.StatusBadRequest, ValidationResponse{}, "invalid token or password").
		Build()

	route(http.MethodPost, "/login", h.Login, limit).
		Summary("Log in").
		Body(LoginRequest{}, "credentials").
		Response(http.StatusOK, lifecycle.LoginResult{}, "session token").
		Response(http.StatusBadRequest, MessageResponse{}, "invalid credentials or unconfirmed email").
		Build()

	route(http.MethodPost, "/change", h.ChangePassword, auth).
		Summary("Change the current password").
		Security("bearerAuth").
		Body(lifecycle.ChangePasswordInput{}, "current and new password").
		Response(http.StatusOK, MessageResponse{}, "password changed").
		Response(http.StatusBadRequest, ValidationResponse{}, "invalid password").
		Response(http.StatusUnauthorized, MessageResponse{}, "missing or invalid token").
		Build()

	route(http.MethodPost, "/logout", h.Logout, auth).
		Summary("Revoke the current session token").
		Security("bearerAuth").
		Response(http.StatusOK, MessageResponse{}, "logged out").
		Response(http.StatusUnauthorized, MessageResponse{}, "missing or invalid token").
		Build()

	route(http.MethodGet, "/me", h.Me, auth).
		Summary("Current account").
		Security("bearerAuth").
		Response(http.StatusOK, lifecycle.Profile{}, "account and roles").
		Response(http.StatusUnauthorized, MessageResponse{}, "missing or invalid token").
		Build()
}

var clientErrors = []error{
	credentials.ErrInvalidCredentials,
	credentials.ErrEmailNotConfirmed,
	onetimetoken.ErrTokenExpired,
	onetimetoken.ErrTokenMismatch,
	lifecycle.ErrUnknownAccount,
	lifecycle.ErrPasswordMismatch,
	lifecycle.ErrInvalidPassword,
	lifecycle.ErrAccountCreation,
}

// failure maps a lifecycle error to its HTTP response. Anything not known
// to be the caller's fault is logged and reported as a 500 without detail.
func (h *AccountHandler) failure(c echo.Context, err error) error {
	var verr *lifecycle.ValidationError
	if errors.As(err, &verr) {
		return echo.NewHTTPError(http.StatusBadRequest, ValidationResponse{
			Message: "validation failed",
			Errors:  verr.Fields,
		})
	}

	for _, known := range clientErrors {
		if errors.Is(err, known) {
			return echo.NewHTTPError(http.StatusBadRequest, known.Error())
		}
	}

	if h.logger != nil {
		h.logger.Error("account request failed",
			zap.Error(err),
			zap.String("path", c.Path()),
			zap.Bool("persistence_unavailable", errors.Is(err, database.ErrUnavailable)),
			zap.Bool("issuance_failed", errors.Is(err, sessiontoken.ErrIssuanceFailed)))
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}

func badRequest() error {
	return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
}
