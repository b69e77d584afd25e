// Package handler contains the HTTP handlers of the API server.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"campus/internal/delivery/api/cookie"
	"campus/internal/delivery/api/middleware"
	"campus/internal/delivery/api/response"
	"campus/internal/domain/entity"
	domainerrors "campus/internal/domain/errors"
	"campus/internal/errors"
	"campus/internal/usecase"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	CredentialUC usecase.CredentialUsecase
	Cookies      *cookie.Manager
	Logger       *slog.Logger
}

// AuthHandler serves the credential endpoints under /api/v1/authentication.
type AuthHandler struct {
	credentialUC usecase.CredentialUsecase
	cookies      *cookie.Manager
	logger       *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler.
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		credentialUC: params.CredentialUC,
		cookies:      params.Cookies,
		logger:       params.Logger,
	}
}

// RegisterRequest represents the request body for registering an account
type RegisterRequest struct {
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	Phone     string `json:"phone" validate:"required,max=32"`
	Gender    string `json:"gender" validate:"required,oneof=male female"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	Country   string `json:"country" validate:"required"`
}

// LoginRequest represents the request body for a local login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// VerifyEmailRequest represents the request body for confirming an email address
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"verificationString" validate:"required"`
}

// ForgotPasswordRequest represents the request body for requesting a reset mail
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request body for redeeming a reset token
type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// UpdatePasswordRequest represents the request body for changing the password
type UpdatePasswordRequest struct {
	OldPassword     string `json:"oldPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,min=8,max=128"`
}

// SessionResponse is returned by every endpoint that establishes or rotates a session.
// The refresh token only travels in its cookie.
type SessionResponse struct {
	Message     string           `json:"msg"`
	User        entity.TokenUser `json:"user"`
	AccessToken string           `json:"accessToken"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	Message           string   `json:"msg"`
	UserID            int64    `json:"user_id"`
	Email             string   `json:"email"`
	Role              string   `json:"role"`
	VerificationToken string   `json:"verificationToken,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}

// MessageResponse carries a human readable outcome.
type MessageResponse struct {
	Message    string   `json:"msg"`
	ResetToken string   `json:"resetToken,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// bindAndValidate binds the body into req. Binding problems are answered directly.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, response.Invalid(c, "INVALID_INPUT", "Invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return false, errors.WithStack(err)
	}

	return true, nil
}

func sessionMeta(c echo.Context) usecase.SessionMeta {
	return usecase.SessionMeta{
		UserAgent: c.Request().UserAgent(),
		IP:        c.RealIP(),
	}
}

// Register handles POST /register.
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	output, err := h.credentialUC.Register(c.Request().Context(), &usecase.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		Gender:    req.Gender,
		Address:   req.Address,
		City:      req.City,
		State:     req.State,
		Country:   req.Country,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, RegisterResponse{
		Message:           "Success! Please check your email to verify your account",
		UserID:            output.User.ID,
		Email:             output.User.Email,
		Role:              output.User.Role.String(),
		VerificationToken: output.VerificationToken,
		Warnings:          output.Warnings,
	})
}

// VerifyEmail handles POST /verify-email.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req VerifyEmailRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	if err := h.credentialUC.VerifyEmail(c.Request().Context(), &usecase.VerifyEmailInput{
		Email: req.Email,
		Token: req.Token,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, MessageResponse{Message: "Congratulations! Your email has been verified."})
}

// Login handles POST /login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	output, err := h.credentialUC.Login(c.Request().Context(), &usecase.LoginInput{
		Email:       req.Email,
		Password:    req.Password,
		SessionMeta: sessionMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return respondWithSession(c, h.cookies, output, "Login successful")
}

// Refresh handles POST /refresh. The refresh token is read from its signed cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
	refreshToken, _ := h.cookies.RefreshToken(c)

	output, err := h.credentialUC.Refresh(c.Request().Context(), &usecase.RefreshInput{RefreshToken: refreshToken})
	if err != nil {
		return errors.WithStack(err)
	}

	return respondWithSession(c, h.cookies, output, "new access token created")
}

// Logout handles DELETE /logout. Cookies are cleared whatever the outcome.
func (h *AuthHandler) Logout(c echo.Context) error {
	refreshToken, _ := h.cookies.RefreshToken(c)
	h.cookies.Clear(c)

	if err := h.credentialUC.Logout(c.Request().Context(), &usecase.LogoutInput{RefreshToken: refreshToken}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, MessageResponse{Message: "Logged out"})
}

// Me handles GET /showme.
func (h *AuthHandler) Me(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrMissingToken)
	}

	me, err := h.credentialUC.Me(c.Request().Context(), principal)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, me)
}

// ForgotPassword handles POST /forgotpassword.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	output, err := h.credentialUC.ForgotPassword(c.Request().Context(), &usecase.ForgotPasswordInput{Email: req.Email})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, MessageResponse{
		Message:    "Please check your email for reset password link",
		ResetToken: output.ResetToken,
		Warnings:   output.Warnings,
	})
}

// ResetPassword handles PATCH /resetpassword.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	if err := h.credentialUC.ResetPassword(c.Request().Context(), &usecase.ResetPasswordInput{
		Email:    req.Email,
		Token:    req.Token,
		Password: req.Password,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, MessageResponse{Message: "Password reset successful"})
}

// UpdatePassword handles PATCH /updatepassword for the authenticated user.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrMissingToken)
	}

	var req UpdatePasswordRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	if err := h.credentialUC.UpdatePassword(c.Request().Context(), &usecase.UpdatePasswordInput{
		UserID:          principal.UserID,
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, MessageResponse{Message: "Password updated successfully"})
}

// respondWithSession sets both session cookies and returns the claims with the access token.
func respondWithSession(c echo.Context, cookies *cookie.Manager, output *usecase.SessionOutput, message string) error {
	if err := cookies.SetSession(c, output.AccessToken, output.RefreshToken); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, SessionResponse{
		Message:     message,
		User:        output.User,
		AccessToken: output.AccessToken,
	})
}
