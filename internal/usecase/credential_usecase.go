// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"campus/internal/domain/entity"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a local account.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Phone     string
	Gender    string
	Address   string
	City      string
	State     string
	Country   string
}

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Email    string
	Password string
	SessionMeta
}

// SessionMeta describes the client a session record is issued to.
type SessionMeta struct {
	UserAgent string
	IP        string
}

// RefreshInput carries the refresh token read from the cookie.
type RefreshInput struct {
	RefreshToken string
}

// LogoutInput carries the refresh token read from the cookie, possibly empty.
type LogoutInput struct {
	RefreshToken string
}

// ForgotPasswordInput starts a password reset.
type ForgotPasswordInput struct {
	Email string
}

// ResetPasswordInput completes a password reset.
type ResetPasswordInput struct {
	Email    string
	Token    string
	Password string
}

// UpdatePasswordInput changes the password of an authenticated user.
type UpdatePasswordInput struct {
	UserID          int64
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// VerifyEmailInput confirms an email address with the token mailed at registration.
type VerifyEmailInput struct {
	Email string
	Token string
}

// --- Output DTOs ---

// RegisterOutput returns the newly created user. VerificationToken is only set when debug
// token exposure is enabled.
type RegisterOutput struct {
	User              *entity.User
	VerificationToken string
	Warnings          []string
}

// SessionOutput is the result of every flow that establishes or rotates a session.
// The delivery layer moves both tokens into cookies.
type SessionOutput struct {
	User         entity.TokenUser
	AccessToken  string
	RefreshToken string
}

// ForgotPasswordOutput reports the outcome of a reset request. ResetToken is only set when
// debug token exposure is enabled.
type ForgotPasswordOutput struct {
	ResetToken string
	Warnings   []string
}

// CredentialUsecase defines the local credential and session flows.
type CredentialUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error)
	Login(ctx context.Context, input *LoginInput) (*SessionOutput, error)
	Refresh(ctx context.Context, input *RefreshInput) (*SessionOutput, error)
	Logout(ctx context.Context, input *LogoutInput) error
	ForgotPassword(ctx context.Context, input *ForgotPasswordInput) (*ForgotPasswordOutput, error)
	ResetPassword(ctx context.Context, input *ResetPasswordInput) error
	UpdatePassword(ctx context.Context, input *UpdatePasswordInput) error
	VerifyEmail(ctx context.Context, input *VerifyEmailInput) error
	Me(ctx context.Context, principal entity.TokenUser) (*entity.TokenUser, error)
}
