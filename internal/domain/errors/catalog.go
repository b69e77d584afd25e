package errors

import "net/http"

// Credentials and accounts.
var (
	ErrInvalidCredentials = define(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
	ErrEmailNotVerified   = define(http.StatusUnauthorized, "EMAIL_NOT_VERIFIED", "Please verify your email")
	ErrUserBanned         = define(http.StatusForbidden, "USER_BANNED", "This account has been suspended")
	ErrPasswordMismatch   = define(http.StatusBadRequest, "PASSWORD_MISMATCH", "Passwords do not match")
	ErrDuplicateEmail     = define(http.StatusConflict, "DUPLICATE_EMAIL", "Email already exists")
	ErrDuplicatePhone     = define(http.StatusConflict, "DUPLICATE_PHONE", "Phone number already exists")
	ErrUserNotFound       = define(http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	ErrVerificationFailed = define(http.StatusBadRequest, "VERIFICATION_FAILED", "Verification failed")
	ErrPasswordHashFailed = define(http.StatusInternalServerError, "PASSWORD_HASH_FAILED", "Password processing failed")
)

// Tokens.
var (
	ErrMissingToken          = define(http.StatusUnauthorized, "MISSING_TOKEN", "Authentication token missing")
	ErrInvalidToken          = define(http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token")
	ErrInvalidOrExpiredToken = define(http.StatusUnauthorized, "INVALID_OR_EXPIRED_TOKEN", "Invalid or expired token")
	ErrInvalidResetToken     = define(http.StatusUnauthorized, "INVALID_RESET_TOKEN", "Invalid password reset token")
	ErrResetTokenExpired     = define(http.StatusUnauthorized, "RESET_TOKEN_EXPIRED", "Password reset token has expired")
	ErrTokenIssueFailed      = define(http.StatusInternalServerError, "TOKEN_ISSUE_FAILED", "Failed to issue token")
)

// Social login.
var (
	ErrUnsupportedProvider   = define(http.StatusBadRequest, "UNSUPPORTED_PROVIDER", "Unsupported identity provider")
	ErrOAuthFailed           = define(http.StatusUnauthorized, "OAUTH_FAILED", "Authentication with the provider failed")
	ErrOAuthStateInvalid     = define(http.StatusBadRequest, "OAUTH_STATE_INVALID", "Invalid or expired OAuth state")
	ErrAccountCreationFailed = define(http.StatusInternalServerError, "ACCOUNT_CREATION_FAILED", "Failed to create account")
)

// Access control and generic failures.
var (
	ErrForbidden         = define(http.StatusForbidden, "FORBIDDEN", "You are not allowed to access this resource")
	ErrTooManyRequests   = define(http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "Too many requests, please try again later")
	ErrValidationFailed  = define(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
	ErrTransactionFailed = define(http.StatusInternalServerError, "TRANSACTION_FAILED", "Transaction failed")
	ErrInternalError     = define(http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error, please try again later")
	ErrNotFound          = define(http.StatusNotFound, "NOT_FOUND", "Resource not found")
)
