package service

import (
	"time"

	"campus/internal/domain/entity"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims defines the claims carried by access tokens.
type AccessClaims struct {
	TokenUser entity.TokenUser `json:"tokenUser"`
	jwt.RegisteredClaims
}

// TokenIssuer mints signed access tokens and opaque refresh token values.
type TokenIssuer interface {
	// IssueAccessToken signs a short-lived token for the given claims projection.
	IssueAccessToken(user entity.TokenUser) (string, error)

	// ParseAccessToken verifies signature and expiry and returns the claims.
	ParseAccessToken(token string) (*AccessClaims, error)

	// IssueRefreshToken returns a fresh random hex value. It carries no meaning by itself.
	IssueRefreshToken() (string, error)

	// AccessTokenTTL returns the configured lifetime of access tokens.
	AccessTokenTTL() time.Duration

	// RefreshTokenTTL returns the configured lifetime of the refresh token cookie.
	RefreshTokenTTL() time.Duration
}
