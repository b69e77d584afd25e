package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"campus/config"
	"campus/internal/domain/entity"
	"campus/internal/domain/service"
	"campus/internal/errors"
	"campus/internal/util"
)

// jwtIssuer is a concrete implementation of the TokenIssuer interface using HS256 JWTs
// for access tokens and random hex strings for refresh tokens.
type jwtIssuer struct {
	accessSecret      []byte
	accessTTL         time.Duration
	refreshTTL        time.Duration
	refreshTokenBytes int
	now               func() time.Time
}

// NewJWTIssuer is the constructor for jwtIssuer.
func NewJWTIssuer(cfg *config.Config) (service.TokenIssuer, error) {
	if cfg.SecretKey.Access == "" {
		return nil, errors.New("access token secret must be provided")
	}

	refreshTokenBytes := cfg.Auth.RefreshTokenBytes
	if refreshTokenBytes < config.MinRefreshTokenBytes {
		refreshTokenBytes = config.MinRefreshTokenBytes
	}

	return &jwtIssuer{
		accessSecret:      []byte(cfg.SecretKey.Access),
		accessTTL:         cfg.Auth.AccessTokenTTL,
		refreshTTL:        cfg.Auth.RefreshTokenTTL,
		refreshTokenBytes: refreshTokenBytes,
		now:               time.Now,
	}, nil
}

// IssueAccessToken signs the claims projection with the access secret.
func (s *jwtIssuer) IssueAccessToken(user entity.TokenUser) (string, error) {
	now := s.now()
	claims := service.AccessClaims{
		TokenUser: user,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(s.accessSecret)
}

// ParseAccessToken checks the signature, the signing method and the expiry.
func (s *jwtIssuer) ParseAccessToken(tokenString string) (*service.AccessClaims, error) {
	claims := &service.AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		// Ensure the signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}

		return s.accessSecret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse access token")
	}
	if !token.Valid {
		return nil, errors.New("access token is not valid")
	}

	return claims, nil
}

// IssueRefreshToken returns refreshTokenBytes random bytes, hex encoded.
func (s *jwtIssuer) IssueRefreshToken() (string, error) {
	return util.RandomHex(s.refreshTokenBytes)
}

// AccessTokenTTL returns the configured duration for access tokens.
func (s *jwtIssuer) AccessTokenTTL() time.Duration {
	return s.accessTTL
}

// RefreshTokenTTL returns the configured duration for refresh tokens.
func (s *jwtIssuer) RefreshTokenTTL() time.Duration {
	return s.refreshTTL
}
