// Package middleware contains the echo middleware of the API server.
package middleware

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"campus/internal/delivery/api/cookie"
	deliverycontext "campus/internal/delivery/context"
	"campus/internal/domain/entity"
	domainerrors "campus/internal/domain/errors"
	"campus/internal/domain/service"
	"campus/internal/errors"
)

// AuthMiddleware authenticates requests from their access token and enforces roles.
// It never touches the database: bans take effect when the access token expires.
type AuthMiddleware struct {
	issuer  service.TokenIssuer
	cookies *cookie.Manager
	logger  *slog.Logger
}

// AuthMiddlewareParams holds dependencies for AuthMiddleware, injected by Fx.
type AuthMiddlewareParams struct {
	fx.In

	Issuer  service.TokenIssuer
	Cookies *cookie.Manager
	Logger  *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(params AuthMiddlewareParams) *AuthMiddleware {
	return &AuthMiddleware{
		issuer:  params.Issuer,
		cookies: params.Cookies,
		logger:  params.Logger,
	}
}

// Authenticate takes the token from the Authorization header, falling back to the signed
// accessToken cookie, and stores its claims as the request principal.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
		if !ok {
			token, ok = m.cookies.AccessToken(c)
		}
		if !ok {
			return errors.WithStack(domainerrors.ErrMissingToken)
		}

		claims, err := m.issuer.ParseAccessToken(token)
		if err != nil {
			deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).
				Debug("Access token rejected", slog.Any("error", err))

			return errors.Wrap(domainerrors.ErrInvalidOrExpiredToken, err.Error())
		}

		ctx := deliverycontext.WithPrincipal(c.Request().Context(), claims.TokenUser)
		logger := deliverycontext.GetLoggerOrDefault(ctx, m.logger).With(slog.Int64("user_id", claims.TokenUser.UserID))
		ctx = deliverycontext.WithLogger(ctx, logger)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}

// RequireRole must run after Authenticate.
func (m *AuthMiddleware) RequireRole(roles ...entity.Role) echo.MiddlewareFunc {
	allowed := entity.Roles(roles)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := GetPrincipal(c)
			if !ok || !allowed.Contains(principal.Role) {
				deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).Warn("Role check failed",
					slog.Int64("userID", principal.UserID),
					slog.String("role", principal.Role.String()),
					slog.Any("required", allowed.ToStrings()),
				)

				return errors.WithStack(domainerrors.ErrForbidden)
			}

			return next(c)
		}
	}
}

// GetPrincipal returns the claims stored by Authenticate.
func GetPrincipal(c echo.Context) (entity.TokenUser, bool) {
	return deliverycontext.PrincipalFromContext(c.Request().Context())
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)

	return token, token != ""
}
