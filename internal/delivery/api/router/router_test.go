package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus/config"
	"campus/internal/delivery/api/cookie"
	"campus/internal/delivery/api/middleware"
	"campus/internal/delivery/api/router/handler"
	"campus/internal/delivery/api/validator"
	"campus/internal/domain/entity"
	"campus/internal/domain/service"
	"campus/internal/errors"
	"campus/internal/infra/ratelimit"
)

type stubIssuer struct {
	valid map[string]entity.TokenUser
}

func (s *stubIssuer) IssueAccessToken(entity.TokenUser) (string, error) { return "", nil }
func (s *stubIssuer) IssueRefreshToken() (string, error)               { return "", nil }
func (s *stubIssuer) AccessTokenTTL() time.Duration                     { return time.Minute }
func (s *stubIssuer) RefreshTokenTTL() time.Duration                    { return time.Hour }

func (s *stubIssuer) ParseAccessToken(token string) (*service.AccessClaims, error) {
	user, ok := s.valid[token]
	if !ok {
		return nil, errors.New("token is expired")
	}

	return &service.AccessClaims{TokenUser: user}, nil
}

func newTestEcho(t *testing.T, metricsEnabled bool) *echo.Echo {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		SecretKey: config.SecretKeyConfig{Access: "access-secret", Cookie: "cookie-secret"},
		Auth:      &config.AuthConfig{AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour},
		RateLimit: &config.RateLimitConfig{
			Enabled:        true,
			Backend:        "memory",
			Capacity:       1,
			RefillTokens:   1,
			RefillInterval: time.Hour,
		},
		Metrics: &config.MetricsConfig{Enabled: metricsEnabled, Path: "/metrics"},
	}

	limiter := ratelimit.NewMemoryLimiter(*cfg.RateLimit)
	t.Cleanup(limiter.Stop)

	reg := prometheus.NewRegistry()
	sample := prometheus.NewCounter(prometheus.CounterOpts{Name: "router_test_sample_total", Help: "sample"})
	reg.MustRegister(sample)
	sample.Inc()

	cookies := cookie.NewManager(cfg)
	r := NewRouter(RouterParams{
		AuthHandler:  handler.NewAuthHandler(handler.AuthHandlerParams{Cookies: cookies, Logger: logger}),
		OAuthHandler: handler.NewOAuthHandler(handler.OAuthHandlerParams{Cookies: cookies, Logger: logger}),
		AdminHandler: handler.NewAdminHandler(handler.AdminHandlerParams{}),
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthMiddlewareParams{
			Issuer: &stubIssuer{valid: map[string]entity.TokenUser{
				"user-token": {UserID: 2, Role: entity.RoleUser},
			}},
			Cookies: cookies,
			Logger:  logger,
		}),
		RateLimitMiddleware: middleware.NewRateLimitMiddleware(middleware.RateLimitMiddlewareParams{
			Limiter: limiter,
			Config:  cfg,
			Logger:  logger,
		}),
		Gatherer: reg,
		Config:   cfg,
	})

	e := echo.New()
	e.Validator = validator.New()
	e.HTTPErrorHandler = middleware.NewErrorMiddleware(logger).HandleHTTPError
	r.RegisterRoutes(e)

	return e
}

func serve(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	return rec
}

func TestRegisterRoutes_Table(t *testing.T) {
	e := newTestEcho(t, true)

	registered := make(map[string]bool)
	for _, route := range e.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"GET /health",
		"GET /metrics",
		"POST /api/v1/authentication/register",
		"POST /api/v1/authentication/verify-email",
		"POST /api/v1/authentication/login",
		"POST /api/v1/authentication/refresh",
		"DELETE /api/v1/authentication/logout",
		"GET /api/v1/authentication/showme",
		"POST /api/v1/authentication/forgotpassword",
		"PATCH /api/v1/authentication/resetpassword",
		"PATCH /api/v1/authentication/updatepassword",
		"GET /api/v1/authentication/oauth/:provider",
		"GET /api/v1/authentication/oauth/:provider/callback",
		"PATCH /api/v1/admin/users/:id/blacklist",
	} {
		assert.True(t, registered[want], want)
	}
}

func TestRegisterRoutes_CredentialEndpointsAreRateLimited(t *testing.T) {
	e := newTestEcho(t, false)

	first := serve(e, http.MethodPost, "/api/v1/authentication/login", "")
	second := serve(e, http.MethodPost, "/api/v1/authentication/login", "")

	assert.Equal(t, http.StatusBadRequest, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get(middleware.HeaderRetryAfter))

	// Scopes do not share buckets.
	assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPost, "/api/v1/authentication/register", "").Code)

	// verify-email is not limited.
	for range 3 {
		assert.Equal(t, http.StatusBadRequest, serve(e, http.MethodPost, "/api/v1/authentication/verify-email", "").Code)
	}
}

func TestRegisterRoutes_AdminGuard(t *testing.T) {
	e := newTestEcho(t, false)

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodPatch, "/api/v1/admin/users/1/blacklist", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodPatch, "/api/v1/admin/users/1/blacklist", "user-token").Code)
}

func TestRegisterRoutes_Metrics(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		rec := serve(newTestEcho(t, true), http.MethodGet, "/metrics", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "router_test_sample_total 1")
	})

	t.Run("disabled", func(t *testing.T) {
		rec := serve(newTestEcho(t, false), http.MethodGet, "/metrics", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
