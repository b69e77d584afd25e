package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus/config"
	apimiddleware "campus/internal/delivery/api/middleware"
	"campus/internal/infra/ratelimit"
)

func configWithProxies(proxies ...string) *config.Config {
	cfg := &config.Config{}
	cfg.HTTP.TrustedProxies = proxies

	return cfg
}

func TestClientIPExtractor(t *testing.T) {
	tests := []struct {
		name       string
		proxies    []string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{name: "no proxies ignores forwarded header", remoteAddr: "198.51.100.9:4321", forwarded: "10.0.0.1", want: "198.51.100.9"},
		{name: "trusted proxy forwards client", proxies: []string{"203.0.113.0/24"}, remoteAddr: "203.0.113.5:4321", forwarded: "192.0.2.7", want: "192.0.2.7"},
		{name: "untrusted peer is the client", proxies: []string{"203.0.113.0/24"}, remoteAddr: "198.51.100.9:4321", forwarded: "192.0.2.7", want: "198.51.100.9"},
		{name: "private peer is not trusted implicitly", proxies: []string{"203.0.113.5"}, remoteAddr: "10.1.1.1:4321", forwarded: "192.0.2.7", want: "10.1.1.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			extract, err := clientIPExtractor(configWithProxies(tt.proxies...))
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set(echo.HeaderXForwardedFor, tt.forwarded)

			assert.Equal(t, tt.want, extract(req))
		})
	}
}

func TestClientIPExtractor_InvalidProxy(t *testing.T) {
	_, err := clientIPExtractor(configWithProxies("not-a-cidr"))

	assert.ErrorContains(t, err, "trustedProxies")
}

func TestForwardedForDoesNotResetRateLimit(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := configWithProxies()
	cfg.RateLimit = &config.RateLimitConfig{
		Enabled:        true,
		Backend:        "memory",
		Capacity:       1,
		RefillTokens:   1,
		RefillInterval: time.Hour,
	}

	limiter := ratelimit.NewMemoryLimiter(*cfg.RateLimit)
	t.Cleanup(limiter.Stop)

	extract, err := clientIPExtractor(cfg)
	require.NoError(t, err)

	e := echo.New()
	e.IPExtractor = extract
	e.HTTPErrorHandler = apimiddleware.NewErrorMiddleware(logger).HandleHTTPError
	rateLimit := apimiddleware.NewRateLimitMiddleware(apimiddleware.RateLimitMiddlewareParams{
		Limiter: limiter,
		Config:  cfg,
		Logger:  logger,
	})
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, rateLimit.Limit("login"))

	codes := make([]int, 0, 5)
	for i := range 5 {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "198.51.100.9:4321"
		req.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("10.0.0.%d", i))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{
		http.StatusNoContent,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
}
