package middleware

import (
	"log/slog"
	"math"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"campus/config"
	deliverycontext "campus/internal/delivery/context"
	domainerrors "campus/internal/domain/errors"
	"campus/internal/domain/service"
	"campus/internal/errors"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRetryAfter         = "Retry-After"
)

// RateLimitMiddleware throttles credential endpoints per client IP and route scope.
type RateLimitMiddleware struct {
	limiter  service.RateLimiter
	enabled  bool
	capacity int
	logger   *slog.Logger
}

// RateLimitMiddlewareParams holds dependencies for RateLimitMiddleware, injected by Fx.
type RateLimitMiddlewareParams struct {
	fx.In

	Limiter service.RateLimiter
	Config  *config.Config
	Logger  *slog.Logger
}

// NewRateLimitMiddleware is the constructor for RateLimitMiddleware.
func NewRateLimitMiddleware(params RateLimitMiddlewareParams) *RateLimitMiddleware {
	cfg := params.Config.RateLimit

	return &RateLimitMiddleware{
		limiter:  params.Limiter,
		enabled:  cfg != nil && cfg.Enabled,
		capacity: capacityOf(cfg),
		logger:   params.Logger,
	}
}

// Limit returns middleware sharing one bucket per client for every route of scope.
// Limiter failures let the request through.
func (m *RateLimitMiddleware) Limit(scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if !m.enabled {
			return next
		}

		return func(c echo.Context) error {
			ctx := c.Request().Context()
			decision, err := m.limiter.Allow(ctx, scope+":"+c.RealIP())
			if err != nil {
				deliverycontext.GetLoggerOrDefault(ctx, m.logger).Warn("Rate limiter unavailable, allowing request",
					slog.String("scope", scope),
					slog.Any("error", err),
				)

				return next(c)
			}

			header := c.Response().Header()
			header.Set(HeaderRateLimitLimit, strconv.Itoa(m.capacity))
			header.Set(HeaderRateLimitRemaining, strconv.Itoa(max(decision.Remaining, 0)))
			if !decision.Allowed {
				header.Set(HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(decision)))

				return errors.WithStack(domainerrors.ErrTooManyRequests)
			}

			return next(c)
		}
	}
}

func capacityOf(cfg *config.RateLimitConfig) int {
	if cfg == nil {
		return 0
	}

	return cfg.Capacity
}

// retryAfterSeconds rounds up so clients never retry early.
func retryAfterSeconds(decision service.RateLimitDecision) int {
	return max(int(math.Ceil(decision.RetryAfter.Seconds())), 1)
}
