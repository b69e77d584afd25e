package ratelimit

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"campus/config"
	"campus/internal/domain/service"
)

const backendRedis = "redis"

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
	Redis  *redis.Client `optional:"true"`
}

// New selects the limiter backend from rateLimit.backend. A redis backend without a redis
// client falls back to memory.
func New(params Params) service.RateLimiter {
	cfg := *params.Config.RateLimit

	if cfg.Backend == backendRedis {
		if params.Redis != nil {
			params.Logger.Info("Rate limiter using redis backend")

			return NewRedisLimiter(params.Redis, cfg)
		}
		params.Logger.Warn("Rate limiter backend is redis but no redis client is configured, using memory")
	}

	limiter := NewMemoryLimiter(cfg)
	params.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			limiter.Stop()

			return nil
		},
	})

	return limiter
}
