package service

import (
	"context"
	"time"
)

// RateLimitDecision is the outcome of a single limiter check.
type RateLimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter throttles credential endpoints per client key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateLimitDecision, error)
}
