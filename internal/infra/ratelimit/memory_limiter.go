package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"campus/config"
	"campus/internal/domain/service"
)

const defaultIdleTTL = 10 * time.Minute

type keyLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// MemoryLimiter keeps one x/time/rate limiter per key in process memory. Idle keys are
// dropped by a background sweep.
type MemoryLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	limiters map[string]*keyLimiter

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewMemoryLimiter creates the limiter and starts its cleanup loop. Call Stop to end it.
func NewMemoryLimiter(cfg config.RateLimitConfig) *MemoryLimiter {
	l := newMemoryLimiter(cfg, time.Now)
	go l.cleanupLoop()

	return l
}

func newMemoryLimiter(cfg config.RateLimitConfig, now func() time.Time) *MemoryLimiter {
	// RefillTokens every RefillInterval, expressed as one token per interval/refill.
	every := cfg.RefillInterval / time.Duration(max(cfg.RefillTokens, 1))
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultIdleTTL
	}

	return &MemoryLimiter{
		limit:    rate.Every(every),
		burst:    cfg.Capacity,
		ttl:      ttl,
		now:      now,
		limiters: make(map[string]*keyLimiter),
		stopCh:   make(chan struct{}),
	}
}

// Allow takes one token from the bucket of key.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (service.RateLimitDecision, error) {
	now := l.now()
	limiter := l.getOrCreate(key, now)

	if limiter.AllowN(now, 1) {
		return service.RateLimitDecision{
			Allowed:   true,
			Remaining: int(limiter.TokensAt(now)),
		}, nil
	}

	reservation := limiter.ReserveN(now, 1)
	retryAfter := reservation.DelayFrom(now)
	reservation.CancelAt(now)

	return service.RateLimitDecision{
		Allowed:    false,
		Remaining:  0,
		RetryAfter: retryAfter,
	}, nil
}

// Stop ends the cleanup loop.
func (l *MemoryLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.limiters)
}

func (l *MemoryLimiter) getOrCreate(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if kl, ok := l.limiters[key]; ok {
		kl.lastAccess = now

		return kl.limiter
	}

	limiter := rate.NewLimiter(l.limit, l.burst)
	l.limiters[key] = &keyLimiter{limiter: limiter, lastAccess: now}

	return limiter
}

func (l *MemoryLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

func (l *MemoryLimiter) cleanup() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, kl := range l.limiters {
		if now.Sub(kl.lastAccess) > l.ttl {
			delete(l.limiters, key)
		}
	}
}
