package summarizer

import (
	"context"
	"sync"
	"time"
)

// RateLimiter implements a token bucket for rate limiting API calls
type RateLimiter struct {
	tokens      int
	maxTokens   int
	refillRate  time.Duration
	lastRefill  time.Time
	pollEvery   time.Duration
	tokensMutex sync.Mutex
}

// NewRateLimiter creates a new rate limiter with the specified parameters
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
		pollEvery:  min(refillRate, time.Second),
	}
}

// PerMinute returns a limiter allowing n calls per minute, bursting up to n.
// A non-positive n disables limiting and returns nil.
func PerMinute(n int) *RateLimiter {
	if n <= 0 {
		return nil
	}
	return NewRateLimiter(n, time.Minute/time.Duration(n))
}

// GetToken tries to get a token from the bucket, refilling if necessary
func (r *RateLimiter) GetToken() bool {
	r.tokensMutex.Lock()
	defer r.tokensMutex.Unlock()

	// Refill tokens based on elapsed time
	now := time.Now()
	elapsed := now.Sub(r.lastRefill)
	tokensToAdd := int(elapsed / r.refillRate)

	if tokensToAdd > 0 {
		r.tokens = min(r.maxTokens, r.tokens+tokensToAdd)
		r.lastRefill = r.lastRefill.Add(time.Duration(tokensToAdd) * r.refillRate)
	}

	// Check if we have tokens available
	if r.tokens > 0 {
		r.tokens--
		return true
	}

	return false
}

// Wait blocks until a token is available or ctx is done.
// A nil limiter never blocks.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	for !r.GetToken() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollEvery):
		}
	}
	return nil
}
