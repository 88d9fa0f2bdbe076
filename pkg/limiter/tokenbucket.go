package limiter

import (
	"net/url"
	"sync"
	"time"

	"github.com/cdoc/crawldoc/pkg/urlutil"
)

// TokenBucketLimiter makes the admission decision the scheduler checks
// immediately before dispatching a fetch: Allow or Deny-with-retry-after,
// per registered domain. It is distinct from ConcurrentRateLimiter, which
// tracks crawl-delay and failure backoff; TokenBucketLimiter only answers
// "is a request allowed right now at this steady-state rate".
//
// Rates <= 0 unconditionally Allow. Malformed URLs Allow (fail open; they
// fail later for other reasons). Bucket capacity is one second of tokens,
// minimum 1, refilled continuously from elapsed wall time.
type TokenBucketLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastCheck  time.Time
}

// NewTokenBucketLimiter creates an empty limiter; buckets are created
// lazily per domain on first Check.
func NewTokenBucketLimiter() *TokenBucketLimiter {
	return &TokenBucketLimiter{
		buckets: make(map[string]*bucket),
	}
}

// Check reports whether a request to rawURL is allowed under rateRPS
// requests per second. When denied, retryAfter is the minimum wait before
// the next Check is likely to succeed.
func (t *TokenBucketLimiter) Check(rawURL string, rateRPS float64) (allow bool, retryAfter time.Duration) {
	if rateRPS <= 0 {
		return true, 0
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true, 0
	}
	domain := urlutil.RegisteredDomain(u.Host)

	t.mu.Lock()
	defer t.mu.Unlock()

	b, exists := t.buckets[domain]
	now := time.Now()
	capacity := rateRPS
	if capacity < 1 {
		capacity = 1
	}
	if !exists {
		b = &bucket{
			capacity:   capacity,
			tokens:     capacity,
			refillRate: rateRPS,
			lastCheck:  now,
		}
		t.buckets[domain] = b
	} else {
		elapsed := now.Sub(b.lastCheck).Seconds()
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.lastCheck = now
		b.capacity = capacity
		b.refillRate = rateRPS
	}

	if b.tokens >= 1 {
		b.tokens -= 1
		return true, 0
	}

	deficit := 1 - b.tokens
	wait := time.Duration(deficit/b.refillRate*float64(time.Second)) + time.Millisecond
	return false, wait
}
