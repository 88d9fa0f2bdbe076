// Package retryqueue holds crawl tokens rejected by an open circuit breaker
// until their domain recovers, instead of discarding them outright.
package retryqueue

import (
	"net/url"
	"sync"

	"github.com/cdoc/crawldoc/internal/frontier"
	"github.com/cdoc/crawldoc/pkg/breaker"
	"github.com/cdoc/crawldoc/pkg/urlutil"
)

// Queue groups pending tokens by domain so recovery checks only need to run
// once per domain rather than once per item.
type Queue struct {
	breaker *breaker.Breaker

	mu    sync.Mutex
	items map[string][]frontier.CrawlToken
}

// New links a retry queue to the circuit breaker whose state gates
// recovery.
func New(b *breaker.Breaker) *Queue {
	return &Queue{
		breaker: b,
		items:   make(map[string][]frontier.CrawlToken),
	}
}

// Add holds a token that was rejected because its domain's circuit is open.
// Tokens whose URL has no host are dropped silently; they could not have
// been admission candidates in the first place.
func (q *Queue) Add(token frontier.CrawlToken) {
	u := token.URL()
	domain := domainOf(u)
	if domain == "" {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items[domain] = append(q.items[domain], token)
}

// DrainReady returns every token belonging to a domain whose circuit now
// allows attempts, removing them from the queue. Checking readiness via the
// breaker also performs the Open->HalfOpen transition as a side effect,
// matching the breaker's own ShouldAttempt contract. Items are returned in
// FIFO order within a domain; there is no ordering guarantee across
// domains.
func (q *Queue) DrainReady() []frontier.CrawlToken {
	q.mu.Lock()
	defer q.mu.Unlock()

	var readyDomains []string
	for domain := range q.items {
		if q.breaker.ShouldAttempt(domain) {
			readyDomains = append(readyDomains, domain)
		}
	}

	var ready []frontier.CrawlToken
	for _, domain := range readyDomains {
		ready = append(ready, q.items[domain]...)
		delete(q.items, domain)
	}
	return ready
}

// Len reports the total number of tokens waiting across all domains.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	total := 0
	for _, items := range q.items {
		total += len(items)
	}
	return total
}

// IsEmpty reports whether the queue currently holds no tokens.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// DomainCounts reports the number of pending tokens per domain, for metrics
// and diagnostics.
func (q *Queue) DomainCounts() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	counts := make(map[string]int, len(q.items))
	for domain, items := range q.items {
		counts[domain] = len(items)
	}
	return counts
}

func domainOf(u url.URL) string {
	if u.Host == "" {
		return ""
	}
	return urlutil.RegisteredDomain(u.Host)
}
