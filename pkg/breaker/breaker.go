// Package breaker implements a per-domain circuit breaker that rejects
// requests to a failing domain until it has had time to recover.
package breaker

import (
	"net/url"
	"sync"
	"time"

	"github.com/cdoc/crawldoc/pkg/urlutil"
)

// State is one of the three circuit states for a single domain.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker tracks circuit state per registered domain. Zero value is not
// usable; construct with New.
type Breaker struct {
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration

	mu      sync.Mutex
	domains map[string]*domainState
}

type domainState struct {
	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	consecutiveSuccess  int
	openedAt            time.Time
}

// New constructs a Breaker. failureThreshold consecutive failures trip
// Closed->Open. successThreshold consecutive successes in HalfOpen close
// the circuit. openTimeout is how long Open is held before the next
// ShouldAttempt call transitions to HalfOpen.
func New(failureThreshold, successThreshold int, openTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if successThreshold <= 0 {
		successThreshold = 2
	}
	return &Breaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		openTimeout:      openTimeout,
		domains:          make(map[string]*domainState),
	}
}

func (b *Breaker) stateFor(domain string) *domainState {
	b.mu.Lock()
	defer b.mu.Unlock()
	ds, ok := b.domains[domain]
	if !ok {
		ds = &domainState{state: Closed}
		b.domains[domain] = ds
	}
	return ds
}

// ShouldAttempt reports whether a request to domain may proceed: true if
// Closed or HalfOpen. As a side effect, if the domain is Open and
// openTimeout has elapsed since it opened, the state transitions to
// HalfOpen before the decision is made.
func (b *Breaker) ShouldAttempt(domain string) bool {
	domain = urlutil.RegisteredDomain(domain)
	ds := b.stateFor(domain)
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.state == Open && time.Since(ds.openedAt) >= b.openTimeout {
		ds.state = HalfOpen
		ds.consecutiveSuccess = 0
	}
	return ds.state != Open
}

// ShouldAttemptURL is a convenience wrapper that extracts the registered
// domain from a URL before delegating to ShouldAttempt. Malformed URLs are
// treated as always-attemptable (fail open).
func (b *Breaker) ShouldAttemptURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true
	}
	return b.ShouldAttempt(u.Host)
}

// RecordSuccess registers a successful request for domain.
func (b *Breaker) RecordSuccess(domain string) {
	domain = urlutil.RegisteredDomain(domain)
	ds := b.stateFor(domain)
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.consecutiveFailures = 0
	switch ds.state {
	case HalfOpen:
		ds.consecutiveSuccess++
		if ds.consecutiveSuccess >= b.successThreshold {
			ds.state = Closed
			ds.consecutiveSuccess = 0
		}
	case Open:
		// a success while nominally Open should not occur via ShouldAttempt's
		// gate, but if observed, treat it like a HalfOpen probe succeeding.
		ds.state = HalfOpen
		ds.consecutiveSuccess = 1
	}
}

// RecordFailure registers a failed request for domain.
func (b *Breaker) RecordFailure(domain string) {
	domain = urlutil.RegisteredDomain(domain)
	ds := b.stateFor(domain)
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.consecutiveSuccess = 0
	switch ds.state {
	case HalfOpen:
		ds.state = Open
		ds.openedAt = time.Now()
	case Closed:
		ds.consecutiveFailures++
		if ds.consecutiveFailures >= b.failureThreshold {
			ds.state = Open
			ds.openedAt = time.Now()
		}
	}
}

// StateOf returns the current state for a domain, for diagnostics and
// tests; it does not perform the Open->HalfOpen timeout transition that
// ShouldAttempt does.
func (b *Breaker) StateOf(domain string) State {
	domain = urlutil.RegisteredDomain(domain)
	ds := b.stateFor(domain)
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.state
}
