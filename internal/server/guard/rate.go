package guard

import (
	"errors"
	"math"
	"sync"
	"time"

	cache "github.com/go-pkgz/expirable-cache"
)

const (
	DefaultRateWindow = 60 * time.Second
	DefaultRateLimit  = 120
)

// Decision is the outcome of RateGuard.Admit. RetryAfter is set only when
// the request is denied and is a whole number of seconds, at least one.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateGuard admits at most limit requests per address in any trailing
// window.
type RateGuard struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	history cache.Cache
}

// NewRateGuard builds a guard. maxAddresses <= 0 uses DefaultMaxAddresses.
func NewRateGuard(window time.Duration, limit, maxAddresses int) (*RateGuard, error) {
	if window <= 0 {
		return nil, errors.New("rate window must be positive")
	}
	if limit <= 0 {
		return nil, errors.New("rate limit must be positive")
	}
	c, err := newAddressCache(maxAddresses, window)
	if err != nil {
		return nil, err
	}
	return &RateGuard{window: window, limit: limit, history: c}, nil
}

// Admit records a request from address at now, or denies it when the
// address already used its limit inside the window.
func (g *RateGuard) Admit(address string, now time.Time) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	var ts []time.Time
	if v, ok := g.history.Get(address); ok {
		ts = v.([]time.Time)
	}
	ts = evictUpTo(ts, now.Add(-g.window))

	if len(ts) >= g.limit {
		g.history.Set(address, ts, 0)
		return Decision{RetryAfter: retryAfter(g.window - now.Sub(ts[0]))}
	}

	g.history.Set(address, append(ts, now), 0)
	return Decision{Allowed: true}
}

// Tracked returns the number of addresses currently held.
func (g *RateGuard) Tracked() int {
	return g.history.Len()
}

func retryAfter(remaining time.Duration) time.Duration {
	secs := math.Ceil(remaining.Seconds())
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}
