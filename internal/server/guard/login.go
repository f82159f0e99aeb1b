package guard

import (
	"errors"
	"sync"
	"time"

	cache "github.com/go-pkgz/expirable-cache"
	"github.com/nakgoalgo/nakgo/internal/common"
)

const (
	// FailureWindow is how long a failed login counts towards the lockout.
	FailureWindow = 300 * time.Second

	DefaultMaxFailures     = 8
	DefaultLockoutDuration = 10 * time.Minute
)

type loginRecord struct {
	failures    []time.Time
	lockedUntil time.Time
}

// LoginGuard locks an address out of external login after too many recent
// failures.
type LoginGuard struct {
	mu          sync.Mutex
	maxFailures int
	lockout     time.Duration
	records     cache.Cache
}

// NewLoginGuard builds a guard. maxAddresses <= 0 uses DefaultMaxAddresses.
func NewLoginGuard(maxFailures int, lockout time.Duration, maxAddresses int) (*LoginGuard, error) {
	if maxFailures <= 0 {
		return nil, errors.New("max login failures must be positive")
	}
	if lockout <= 0 {
		return nil, errors.New("lockout duration must be positive")
	}
	c, err := newAddressCache(maxAddresses, max(FailureWindow, lockout))
	if err != nil {
		return nil, err
	}
	return &LoginGuard{maxFailures: maxFailures, lockout: lockout, records: c}, nil
}

func (g *LoginGuard) record(address string) *loginRecord {
	if v, ok := g.records.Get(address); ok {
		return v.(*loginRecord)
	}
	return &loginRecord{}
}

// AssertAllowed returns common.ErrTooManyFailures while address is locked
// out. An expired lockout is cleared.
func (g *LoginGuard) AssertAllowed(address string, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec := g.record(address)
	if rec.lockedUntil.IsZero() {
		return nil
	}
	if now.Before(rec.lockedUntil) {
		return common.ErrTooManyFailures
	}

	rec.lockedUntil = time.Time{}
	if len(rec.failures) == 0 {
		g.records.Invalidate(address)
	} else {
		g.records.Set(address, rec, 0)
	}
	return nil
}

// RecordFailure counts a failed login. Reaching the threshold starts a
// lockout and clears the failure history.
func (g *LoginGuard) RecordFailure(address string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rec := g.record(address)
	rec.failures = append(evictUpTo(rec.failures, now.Add(-FailureWindow)), now)

	if len(rec.failures) >= g.maxFailures {
		rec.lockedUntil = now.Add(g.lockout)
		rec.failures = nil
	}
	g.records.Set(address, rec, 0)
}

// RecordSuccess forgets all failures and any lockout for address.
func (g *LoginGuard) RecordSuccess(address string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.records.Invalidate(address)
}

// Tracked returns the number of addresses currently held.
func (g *LoginGuard) Tracked() int {
	return g.records.Len()
}
