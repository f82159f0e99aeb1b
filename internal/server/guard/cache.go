package guard

import (
	"fmt"
	"time"

	cache "github.com/go-pkgz/expirable-cache"
)

// DefaultMaxAddresses bounds the address cache when no size is configured.
const DefaultMaxAddresses = 10000

func newAddressCache(maxAddresses int, idle time.Duration) (cache.Cache, error) {
	if maxAddresses <= 0 {
		maxAddresses = DefaultMaxAddresses
	}
	c, err := cache.NewCache(cache.MaxKeys(maxAddresses), cache.LRU(), cache.TTL(idle))
	if err != nil {
		return nil, fmt.Errorf("address cache: %w", err)
	}
	return c, nil
}

// evictUpTo drops the leading timestamps that are not after cutoff.
func evictUpTo(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	return ts[i:]
}
