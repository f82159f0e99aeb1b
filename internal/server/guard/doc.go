// Package guard holds the per-address request guards: a sliding-window rate
// limiter applied to every call and a failure counter with lockout applied
// to external login.
//
// Both guards keep their per-address state in a bounded LRU cache
// (go-pkgz/expirable-cache). Idle entries expire once they can no longer
// influence a decision, and the least recently touched address is dropped
// when the cache is full. Each guard serializes its compound
// read-evict-append steps with its own mutex.
package guard
