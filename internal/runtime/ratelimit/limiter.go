// Package ratelimit tracks request counts per (caller, endpoint) pair over a
// rolling time window and rejects calls that exceed a configured ceiling.
//
// Records for stale windows are lazily reset on the next call rather than
// reaped; the record set is bounded by the number of active pairs, not by
// time. Shard locking keeps unrelated callers from contending on one mutex.
package ratelimit

import (
	"sync"
	"time"
)

const shardCount = 64

type record struct {
	windowStart time.Time
	count       int
}

type shard struct {
	mu      sync.Mutex
	records map[string]*record
}

// Limiter is a fixed-window rate limiter keyed by (caller, endpoint).
type Limiter struct {
	limitMu sync.RWMutex
	window  time.Duration
	max     int

	shards [shardCount]shard

	clock func() time.Time
}

// New creates a Limiter allowing max calls per window for each
// (caller, endpoint) pair. clock may be nil to use time.Now.
func New(window time.Duration, max int, clock func() time.Time) *Limiter {
	if window <= 0 {
		panic("ratelimit: window must be positive")
	}
	if max <= 0 {
		panic("ratelimit: max must be positive")
	}
	if clock == nil {
		clock = time.Now
	}
	l := &Limiter{window: window, max: max, clock: clock}
	for i := range l.shards {
		l.shards[i].records = make(map[string]*record)
	}
	return l
}

// SetLimits replaces the window and ceiling. Existing windows keep their
// start time; the new ceiling applies from the next call.
func (l *Limiter) SetLimits(window time.Duration, max int) {
	if window <= 0 || max <= 0 {
		return
	}
	l.limitMu.Lock()
	l.window = window
	l.max = max
	l.limitMu.Unlock()
}

// Check reports whether another call from caller to endpoint would fit under
// the ceiling for the current window, without consuming budget. The
// dispatcher checks early so over-limit calls are rejected before argument
// validation, but only calls that reach the callback consume budget via
// Allow.
func (l *Limiter) Check(caller, endpoint string) bool {
	l.limitMu.RLock()
	window := l.window
	max := l.max
	l.limitMu.RUnlock()

	key := caller + "\x00" + endpoint
	sh := &l.shards[fnv32a(key)%shardCount]
	now := l.clock()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if !ok || now.Sub(rec.windowStart) >= window {
		return true
	}
	return rec.count < max
}

// Allow consumes one unit of the pair's budget for the current window and
// reports whether the call fit under the ceiling. A denied call does not
// push the count past the ceiling, and it never resets the window early:
// spamming a denied endpoint does not buy a fresh window.
func (l *Limiter) Allow(caller, endpoint string) bool {
	l.limitMu.RLock()
	window := l.window
	max := l.max
	l.limitMu.RUnlock()

	key := caller + "\x00" + endpoint
	sh := &l.shards[fnv32a(key)%shardCount]
	now := l.clock()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if !ok {
		sh.records[key] = &record{windowStart: now, count: 1}
		return true
	}

	if now.Sub(rec.windowStart) >= window {
		rec.windowStart = now
		rec.count = 1
		return true
	}

	if rec.count >= max {
		return false
	}
	rec.count++
	return true
}

// Remaining returns how many calls the pair has left in its current window.
func (l *Limiter) Remaining(caller, endpoint string) int {
	l.limitMu.RLock()
	window := l.window
	max := l.max
	l.limitMu.RUnlock()

	key := caller + "\x00" + endpoint
	sh := &l.shards[fnv32a(key)%shardCount]
	now := l.clock()

	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[key]
	if !ok || now.Sub(rec.windowStart) >= window {
		return max
	}
	if rec.count >= max {
		return 0
	}
	return max - rec.count
}

// Reset forgets the window record for one (caller, endpoint) pair.
func (l *Limiter) Reset(caller, endpoint string) {
	key := caller + "\x00" + endpoint
	sh := &l.shards[fnv32a(key)%shardCount]

	sh.mu.Lock()
	delete(sh.records, key)
	sh.mu.Unlock()
}

// fnv32a hashes the key for shard selection.
func fnv32a(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}
