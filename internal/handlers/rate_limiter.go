package handlers

import (
	"strings"
	"sync"
	"time"
)

// rateLimiter gates repeat submissions per caller key.
type rateLimiter interface {
	Allow(key string) bool
}

// fixedWindowLimiter counts hits per key within a fixed window and denies
// further hits once the limit is reached. Lapsed buckets are pruned
// whenever a fresh window opens.
type fixedWindowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	buckets map[string]windowBucket
}

type windowBucket struct {
	hits    int
	expires time.Time
}

func newFixedWindowLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &fixedWindowLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		buckets: make(map[string]windowBucket),
	}
}

func (l *fixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	if key = strings.TrimSpace(key); key == "" {
		key = "anonymous"
	}

	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok || now.After(bucket.expires) {
		l.buckets[key] = windowBucket{hits: 1, expires: now.Add(l.window)}
		l.dropLapsedLocked(now)
		return true
	}
	if bucket.hits >= l.limit {
		return false
	}
	bucket.hits++
	l.buckets[key] = bucket
	return true
}

func (l *fixedWindowLimiter) dropLapsedLocked(now time.Time) {
	for key, bucket := range l.buckets {
		if now.After(bucket.expires) {
			delete(l.buckets, key)
		}
	}
}
