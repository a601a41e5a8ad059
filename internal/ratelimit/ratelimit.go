// Package ratelimit caps how many automatic replies a single contact can
// receive per calendar day. Counters are keyed by contact and local date, so
// they reset at midnight in the clinic's timezone.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultDailyLimit is the cap applied when no explicit limit is configured.
const DefaultDailyLimit = 8

// Decision reports whether another automatic reply may be sent to a contact.
type Decision struct {
	Allowed bool
	Count   int
	Limit   int
}

// Limiter tracks automatic replies per contact per day. Evaluate checks the
// cap without consuming quota; Register consumes one unit after a reply was
// actually attempted, so rejected events never burn quota.
type Limiter interface {
	Evaluate(ctx context.Context, contact string) (Decision, error)
	Register(ctx context.Context, contact string) error
}

func dayKey(contact string, now time.Time) string {
	return fmt.Sprintf("autoreply:%s:%s", contact, now.Format("2006-01-02"))
}

// MemoryLimiter is an in-process Limiter suitable for single-instance
// deployments. Stale day buckets are dropped lazily on access.
type MemoryLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	limit  int
	loc    *time.Location
	now    func() time.Time
}

// NewMemoryLimiter creates a limiter with the given daily cap. A non-positive
// limit falls back to DefaultDailyLimit.
func NewMemoryLimiter(limit int, loc *time.Location) *MemoryLimiter {
	if limit <= 0 {
		limit = DefaultDailyLimit
	}
	if loc == nil {
		loc = time.UTC
	}
	return &MemoryLimiter{
		counts: make(map[string]int),
		limit:  limit,
		loc:    loc,
		now:    time.Now,
	}
}

// Evaluate reports whether the contact is still under today's cap.
func (l *MemoryLimiter) Evaluate(_ context.Context, contact string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := l.key(contact)
	l.dropStale(key)
	count := l.counts[key]
	return Decision{Allowed: count < l.limit, Count: count, Limit: l.limit}, nil
}

// Register consumes one unit of the contact's daily quota.
func (l *MemoryLimiter) Register(_ context.Context, contact string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := l.key(contact)
	l.dropStale(key)
	l.counts[key]++
	return nil
}

func (l *MemoryLimiter) key(contact string) string {
	return dayKey(contact, l.now().In(l.loc))
}

// dropStale removes buckets from previous days so the map does not grow
// unbounded. Called with the mutex held.
func (l *MemoryLimiter) dropStale(current string) {
	suffix := current[len(current)-10:]
	for k := range l.counts {
		if len(k) >= 10 && k[len(k)-10:] != suffix {
			delete(l.counts, k)
		}
	}
}
