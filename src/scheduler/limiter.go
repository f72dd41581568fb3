package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// OwnerLimiter throttles work per owner: at most n events per window, queued rather
// than dropped. Events are spaced window/n apart, so no rolling window ever holds
// more than n of them.
type OwnerLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*ownerEntry
	limit     rate.Limit
	window    time.Duration
	lastPrune time.Time
	now       func() time.Time
}

type ownerEntry struct {
	lim      *rate.Limiter
	lastUsed time.Time
}

func NewOwnerLimiter(n int, window time.Duration) *OwnerLimiter {
	if n <= 0 {
		n = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &OwnerLimiter{
		limiters: make(map[string]*ownerEntry),
		limit:    rate.Every(window / time.Duration(n)),
		window:   window,
		now:      time.Now,
	}
}

// reserve books the owner's next slot and returns how long to wait for it.
func (l *OwnerLimiter) reserve(owner string) (*rate.Reservation, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastPrune) >= l.window {
		l.prune(now)
	}
	e, ok := l.limiters[owner]
	if !ok {
		e = &ownerEntry{lim: rate.NewLimiter(l.limit, 1)}
		l.limiters[owner] = e
	}
	r := e.lim.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	e.lastUsed = now.Add(delay)
	return r, delay
}

// prune drops owners whose last booked slot is a full window old. Their bucket has
// refilled by then, so a fresh limiter behaves the same.
func (l *OwnerLimiter) prune(now time.Time) {
	for owner, e := range l.limiters {
		if now.Sub(e.lastUsed) >= l.window {
			delete(l.limiters, owner)
		}
	}
	l.lastPrune = now
}

func (l *OwnerLimiter) owners() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// Wait blocks until owner may run one more event or ctx is done. A wait that would
// outlast the ctx deadline fails at once.
func (l *OwnerLimiter) Wait(ctx context.Context, owner string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, delay := l.reserve(owner)
	if delay <= 0 {
		return nil
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < delay {
		r.Cancel()
		return fmt.Errorf("owner %s: wait of %s exceeds context deadline", owner, delay)
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	}
}
