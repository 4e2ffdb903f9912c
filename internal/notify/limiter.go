package notify

import (
	"context"
	"sync"
	"time"
)

// intervalLimiter enforces a minimum gap between consecutive sends, enough
// to stay under Telegram's flood limits at this system's alert volume.
type intervalLimiter struct {
	mu       sync.Mutex
	gap      time.Duration
	lastSend time.Time
}

func newIntervalLimiter(gap time.Duration) *intervalLimiter {
	return &intervalLimiter{gap: gap}
}

// wait blocks until the gap since the previous send has elapsed or the
// context is cancelled. The slot is claimed before sleeping so concurrent
// callers queue behind each other instead of stampeding.
func (l *intervalLimiter) wait(ctx context.Context) error {
	if l.gap <= 0 {
		return nil
	}

	l.mu.Lock()
	now := time.Now()
	next := l.lastSend.Add(l.gap)
	if next.Before(now) {
		next = now
	}
	l.lastSend = next
	l.mu.Unlock()

	delay := time.Until(next)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
