package gate

import (
	"math"
	"sync"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultLockout     = 300 * time.Second
)

type attempt struct {
	count int
	last  time.Time
}

// RateLimiter counts failed attempts per identity inside a lockout window.
// State lives in process memory and is lost on restart.
type RateLimiter struct {
	mu          sync.Mutex
	attempts    map[string]*attempt
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewRateLimiter creates a limiter allowing maxAttempts failures per window
func NewRateLimiter(maxAttempts int, window time.Duration, now func() time.Time) *RateLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultLockout
	}
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		attempts:    make(map[string]*attempt),
		maxAttempts: maxAttempts,
		window:      window,
		now:         now,
	}
}

// Check reports whether identity may attempt now and, if not, how many
// seconds remain. An elapsed window is reset here rather than on a timer.
func (l *RateLimiter) Check(identity string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.attempts[identity]
	if !ok {
		return true, 0
	}

	now := l.now()
	elapsed := now.Sub(a.last)
	if elapsed > l.window {
		l.attempts[identity] = &attempt{last: now}
		return true, 0
	}

	if a.count >= l.maxAttempts {
		remaining := int(math.Ceil((l.window - elapsed).Seconds()))
		if remaining < 1 {
			remaining = 1
		}
		return false, remaining
	}
	return true, 0
}

// Record registers an attempt; a success clears the counter
func (l *RateLimiter) Record(identity string, success bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if success {
		l.attempts[identity] = &attempt{last: now}
		return
	}

	a, ok := l.attempts[identity]
	if !ok {
		a = &attempt{}
		l.attempts[identity] = a
	}
	a.count++
	a.last = now
}

// AttemptsLeft is the number of failures identity may still make
func (l *RateLimiter) AttemptsLeft(identity string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.attempts[identity]
	if !ok {
		return l.maxAttempts
	}
	return max(l.maxAttempts-a.count, 0)
}
