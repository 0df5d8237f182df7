package auth

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// ErrRateLimited is the cause of every blocked login attempt.
var ErrRateLimited = errors.New("too many failed login attempts")

// RateLimitError tells how long the identifier stays blocked.
type RateLimitError struct {
	Remaining time.Duration
}

func (e *RateLimitError) Error() string {
	mins := int(math.Ceil(e.Remaining.Minutes()))
	return fmt.Sprintf("Too many failed login attempts. Please try again in %d minutes.", mins)
}

func (e *RateLimitError) Cause() error { return ErrRateLimited }

type attempts struct {
	count int
	start time.Time
}

// RateLimiter counts login attempts per identifier in fixed windows.
type RateLimiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	attempts map[string]*attempts
	swept    time.Time
	now      func() time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:      max,
		window:   window,
		attempts: make(map[string]*attempts),
		now:      time.Now,
	}
}

func limiterKey(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// Hit records an attempt for identifier, unless it is blocked in which case a *RateLimitError is returned.
func (rl *RateLimiter) Hit(identifier string) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := limiterKey(identifier)
	now := rl.now()
	rl.sweep(now)
	att, ok := rl.attempts[key]
	if !ok || now.Sub(att.start) >= rl.window {
		rl.attempts[key] = &attempts{count: 1, start: now}
		return nil
	}
	if att.count >= rl.max {
		return &RateLimitError{Remaining: att.start.Add(rl.window).Sub(now)}
	}
	att.count++
	return nil
}

// sweep drops the expired windows, at most once per window.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.swept) < rl.window {
		return
	}
	for key, att := range rl.attempts {
		if now.Sub(att.start) >= rl.window {
			delete(rl.attempts, key)
		}
	}
	rl.swept = now
}

// Reset forgets the attempts of identifier.
func (rl *RateLimiter) Reset(identifier string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, limiterKey(identifier))
}
