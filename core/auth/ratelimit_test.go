package auth

import (
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Hit(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := start
	rl := NewRateLimiter(2, 15*time.Minute)
	rl.now = func() time.Time { return now }

	assert.NoError(t, rl.Hit("grace@test.cd"))
	assert.NoError(t, rl.Hit(" Grace@Test.cd"))

	now = start.Add(5*time.Minute + 30*time.Second)
	err := rl.Hit("grace@test.cd")
	var rlErr *RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("Hit() error = %v; want a *RateLimitError", err)
	}
	assert.Equal(t, 9*time.Minute+30*time.Second, rlErr.Remaining)
	assert.Equal(t, "Too many failed login attempts. Please try again in 10 minutes.", err.Error())

	// blocked hits do not extend the window
	now = start.Add(15 * time.Minute)
	assert.NoError(t, rl.Hit("grace@test.cd"))
	assert.NoError(t, rl.Hit("grace@test.cd"))
	assert.Error(t, rl.Hit("grace@test.cd"))

	rl.Reset("GRACE@test.cd")
	assert.NoError(t, rl.Hit("grace@test.cd"))
}

func TestRateLimiter_Hit_dropsExpiredWindows(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	now := start
	rl := NewRateLimiter(5, 15*time.Minute)
	rl.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		assert.NoError(t, rl.Hit(fmt.Sprintf("user%d@test.cd", i)))
	}
	assert.Len(t, rl.attempts, 1000)

	now = start.Add(10 * time.Minute)
	assert.NoError(t, rl.Hit("late@test.cd"))
	assert.Len(t, rl.attempts, 1001)

	now = start.Add(16 * time.Minute)
	assert.NoError(t, rl.Hit("grace@test.cd"))
	assert.Len(t, rl.attempts, 2) // late@ is still within its window

	now = start.Add(40 * time.Minute)
	assert.NoError(t, rl.Hit("grace@test.cd"))
	assert.Len(t, rl.attempts, 1)
}
