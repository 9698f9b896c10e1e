package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowWithinLimit(t *testing.T) {
	l := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(context.Background(), "acct")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i)
	}

	ok, err := l.Allow(context.Background(), "acct")
	require.NoError(t, err)
	assert.False(t, ok, "fourth attempt must be rejected")
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := NewRateLimiter(1, time.Minute)

	ok, err := l.Allow(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Allow(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, ok, "a's budget must not affect b")

	ok, err = l.Allow(context.Background(), "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAllowSlidesWindow(t *testing.T) {
	l := NewRateLimiter(2, time.Minute)

	current := time.Now()
	l.now = func() time.Time { return current }

	ok, _ := l.Allow(context.Background(), "acct")
	assert.True(t, ok)
	ok, _ = l.Allow(context.Background(), "acct")
	assert.True(t, ok)
	ok, _ = l.Allow(context.Background(), "acct")
	assert.False(t, ok)

	// Half a window later the budget is still spent
	current = current.Add(30 * time.Second)
	ok, _ = l.Allow(context.Background(), "acct")
	assert.False(t, ok)

	// A full window after the first two attempts they age out; the attempt
	// from 30s ago still counts.
	current = current.Add(31 * time.Second)
	ok, _ = l.Allow(context.Background(), "acct")
	assert.True(t, ok)
	ok, _ = l.Allow(context.Background(), "acct")
	assert.False(t, ok)
}

func TestAllowRejectionStillRecordsNothing(t *testing.T) {
	l := NewRateLimiter(1, time.Minute)

	current := time.Now()
	l.now = func() time.Time { return current }

	ok, _ := l.Allow(context.Background(), "acct")
	assert.True(t, ok)

	// Rejected attempts do not extend the window
	for i := 0; i < 5; i++ {
		ok, _ = l.Allow(context.Background(), "acct")
		assert.False(t, ok)
	}

	current = current.Add(time.Minute + time.Second)
	ok, _ = l.Allow(context.Background(), "acct")
	assert.True(t, ok, "window must clear once the admitted attempt ages out")
}
