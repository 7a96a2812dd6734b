package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_BurstThenRefill(t *testing.T) {
	clock := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	l := New(2, 0.5)
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "keys are independent")

	clock = clock.Add(time.Second)
	assert.False(t, l.Allow("10.0.0.1"), "half a token after one second")

	clock = clock.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
}

func TestLimiter_RefillCapped(t *testing.T) {
	clock := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	l := New(1, 10)
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow("k"))
	clock = clock.Add(time.Hour)
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
}
