package jitter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDuration_NoJitterIsExact(t *testing.T) {
	assert.Equal(t, time.Second, Duration(time.Second, 0))
	assert.Equal(t, time.Duration(0), Duration(0, DefaultJitter))
}

func TestDuration_Bounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := Duration(100*time.Millisecond, DefaultJitter)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestExponentialBackoff_Capped(t *testing.T) {
	assert.Equal(t, time.Second, ExponentialBackoff(time.Second, 30*time.Second, 0, 0))
	assert.Equal(t, 4*time.Second, ExponentialBackoff(time.Second, 30*time.Second, 2, 0))
	assert.Equal(t, 30*time.Second, ExponentialBackoff(time.Second, 30*time.Second, 10, 0))
}

func TestFixed(t *testing.T) {
	s := Fixed(time.Second, 0)
	for attempt := 0; attempt < 5; attempt++ {
		assert.Equal(t, time.Second, s(attempt))
	}
}
