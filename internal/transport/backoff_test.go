package transport

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoffDelay_NoJitter(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
	}
	assert.Equal(t, 250*time.Millisecond, NextBackoffDelay(cfg, 1, nil))
	assert.Equal(t, 500*time.Millisecond, NextBackoffDelay(cfg, 2, nil))
	assert.Equal(t, time.Second, NextBackoffDelay(cfg, 3, nil))
	assert.Equal(t, 5*time.Second, NextBackoffDelay(cfg, 6, nil))
}

func TestNextBackoffDelay_JitterBounds(t *testing.T) {
	cfg := DefaultBackoff()
	rng := rand.New(rand.NewSource(1))
	for attempt := 2; attempt < 10; attempt++ {
		d := NextBackoffDelay(cfg, attempt, rng)
		assert.GreaterOrEqual(t, d, 125*time.Millisecond)
		assert.LessOrEqual(t, d, 7500*time.Millisecond)
	}
}

func TestNextBackoffDelay_Degenerate(t *testing.T) {
	assert.Equal(t, time.Duration(0), NextBackoffDelay(BackoffConfig{}, 3, nil))
	cfg := BackoffConfig{InitialDelay: time.Second, Multiplier: 0.5}
	assert.Equal(t, time.Second, NextBackoffDelay(cfg, 4, nil), "multiplier below 1 is clamped")
}
