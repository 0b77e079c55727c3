package testutil

import "sync"

// DeterministicClock is a resettable frame sequence clock for tests.
//
// Unlike session.Clock it can be rewound, so the same scenario can run
// several times and stamp identical seq values. It also remembers every
// value it issued, which lets tests assert how many frames were stamped.
//
// Thread-safety: all methods are safe for concurrent use.
type DeterministicClock struct {
	mu     sync.Mutex
	seq    int64
	issued []int64
}

// NewDeterministicClock creates a clock whose first Next() returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the next sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	c.issued = append(c.issued, c.seq)
	return c.seq
}

// Current returns the last issued sequence number, 0 before the first Next().
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Issued returns every value handed out since the last reset.
func (c *DeterministicClock) Issued() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.issued...)
}

// Reset rewinds the clock so the next call to Next() returns 1.
func (c *DeterministicClock) Reset() {
	c.ResetTo(0)
}

// ResetTo rewinds the clock so the next call to Next() returns seq+1.
func (c *DeterministicClock) ResetTo(seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = seq
	c.issued = nil
}
