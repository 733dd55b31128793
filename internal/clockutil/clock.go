// Package clockutil provides the monotonic timing primitive used by the
// grading engine to measure workload run time. Adapted from the
// original grading harness's Chrono: a nanosecond tick counter that
// distinguishes "never started" from a zero-length measurement.
package clockutil

import "time"

// Tick is a duration in nanoseconds.
type Tick uint64

// InvalidTick marks a Chrono that has not been started, or a Delta/Stop
// taken before Start.
const InvalidTick Tick = 0xbadc0de

// Chrono measures elapsed monotonic time. The zero Chrono is stopped
// and has never been started.
type Chrono struct {
	start   time.Time
	started bool
}

// Start begins (or restarts) the clock.
func (c *Chrono) Start() {
	c.start = time.Now()
	c.started = true
}

// Delta returns the elapsed time since Start without stopping the
// clock. Returns InvalidTick if the clock was never started.
func (c *Chrono) Delta() Tick {
	if !c.started {
		return InvalidTick
	}
	return Tick(time.Since(c.start).Nanoseconds())
}

// Stop stops the clock and returns the elapsed time since Start.
// Returns InvalidTick if the clock was never started.
func (c *Chrono) Stop() Tick {
	d := c.Delta()
	c.started = false
	return d
}

// Reset clears the clock to its never-started state.
func (c *Chrono) Reset() {
	c.started = false
}

// Running reports whether the clock is currently running.
func (c *Chrono) Running() bool { return c.started }

// Resolution reports the best-effort resolution of the underlying
// clock. Go's runtime clock does not expose clock_getres, so this is a
// conservative estimate rather than a syscall result.
func Resolution() time.Duration {
	return time.Nanosecond
}
