package presence

import (
	"sync"
	"time"

	"PatraChat/internal/clock"
)

// Debouncer runs a function once no new call has arrived for its duration.
type Debouncer struct {
	mu       sync.Mutex
	clock    clock.Clock
	timer    clock.Timer
	duration time.Duration
	gen      uint64
}

// NewDebouncer creates a debouncer with the specified duration.
func NewDebouncer(clk clock.Clock, duration time.Duration) *Debouncer {
	return &Debouncer{clock: clk, duration: duration}
}

// Debounce schedules fn after the debounce duration, cancelling any call
// that is still pending. A stale timer that already fired concurrently is
// ignored.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.duration, func() {
		d.mu.Lock()
		current := gen == d.gen
		if current {
			d.timer = nil
		}
		d.mu.Unlock()

		if current {
			fn()
		}
	})
}

// Cancel cancels any pending call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
