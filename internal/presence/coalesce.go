package presence

import (
	"sync"
	"time"

	"PatraChat/internal/clock"
)

// DefaultFrame approximates one display frame.
const DefaultFrame = 16 * time.Millisecond

// ScrollEvent is one raw scroll notification from the page.
type ScrollEvent struct {
	ScrollY        float64 `json:"scroll_y"`
	ViewportHeight float64 `json:"viewport_height"`
	DocumentHeight float64 `json:"document_height"`
}

// Coalescer collapses bursts of scroll events into at most one tick per
// frame, delivering the latest event of the burst.
type Coalescer struct {
	mu        sync.Mutex
	clock     clock.Clock
	frame     time.Duration
	pending   ScrollEvent
	scheduled bool
	timer     clock.Timer
	deliver   func(ScrollEvent)
}

// NewCoalescer creates a Coalescer that hands ticks to deliver.
func NewCoalescer(clk clock.Clock, frame time.Duration, deliver func(ScrollEvent)) *Coalescer {
	if frame <= 0 {
		frame = DefaultFrame
	}
	return &Coalescer{clock: clk, frame: frame, deliver: deliver}
}

// Push records ev and schedules a tick if none is pending.
func (c *Coalescer) Push(ev ScrollEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending = ev
	if c.scheduled {
		return
	}
	c.scheduled = true
	c.timer = c.clock.AfterFunc(c.frame, c.flush)
}

func (c *Coalescer) flush() {
	c.mu.Lock()
	if !c.scheduled {
		c.mu.Unlock()
		return
	}
	ev := c.pending
	c.scheduled = false
	c.timer = nil
	c.mu.Unlock()

	c.deliver(ev)
}

// Stop drops any tick that has not been delivered yet.
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.scheduled = false
}
