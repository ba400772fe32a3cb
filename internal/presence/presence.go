// Package presence decides when the floating chat trigger is shown and how
// far the page has been scrolled.
package presence

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"

	"PatraChat/internal/clock"
)

const (
	// DefaultRevealDelay is the scroll inactivity after which the trigger
	// reappears.
	DefaultRevealDelay = 700 * time.Millisecond

	// DefaultRingRadius is the radius of the progress ring drawn around the
	// trigger.
	DefaultRingRadius = 26.0
)

// State is the presence view-model.
type State struct {
	Visible        bool    `json:"visible"`
	ScrollProgress float64 `json:"scroll_progress"`
}

// Options tune the controller.
type Options struct {
	RevealDelay time.Duration
	// KeepVisibleWhileOpen forces the trigger visible on every tick while the
	// conversation is open.
	KeepVisibleWhileOpen bool
	Logger               *slog.Logger
	Meter                metric.Meter
}

// Controller tracks trigger visibility and scroll progress.
type Controller struct {
	mu       sync.Mutex
	state    State
	opts     Options
	isOpen   func() bool
	reveal   *Debouncer
	gen      uint64
	onChange func(State)
	logger   *slog.Logger
	ticks    metric.Int64Counter
}

// NewController creates a controller. isOpen reports whether the chat
// window is currently open; it must not call back into the controller.
func NewController(clk clock.Clock, isOpen func() bool, opts Options) *Controller {
	if opts.RevealDelay <= 0 {
		opts.RevealDelay = DefaultRevealDelay
	}
	if isOpen == nil {
		isOpen = func() bool { return false }
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Controller{
		state:  State{Visible: true},
		opts:   opts,
		isOpen: isOpen,
		reveal: NewDebouncer(clk, opts.RevealDelay),
		logger: logger,
	}

	if opts.Meter != nil {
		ticks, err := opts.Meter.Int64Counter("presence.scroll.ticks",
			metric.WithDescription("Scroll ticks processed by the presence controller"))
		if err != nil {
			logger.Warn("failed to create counter", "name", "presence.scroll.ticks", "error", err)
		} else {
			c.ticks = ticks
		}
	}
	return c
}

// OnChange registers fn to be called after every state change.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

// State returns the current presence state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnScrollTick applies one coalesced scroll tick.
func (c *Controller) OnScrollTick(scrollY, viewportHeight, documentHeight float64) {
	if c.ticks != nil {
		c.ticks.Add(context.Background(), 1)
	}

	open := c.isOpen()

	c.mu.Lock()
	c.state.ScrollProgress = Progress(scrollY, viewportHeight, documentHeight)
	c.gen++
	if open && c.opts.KeepVisibleWhileOpen {
		c.state.Visible = true
		c.reveal.Cancel()
	} else {
		c.state.Visible = false
		gen := c.gen
		c.reveal.Debounce(func() { c.show(gen) })
	}
	state, fn := c.state, c.onChange
	c.mu.Unlock()

	c.logger.Debug("scroll tick", "progress", state.ScrollProgress, "visible", state.Visible)
	if fn != nil {
		fn(state)
	}
}

// OnScroll adapts OnScrollTick to a ScrollEvent, for use with a Coalescer.
func (c *Controller) OnScroll(ev ScrollEvent) {
	c.OnScrollTick(ev.ScrollY, ev.ViewportHeight, ev.DocumentHeight)
}

// Stop cancels a pending reveal.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.reveal.Cancel()
}

// RevealPending reports whether the trigger is waiting for scroll to settle.
func (c *Controller) RevealPending() bool {
	return c.reveal.Pending()
}

func (c *Controller) show(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.state.Visible = true
	state, fn := c.state, c.onChange
	c.mu.Unlock()

	if fn != nil {
		fn(state)
	}
}

// Progress returns how far the page is scrolled, in percent. It is 0 when
// the document does not overflow the viewport.
func Progress(scrollY, viewportHeight, documentHeight float64) float64 {
	scrollable := documentHeight - viewportHeight
	if documentHeight <= viewportHeight || scrollable <= 0 || math.IsNaN(scrollable) {
		return 0
	}
	p := scrollY / scrollable * 100
	if math.IsNaN(p) {
		return 0
	}
	return math.Min(100, math.Max(0, p))
}

// RingOffset returns the stroke-dashoffset of a progress ring of the given
// radius.
func RingOffset(progress, radius float64) float64 {
	circumference := 2 * math.Pi * radius
	return circumference - (progress/100)*circumference
}
