package chatbot

import (
	"sync"

	"PatraChat/internal/config"
	"PatraChat/internal/presence"
	"PatraChat/internal/session"
)

// ViewModel is everything a renderer needs to draw the widget.
type ViewModel struct {
	Session     session.Snapshot `json:"session"`
	Presence    presence.State   `json:"presence"`
	RingOffset  float64          `json:"ring_offset"`
	Suggestions []Suggestion     `json:"suggestions"`
}

// Widget composes a session controller with the trigger's presence
// controller and publishes a combined view after every change in either.
type Widget struct {
	chat     *Controller
	presence *presence.Controller
	scroll   *presence.Coalescer
	radius   float64

	mu      sync.Mutex
	subs    map[int]func(ViewModel)
	nextSub int
}

// NewWidget builds a widget. deps are shared by both controllers.
func NewWidget(cfg config.Config, resolver Resolver, deps Deps) *Widget {
	chat := NewController(cfg, resolver, deps)
	radius := cfg.RingRadius
	if radius <= 0 {
		radius = presence.DefaultRingRadius
	}

	w := &Widget{
		chat:   chat,
		radius: radius,
		subs:   make(map[int]func(ViewModel)),
	}
	w.presence = presence.NewController(chat.clock, chat.IsOpen, presence.Options{
		RevealDelay:          cfg.RevealDelay,
		KeepVisibleWhileOpen: cfg.KeepVisibleWhileOpen,
		Logger:               chat.logger,
		Meter:                chat.meter,
	})
	w.scroll = presence.NewCoalescer(chat.clock, cfg.FrameInterval, w.presence.OnScroll)

	chat.Subscribe(func(session.Snapshot) { w.publish() })
	w.presence.OnChange(func(presence.State) { w.publish() })
	return w
}

// Chat returns the session controller.
func (w *Widget) Chat() *Controller { return w.chat }

// Presence returns the presence controller.
func (w *Widget) Presence() *presence.Controller { return w.presence }

// Scroll feeds a raw scroll event through the frame coalescer.
func (w *Widget) Scroll(ev presence.ScrollEvent) {
	w.scroll.Push(ev)
}

// View returns the current view-model.
func (w *Widget) View() ViewModel {
	state := w.presence.State()
	return ViewModel{
		Session:     w.chat.Snapshot(),
		Presence:    state,
		RingOffset:  presence.RingOffset(state.ScrollProgress, w.radius),
		Suggestions: w.chat.Suggestions(),
	}
}

// Subscribe registers fn to receive the view after every change.
func (w *Widget) Subscribe(fn func(ViewModel)) func() {
	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

func (w *Widget) publish() {
	w.mu.Lock()
	fns := make([]func(ViewModel), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	if len(fns) == 0 {
		return
	}

	view := w.View()
	for _, fn := range fns {
		fn(view)
	}
}

// Stop releases every timer the widget holds.
func (w *Widget) Stop() {
	w.scroll.Stop()
	w.presence.Stop()
	w.chat.Stop()
}
