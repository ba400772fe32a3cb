package server

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"PatraChat/internal/chatbot"
)

// entry is one live widget and the limiter guarding its submissions.
type entry struct {
	widget  *chatbot.Widget
	limiter *rate.Limiter
	done    chan struct{} // closed when the widget is removed
}

// Registry holds the widgets created over HTTP, keyed by UUID.
type Registry struct {
	mu      sync.Mutex
	widgets map[uuid.UUID]*entry
	factory func() *chatbot.Widget
	limit   rate.Limit
	burst   int
}

// NewRegistry creates a registry that builds widgets with factory and
// allows perSecond submissions per widget with the given burst.
func NewRegistry(factory func() *chatbot.Widget, perSecond float64, burst int) *Registry {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Registry{
		widgets: make(map[uuid.UUID]*entry),
		factory: factory,
		limit:   limit,
		burst:   burst,
	}
}

// Create builds a new widget and returns its id.
func (r *Registry) Create() (uuid.UUID, *entry) {
	e := &entry{
		widget:  r.factory(),
		limiter: rate.NewLimiter(r.limit, r.burst),
		done:    make(chan struct{}),
	}
	id := uuid.New()

	r.mu.Lock()
	r.widgets[id] = e
	r.mu.Unlock()
	return id, e
}

// Get returns the widget registered under id.
func (r *Registry) Get(id uuid.UUID) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.widgets[id]
	return e, ok
}

// Delete stops and removes the widget registered under id.
func (r *Registry) Delete(id uuid.UUID) bool {
	r.mu.Lock()
	e, ok := r.widgets[id]
	delete(r.widgets, id)
	r.mu.Unlock()

	if ok {
		close(e.done)
		e.widget.Stop()
	}
	return ok
}

// Len returns the number of live widgets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.widgets)
}

// CloseAll stops and removes every widget.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.widgets
	r.widgets = make(map[uuid.UUID]*entry)
	r.mu.Unlock()

	for _, e := range all {
		close(e.done)
		e.widget.Stop()
	}
}
