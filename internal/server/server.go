// Package server exposes chat widgets over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"PatraChat/internal/chatbot"
	"PatraChat/internal/config"
	"PatraChat/internal/presence"
)

const (
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
	viewBuffer      = 16
)

// Server routes HTTP requests to the widgets in its registry.
type Server struct {
	cfg      config.Config
	registry *Registry
	logger   *slog.Logger
	router   chi.Router
	upgrader websocket.Upgrader
}

// New creates a server whose widgets are built by factory.
func New(cfg config.Config, factory func() *chatbot.Widget, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		registry: NewRegistry(factory, cfg.SubmitRate, cfg.SubmitBurst),
		logger:   logger,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Post("/open", s.action(func(c *chatbot.Controller) { c.Open() }))
			r.Post("/close", s.action(func(c *chatbot.Controller) { c.Close() }))
			r.Post("/toggle", s.action(func(c *chatbot.Controller) { c.Toggle() }))
			r.Post("/sound", s.action(func(c *chatbot.Controller) { c.ToggleSound() }))
			r.Post("/clear", s.action(func(c *chatbot.Controller) { c.Clear() }))
			r.Post("/escape", s.action(func(c *chatbot.Controller) { c.OnEscape() }))
			r.Post("/outside", s.action(func(c *chatbot.Controller) { c.OnPointerDownOutside() }))
			r.Post("/messages", s.handleMessage)
			r.Post("/scroll", s.handleScroll)
			r.Get("/ws", s.handleStream)
		})
	})
	return r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Registry returns the widget registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// ListenAndServe serves on the configured address until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.registry.CloseAll()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.registry.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Close stops every widget.
func (s *Server) Close() {
	s.registry.CloseAll()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// lookup resolves the {id} URL parameter, writing an error response when it
// does not name a live widget.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (uuid.UUID, *entry, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return uuid.Nil, nil, false
	}
	e, ok := s.registry.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return id, nil, false
	}
	return id, e, true
}

// SessionResponse is the body returned by every session endpoint.
type SessionResponse struct {
	ID   uuid.UUID         `json:"id"`
	View chatbot.ViewModel `json:"view"`
}

func (s *Server) handleCreate(w http.ResponseWriter, _ *http.Request) {
	id, e := s.registry.Create()
	s.logger.Info("session created", "session_id", id)
	writeJSON(w, http.StatusCreated, SessionResponse{ID: id, View: e.widget.View()})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{ID: id, View: e.widget.View()})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, _, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.registry.Delete(id)
	s.logger.Info("session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

// action wraps a controller operation that takes no input.
func (s *Server) action(fn func(*chatbot.Controller)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, e, ok := s.lookup(w, r)
		if !ok {
			return
		}
		fn(e.widget.Chat())
		writeJSON(w, http.StatusOK, SessionResponse{ID: id, View: e.widget.View()})
	}
}

type messageRequest struct {
	Text       string `json:"text"`
	Suggestion string `json:"suggestion"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id, e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if !e.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	chat := e.widget.Chat()
	var accepted bool
	if req.Suggestion != "" {
		accepted = chat.SubmitSuggestion(req.Suggestion)
		if !accepted {
			writeError(w, http.StatusBadRequest, "unknown suggestion")
			return
		}
	} else {
		accepted = chat.Submit(req.Text)
	}
	if !accepted {
		writeError(w, http.StatusBadRequest, "message text is empty")
		return
	}

	writeJSON(w, http.StatusAccepted, SessionResponse{ID: id, View: e.widget.View()})
}

func (s *Server) handleScroll(w http.ResponseWriter, r *http.Request) {
	_, e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var ev presence.ScrollEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	e.widget.Scroll(ev)
	w.WriteHeader(http.StatusAccepted)
}

// handleStream pushes the view-model over a WebSocket after every change
// until the client disconnects or the session is deleted.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id, e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "session_id", id, "error", err)
		return
	}
	defer conn.Close()

	views := make(chan chatbot.ViewModel, viewBuffer)
	cancel := e.widget.Subscribe(func(v chatbot.ViewModel) {
		select {
		case views <- v:
		default:
			// Slow client; it will catch up with the next view.
		}
	})
	defer cancel()

	// The reader only detects disconnects; clients send nothing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(v chatbot.ViewModel) error {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteJSON(v)
	}

	if err := write(e.widget.View()); err != nil {
		conn.Close()
		<-closed
		return
	}

	for {
		select {
		case v := <-views:
			if err := write(v); err != nil {
				s.logger.Debug("websocket write failed", "session_id", id, "error", err)
				conn.Close()
				<-closed
				return
			}
		case <-e.done:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session deleted"),
				time.Now().Add(writeTimeout))
			conn.Close()
			<-closed
			return
		case <-closed:
			return
		}
	}
}
