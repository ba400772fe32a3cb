package client

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"PatraChat/internal/chatbot"
)

// Stream receives view-model updates for one session.
type Stream struct {
	id     uuid.UUID
	conn   *websocket.Conn
	logger *slog.Logger
	mu     sync.Mutex
	closed bool
}

// Dial opens the view stream of session id on the server at baseURL.
func Dial(ctx context.Context, baseURL string, id uuid.UUID, logger *slog.Logger) (*Stream, error) {
	if logger == nil {
		logger = slog.Default()
	}

	url := strings.TrimRight(baseURL, "/") + sessionPath(id, "ws")
	switch {
	case strings.HasPrefix(url, "https://"):
		url = "wss://" + strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		url = "ws://" + strings.TrimPrefix(url, "http://")
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to connect to WebSocket: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect to WebSocket: %w", err)
	}

	logger.Info("opened view stream", "session_id", id)
	return &Stream{id: id, conn: conn, logger: logger}, nil
}

// Next blocks until the server pushes the next view. It returns an error
// once the stream is closed by either side.
func (s *Stream) Next() (chatbot.ViewModel, error) {
	var v chatbot.ViewModel
	if err := s.conn.ReadJSON(&v); err != nil {
		return v, fmt.Errorf("failed to read view: %w", err)
	}
	return v, nil
}

// Until reads views until match returns true or ctx is done.
func (s *Stream) Until(ctx context.Context, match func(chatbot.ViewModel) bool) (chatbot.ViewModel, error) {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		v, err := s.Next()
		if err != nil {
			if ctx.Err() != nil {
				return v, ctx.Err()
			}
			return v, err
		}
		if match(v) {
			return v, nil
		}
	}
}

// Close disconnects from the server.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.conn.Close()

	s.logger.Info("closed view stream", "session_id", s.id)
	return nil
}
