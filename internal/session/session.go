package session

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Sender identifies who wrote a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message represents a single chat message. Messages are never modified
// after they are appended.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the session view handed to the presentation layer.
type Snapshot struct {
	IsOpen       bool      `json:"is_open"`
	IsTyping     bool      `json:"is_typing"`
	SoundEnabled bool      `json:"sound_enabled"`
	Input        string    `json:"input"`
	Messages     []Message `json:"messages"`
}

// Store is the ordered message log plus the typing flag. It is append-only
// except for Reset, which replaces the whole log with one message.
type Store struct {
	mu       sync.RWMutex
	messages []Message
	typing   bool
	entropy  io.Reader
	now      func() time.Time
}

// NewStore creates an empty store. now stamps new messages and their ids.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(now().UnixNano())), 0),
		now:     now,
	}
}

// NewMessage builds a message with a fresh id. Ids increase with every call.
func (s *Store) NewMessage(sender Sender, text string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newMessageLocked(sender, text)
}

func (s *Store) newMessageLocked(sender Sender, text string) Message {
	t := s.now()
	return Message{
		ID:        ulid.MustNew(ulid.Timestamp(t), s.entropy).String(),
		Text:      text,
		Sender:    sender,
		Timestamp: t,
	}
}

// Append adds a new message to the end of the log and returns it.
func (s *Store) Append(sender Sender, text string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.newMessageLocked(sender, text)
	s.messages = append(s.messages, msg)
	return msg
}

// Reset replaces the log with a single fresh message.
func (s *Store) Reset(sender Sender, text string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := s.newMessageLocked(sender, text)
	s.messages = []Message{msg}
	return msg
}

// Messages returns a copy of the log in insertion order.
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of messages in the log.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// SetTyping sets the typing indicator.
func (s *Store) SetTyping(typing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing = typing
}

// Typing reports whether a reply is in flight.
func (s *Store) Typing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typing
}
