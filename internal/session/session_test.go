package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
}

func TestStoreAppendKeepsOrderAndMonotonicIDs(t *testing.T) {
	s := NewStore(fixedNow)

	var prev string
	for i := 0; i < 50; i++ {
		msg := s.Append(SenderUser, "m")
		assert.Greater(t, msg.ID, prev)
		prev = msg.ID
	}
	assert.Equal(t, 50, s.Len())
}

func TestStoreReset(t *testing.T) {
	s := NewStore(fixedNow)
	s.Append(SenderAssistant, "hello")
	s.Append(SenderUser, "hi")

	msg := s.Reset(SenderAssistant, "Chat cleared.")

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, msg, msgs[0])
	assert.Equal(t, SenderAssistant, msgs[0].Sender)
}

func TestStoreMessagesIsACopy(t *testing.T) {
	s := NewStore(fixedNow)
	s.Append(SenderUser, "one")

	msgs := s.Messages()
	msgs[0].Text = "changed"

	assert.Equal(t, "one", s.Messages()[0].Text)
}

func TestStoreTyping(t *testing.T) {
	s := NewStore(nil)
	assert.False(t, s.Typing())
	s.SetTyping(true)
	assert.True(t, s.Typing())
}
