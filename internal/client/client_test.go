package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"PatraChat/internal/chatbot"
	"PatraChat/internal/clock"
	"PatraChat/internal/config"
	"PatraChat/internal/intent"
	"PatraChat/internal/presence"
	"PatraChat/internal/profile"
	"PatraChat/internal/server"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T) (*httptest.Server, *clock.Fake) {
	t.Helper()
	cfg := config.Default()
	cfg.SoundEnabled = false
	clk := clock.NewFake(time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC))
	resolver := intent.NewResolver(profile.NewStatic(profile.Builtin()))
	srv := server.New(cfg, func() *chatbot.Widget {
		return chatbot.NewWidget(cfg, resolver, chatbot.Deps{Clock: clk})
	}, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return ts, clk
}

func TestSessionLifecycle(t *testing.T) {
	ts, clk := newTestServer(t)
	ctx := context.Background()
	c := NewHTTPClient(ts.URL+"/", nil)

	sess, err := c.Create(ctx)
	require.NoError(t, err)
	assert.Contains(t, sess.View.Session.Messages[0].Text, "Good Afternoon!")

	resp, err := c.Do(ctx, sess.ID, ActionOpen)
	require.NoError(t, err)
	assert.True(t, resp.View.Session.IsOpen)

	resp, err = c.Send(ctx, sess.ID, "education")
	require.NoError(t, err)
	assert.True(t, resp.View.Session.IsTyping)

	clk.Advance(1200 * time.Millisecond)
	resp, err = c.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, resp.View.Session.Messages, 3)
	assert.Contains(t, resp.View.Session.Messages[2].Text, "Master of Computer Applications")

	require.NoError(t, c.Scroll(ctx, sess.ID, presence.ScrollEvent{ScrollY: 0, ViewportHeight: 10, DocumentHeight: 10}))

	require.NoError(t, c.Delete(ctx, sess.ID))
	_, err = c.Get(ctx, sess.ID)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "session not found", apiErr.Message)
}

func TestSendBlankIsRejected(t *testing.T) {
	ts, _ := newTestServer(t)
	ctx := context.Background()
	c := NewHTTPClient(ts.URL, nil)

	sess, err := c.Create(ctx)
	require.NoError(t, err)

	_, err = c.Send(ctx, sess.ID, "  ")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestStreamUntilReply(t *testing.T) {
	ts, clk := newTestServer(t)
	ctx := context.Background()
	c := NewHTTPClient(ts.URL, nil)

	sess, err := c.Create(ctx)
	require.NoError(t, err)

	stream, err := Dial(ctx, ts.URL, sess.ID, nil)
	require.NoError(t, err)
	defer stream.Close()

	first, err := stream.Next()
	require.NoError(t, err)
	assert.Len(t, first.Session.Messages, 1)

	_, err = c.Send(ctx, sess.ID, "hi")
	require.NoError(t, err)
	clk.Advance(1200 * time.Millisecond)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	v, err := stream.Until(ctx, func(v chatbot.ViewModel) bool {
		return !v.Session.IsTyping && len(v.Session.Messages) == 3
	})
	require.NoError(t, err)
	assert.Contains(t, v.Session.Messages[2].Text, "Hello!")
}

func TestStreamUntilCancelled(t *testing.T) {
	ts, _ := newTestServer(t)
	c := NewHTTPClient(ts.URL, nil)
	sess, err := c.Create(context.Background())
	require.NoError(t, err)

	stream, err := Dial(context.Background(), ts.URL, sess.ID, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = stream.Until(ctx, func(chatbot.ViewModel) bool { return false })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, stream.Close())
}

func TestDialUnknownSession(t *testing.T) {
	ts, _ := newTestServer(t)
	_, err := Dial(context.Background(), ts.URL, uuid.New(), nil)
	assert.ErrorContains(t, err, "status 404")
}
