package chatbot

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PatraChat/internal/clock"
	"PatraChat/internal/config"
	"PatraChat/internal/presence"
)

func newTestWidget(t *testing.T, mutate func(*config.Config)) (*Widget, *clock.Fake) {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	clk := clock.NewFake(morning)
	w := NewWidget(cfg, builtinResolver(), Deps{Clock: clk})
	t.Cleanup(w.Stop)
	return w, clk
}

func TestWidgetInitialView(t *testing.T) {
	w, _ := newTestWidget(t, nil)
	view := w.View()

	assert.False(t, view.Session.IsOpen)
	assert.Len(t, view.Session.Messages, 1)
	assert.Equal(t, presence.State{Visible: true, ScrollProgress: 0}, view.Presence)
	assert.InDelta(t, 2*math.Pi*26, view.RingOffset, 1e-9)
	assert.Len(t, view.Suggestions, 4)
}

func TestWidgetScrollHidesAndReveals(t *testing.T) {
	w, clk := newTestWidget(t, nil)

	w.Scroll(presence.ScrollEvent{ScrollY: 100, ViewportHeight: 800, DocumentHeight: 1800})
	w.Scroll(presence.ScrollEvent{ScrollY: 500, ViewportHeight: 800, DocumentHeight: 1800})
	assert.True(t, w.View().Presence.Visible, "nothing applied before the frame ends")

	clk.Advance(presence.DefaultFrame)
	view := w.View()
	assert.False(t, view.Presence.Visible)
	assert.InDelta(t, 50, view.Presence.ScrollProgress, 1e-9)
	assert.InDelta(t, math.Pi*26, view.RingOffset, 1e-9)

	clk.Advance(700 * time.Millisecond)
	assert.True(t, w.View().Presence.Visible)
}

func TestWidgetOpenKeepsTriggerVisible(t *testing.T) {
	w, clk := newTestWidget(t, nil)
	w.Chat().Open()

	w.Scroll(presence.ScrollEvent{ScrollY: 100, ViewportHeight: 800, DocumentHeight: 1800})
	clk.Advance(presence.DefaultFrame)

	view := w.View()
	assert.True(t, view.Presence.Visible)
	assert.InDelta(t, 10, view.Presence.ScrollProgress, 1e-9)
	assert.False(t, w.Presence().RevealPending())
}

func TestWidgetOpeningDoesNotRevealHiddenTrigger(t *testing.T) {
	w, clk := newTestWidget(t, nil)
	w.Scroll(presence.ScrollEvent{ScrollY: 100, ViewportHeight: 800, DocumentHeight: 1800})
	clk.Advance(presence.DefaultFrame)
	require.False(t, w.View().Presence.Visible)

	w.Chat().Open()
	assert.False(t, w.View().Presence.Visible)
}

func TestWidgetPublishesEveryChange(t *testing.T) {
	w, clk := newTestWidget(t, nil)
	var views []ViewModel
	cancel := w.Subscribe(func(v ViewModel) { views = append(views, v) })
	defer cancel()

	w.Chat().Open()
	w.Chat().Submit("projects")
	clk.Advance(1200 * time.Millisecond)

	require.Len(t, views, 3)
	assert.True(t, views[0].Session.IsOpen)
	assert.True(t, views[1].Session.IsTyping)
	assert.Len(t, views[2].Session.Messages, 3)

	w.Scroll(presence.ScrollEvent{ScrollY: 0, ViewportHeight: 800, DocumentHeight: 800})
	clk.Advance(presence.DefaultFrame)
	require.Len(t, views, 4)
	assert.Zero(t, views[3].Presence.ScrollProgress)
}

func TestWidgetStopReleasesTimers(t *testing.T) {
	cfg := config.Default()
	clk := clock.NewFake(morning)
	w := NewWidget(cfg, builtinResolver(), Deps{Clock: clk})

	w.Chat().Submit("hi")
	w.Scroll(presence.ScrollEvent{ScrollY: 10, ViewportHeight: 100, DocumentHeight: 200})
	require.Equal(t, 2, clk.Pending())

	w.Stop()
	assert.Zero(t, clk.Pending())
}
