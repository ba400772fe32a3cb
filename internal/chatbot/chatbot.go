package chatbot

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"PatraChat/internal/audio"
	"PatraChat/internal/cache"
	"PatraChat/internal/clock"
	"PatraChat/internal/config"
	"PatraChat/internal/intent"
	"PatraChat/internal/session"
	"PatraChat/internal/telemetry"
)

const (
	commandClearedReply = "Chat cleared! 🧹 How can I help?"
	buttonClearedReply  = "Chat cleared."

	audioTimeout = 2 * time.Second
)

// Resolver answers one user input.
type Resolver interface {
	Resolve(raw string) intent.Result
}

// Deps are the collaborators a controller is built with. Zero values fall
// back to the real clock, the default logger, noop telemetry and silence.
type Deps struct {
	Clock  clock.Clock
	Logger *slog.Logger
	Tracer trace.Tracer
	Meter  metric.Meter
	Player audio.Player
}

// Controller owns one chat session: the open state, the message log, the
// input buffer and the single pending-reply timer.
type Controller struct {
	config   config.Config
	clock    clock.Clock
	resolver Resolver
	store    *session.Store
	cache    *cache.Cache[intent.Result]
	player   audio.Player
	logger   *slog.Logger
	tracer   trace.Tracer
	meter    metric.Meter

	submitted     metric.Int64Counter
	replies       metric.Int64Counter
	audioFailures metric.Int64Counter

	mu      sync.Mutex
	isOpen  bool
	sound   bool
	input   string
	timer   clock.Timer
	pending []string // inputs waiting for a reply, oldest first
	gen     uint64   // invalidates timers that were stopped too late
	stopped bool
	subs    map[int]func(session.Snapshot)
	nextSub int

	audioWG sync.WaitGroup
}

// NewController creates a closed session seeded with the greeting for the
// current time of day.
func NewController(cfg config.Config, resolver Resolver, deps Deps) *Controller {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Tracer == nil || deps.Meter == nil {
		tracer, meter := telemetry.Noop()
		if deps.Tracer == nil {
			deps.Tracer = tracer
		}
		if deps.Meter == nil {
			deps.Meter = meter
		}
	}
	if deps.Player == nil {
		deps.Player = audio.Nop{}
	}
	if cfg.AssistantName == "" {
		cfg.AssistantName = config.Default().AssistantName
	}

	c := &Controller{
		config:   cfg,
		clock:    deps.Clock,
		resolver: resolver,
		store:    session.NewStore(deps.Clock.Now),
		cache:    cache.New[intent.Result](0),
		player:   deps.Player,
		logger:   deps.Logger,
		tracer:   deps.Tracer,
		meter:    deps.Meter,
		sound:    cfg.SoundEnabled,
		subs:     make(map[int]func(session.Snapshot)),
	}
	c.submitted = c.counter("chatbot.messages.submitted", "User messages accepted by the widget")
	c.replies = c.counter("chatbot.replies", "Assistant replies delivered, by intent")
	c.audioFailures = c.counter("chatbot.audio.failures", "Audio cues that failed to play")

	c.store.Append(session.SenderAssistant, Greeting(deps.Clock.Now(), cfg.AssistantName))
	return c
}

func (c *Controller) counter(name, desc string) metric.Int64Counter {
	counter, err := c.meter.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		c.logger.Warn("failed to create counter", "name", name, "error", err)
		_, noop := telemetry.Noop()
		counter, _ = noop.Int64Counter(name)
	}
	return counter
}

// Greeting builds the first assistant message for the given local time.
func Greeting(now time.Time, assistant string) string {
	var salute string
	switch h := now.Hour(); {
	case h < 12:
		salute = "Good Morning! ☀️"
	case h < 18:
		salute = "Good Afternoon! 🌤️"
	default:
		salute = "Good Evening! 🌙"
	}
	return fmt.Sprintf("%s<br/>I’m <b>%s</b>. How can I help you today?", salute, html.EscapeString(assistant))
}

// Snapshot returns the current session view.
func (c *Controller) Snapshot() session.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() session.Snapshot {
	return session.Snapshot{
		IsOpen:       c.isOpen,
		IsTyping:     c.store.Typing(),
		SoundEnabled: c.sound,
		Input:        c.input,
		Messages:     c.store.Messages(),
	}
}

// IsOpen reports whether the conversation window is open.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isOpen
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function removes the subscription.
func (c *Controller) Subscribe(fn func(session.Snapshot)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// notify must be called without c.mu held.
func (c *Controller) notify() {
	c.mu.Lock()
	snap := c.snapshotLocked()
	fns := make([]func(session.Snapshot), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Open shows the conversation window.
func (c *Controller) Open() {
	c.mu.Lock()
	if c.isOpen {
		c.mu.Unlock()
		return
	}
	c.isOpen = true
	c.mu.Unlock()

	c.logger.Debug("chat opened")
	c.notify()
}

// Close hides the conversation window. With CancelReplyOnClose set, a
// pending reply is dropped as well.
func (c *Controller) Close() {
	c.mu.Lock()
	if !c.isOpen {
		c.mu.Unlock()
		return
	}
	c.isOpen = false
	dropped := 0
	if c.config.CancelReplyOnClose {
		dropped = c.cancelPendingLocked()
	}
	c.mu.Unlock()

	if dropped > 0 {
		c.logger.Info("pending reply cancelled on close", "dropped", dropped)
	}
	c.logger.Debug("chat closed")
	c.notify()
}

// Toggle flips the open state.
func (c *Controller) Toggle() {
	if c.IsOpen() {
		c.Close()
		return
	}
	c.Open()
}

// OnPointerDownOutside closes the window if it is open. It reports whether
// anything changed.
func (c *Controller) OnPointerDownOutside() bool {
	if !c.IsOpen() {
		return false
	}
	c.Close()
	return true
}

// OnEscape closes the window if it is open.
func (c *Controller) OnEscape() bool {
	return c.OnPointerDownOutside()
}

// ToggleSound flips whether cues are played and returns the new setting.
func (c *Controller) ToggleSound() bool {
	c.mu.Lock()
	c.sound = !c.sound
	enabled := c.sound
	c.mu.Unlock()

	c.logger.Debug("sound toggled", "enabled", enabled)
	c.notify()
	return enabled
}

// SetInput replaces the pending input buffer.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	c.input = text
	c.mu.Unlock()
	c.notify()
}

// SubmitInput submits the input buffer.
func (c *Controller) SubmitInput() bool {
	c.mu.Lock()
	text := c.input
	c.mu.Unlock()
	return c.Submit(text)
}

// Submit appends a user message and schedules the reply. Blank text is
// ignored and Submit reports false.
func (c *Controller) Submit(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	c.store.Append(session.SenderUser, trimmed)
	c.input = ""
	c.store.SetTyping(true)

	superseded := 0
	switch c.config.ReplyPolicy {
	case config.PolicyQueue:
		c.pending = append(c.pending, trimmed)
		if c.timer == nil {
			c.armLocked()
		}
	default:
		superseded = len(c.pending)
		c.stopTimerLocked()
		c.pending = []string{trimmed}
		c.armLocked()
	}
	queued := len(c.pending)
	sound := c.sound
	c.mu.Unlock()

	c.submitted.Add(context.Background(), 1)
	c.logger.Info("message submitted", "length", len(trimmed), "queued", queued, "superseded", superseded)

	if sound {
		c.play(audio.CueSend)
	}
	c.notify()
	return true
}

// Clear resets the log to a single acknowledgement. A pending reply is
// still delivered afterwards.
func (c *Controller) Clear() {
	c.store.Reset(session.SenderAssistant, buttonClearedReply)
	c.logger.Info("chat cleared")
	c.notify()
}

// ReplyPending reports whether a reply timer is outstanding.
func (c *Controller) ReplyPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Stop cancels the pending reply and waits for in-flight audio cues.
// Later submissions are ignored.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.cancelPendingLocked()
	c.mu.Unlock()

	c.audioWG.Wait()
}

func (c *Controller) armLocked() {
	c.gen++
	gen := c.gen
	c.timer = c.clock.AfterFunc(c.config.ReplyLatency, func() { c.deliver(gen) })
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

func (c *Controller) cancelPendingLocked() int {
	n := len(c.pending)
	c.stopTimerLocked()
	c.pending = nil
	c.store.SetTyping(false)
	return n
}

func (c *Controller) deliver(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	text := c.pending[0]
	c.pending = c.pending[1:]
	c.timer = nil

	_, span := c.tracer.Start(context.Background(), "chatbot.reply")
	res := c.resolve(text)
	if res.Clear {
		c.store.Reset(session.SenderAssistant, commandClearedReply)
	} else {
		c.store.Append(session.SenderAssistant, res.Text)
	}

	remaining := len(c.pending)
	if remaining > 0 {
		c.armLocked()
	} else {
		c.store.SetTyping(false)
	}
	sound := c.sound
	c.mu.Unlock()

	span.SetAttributes(
		attribute.String("intent", string(res.Intent)),
		attribute.Int("queued", remaining),
	)
	span.SetStatus(codes.Ok, "")
	span.End()

	c.replies.Add(context.Background(), 1, metric.WithAttributes(attribute.String("intent", string(res.Intent))))
	c.logger.Info("reply delivered", "intent", res.Intent, "remaining", remaining)

	if !res.Clear && sound {
		c.play(audio.CueReceive)
	}
	c.notify()
}

// resolve memoises resolver results by normalised query.
func (c *Controller) resolve(text string) intent.Result {
	key := cache.Key(intent.Normalize(text))
	if res, ok := c.cache.Get(key); ok {
		c.logger.Debug("cache hit", "key", key[:16])
		return res
	}
	res := c.resolver.Resolve(text)
	c.cache.Put(key, res, c.clock.Now())
	return res
}

// play dispatches a cue without blocking the caller. Failures are counted
// and otherwise ignored.
func (c *Controller) play(cue audio.Cue) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.audioWG.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.audioWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), audioTimeout)
		defer cancel()
		if err := c.player.Play(ctx, cue); err != nil {
			c.audioFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("cue", string(cue))))
		}
	}()
}
