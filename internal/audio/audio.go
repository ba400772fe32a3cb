// Package audio defines the cue port the chat widget plays sounds through.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Cue names a sound the widget can request.
type Cue string

const (
	CueSend    Cue = "send"
	CueReceive Cue = "receive"
)

// ErrUnknownCue is returned by players that have no sound for a cue.
var ErrUnknownCue = errors.New("audio: unknown cue")

// Player plays cues. Implementations may fail; the widget discards errors.
type Player interface {
	Play(ctx context.Context, cue Cue) error
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(ctx context.Context, cue Cue) error

// Play calls f.
func (f PlayerFunc) Play(ctx context.Context, cue Cue) error {
	return f(ctx, cue)
}

// Nop never plays anything.
type Nop struct{}

// Play implements Player.
func (Nop) Play(context.Context, Cue) error { return nil }

// Bell rings the terminal bell: once for send, twice for receive.
type Bell struct {
	mu sync.Mutex
	w  io.Writer
}

// NewBell creates a Bell writing to w.
func NewBell(w io.Writer) *Bell {
	return &Bell{w: w}
}

// Play implements Player.
func (b *Bell) Play(ctx context.Context, cue Cue) error {
	var seq string
	switch cue {
	case CueSend:
		seq = "\a"
	case CueReceive:
		seq = "\a\a"
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCue, cue)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.WriteString(b.w, seq)
	return err
}
