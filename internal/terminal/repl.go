// Package terminal drives a chat widget from an interactive line-based
// session.
package terminal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"PatraChat/internal/chatbot"
	"PatraChat/internal/presence"
	"PatraChat/internal/session"
)

// REPL reads commands and messages from in and prints assistant replies to
// out as they arrive.
type REPL struct {
	widget *chatbot.Widget
	in     io.Reader
	logger *slog.Logger
	styles Styles

	mu      sync.Mutex // guards out and printed
	out     io.Writer
	printed map[string]bool
	typing  bool
}

// New creates a REPL for w.
func New(w *chatbot.Widget, in io.Reader, out io.Writer, logger *slog.Logger) *REPL {
	if logger == nil {
		logger = slog.Default()
	}
	return &REPL{
		widget:  w,
		in:      in,
		out:     out,
		logger:  logger,
		styles:  NewStyles(lipgloss.NewRenderer(out)),
		printed: make(map[string]bool),
	}
}

func (r *REPL) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}

// onSnapshot prints assistant messages that have not been shown yet.
func (r *REPL) onSnapshot(snap session.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(snap.Messages))
	for _, msg := range snap.Messages {
		seen[msg.ID] = true
		if msg.Sender != session.SenderAssistant || r.printed[msg.ID] {
			continue
		}
		fmt.Fprintf(r.out, "%s %s\n\n", r.styles.Bot.Render("Bot:"), Flatten(msg.Text, r.styles.Bold))
	}
	r.printed = seen

	if snap.IsTyping && !r.typing {
		fmt.Fprintln(r.out, r.styles.Muted.Render("typing..."))
	}
	r.typing = snap.IsTyping
}

// Run reads lines until EOF, /quit or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	chat := r.widget.Chat()

	r.printf("=== Patra AI ===\n")
	r.printf("Type /help for commands, /quit to exit\n\n")
	r.onSnapshot(chat.Snapshot())

	cancel := chat.Subscribe(r.onSnapshot)
	defer cancel()

	scanner := bufio.NewScanner(r.in)
	for ctx.Err() == nil {
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			shouldQuit, err := r.handleCommand(input)
			if err != nil {
				r.printf("%s\n", r.styles.Error.Render("Error: "+err.Error()))
				r.logger.Error("command error", "error", err)
			}
			if shouldQuit {
				break
			}
			continue
		}

		if !chat.IsOpen() {
			chat.Open()
		}
		chat.Submit(input)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	r.printf("Goodbye!\n")
	return nil
}

// handleCommand handles slash commands. It reports whether the REPL should
// exit.
func (r *REPL) handleCommand(cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}
	chat := r.widget.Chat()

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/open":
		chat.Open()
		r.printf("Chat opened\n")

	case "/close":
		chat.Close()
		r.printf("Chat closed\n")

	case "/toggle":
		chat.Toggle()
		r.printf("Chat open: %t\n", chat.IsOpen())

	case "/sound":
		r.printf("Sound enabled: %t\n", chat.ToggleSound())

	case "/clear":
		chat.Clear()

	case "/escape":
		if chat.OnEscape() {
			r.printf("Chat closed\n")
		}

	case "/outside":
		if chat.OnPointerDownOutside() {
			r.printf("Chat closed\n")
		}

	case "/scroll":
		if len(parts) != 4 {
			return false, fmt.Errorf("usage: /scroll <scrollY> <viewportHeight> <documentHeight>")
		}
		var vals [3]float64
		for i, p := range parts[1:] {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return false, fmt.Errorf("invalid number %q: %w", p, err)
			}
			vals[i] = v
		}
		r.widget.Scroll(presence.ScrollEvent{ScrollY: vals[0], ViewportHeight: vals[1], DocumentHeight: vals[2]})

	case "/chips":
		for i, s := range chat.Suggestions() {
			r.printf("%d. %s - %q\n", i+1, s.Label, s.Prompt)
		}

	case "/chip":
		if len(parts) != 2 {
			return false, fmt.Errorf("usage: /chip <number|label>")
		}
		chips := chat.Suggestions()
		label := parts[1]
		if n, err := strconv.Atoi(label); err == nil {
			if n < 1 || n > len(chips) {
				return false, fmt.Errorf("no suggestion %d", n)
			}
			label = chips[n-1].Label
		}
		if !chat.IsOpen() {
			chat.Open()
		}
		if !chat.SubmitSuggestion(label) {
			return false, fmt.Errorf("unknown suggestion: %s", label)
		}

	case "/view":
		view := r.widget.View()
		view.Session.Messages = nil
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return false, fmt.Errorf("failed to encode view: %w", err)
		}
		r.printf("%s\n", data)

	case "/help":
		r.printf("Available commands:\n")
		r.printf("  /open, /close, /toggle      - Show or hide the chat window\n")
		r.printf("  /sound                      - Toggle audio cues\n")
		r.printf("  /clear                      - Clear the conversation\n")
		r.printf("  /escape, /outside           - Simulate escape or an outside click\n")
		r.printf("  /scroll <y> <viewport> <doc> - Simulate a page scroll\n")
		r.printf("  /chips                      - List quick suggestions\n")
		r.printf("  /chip <number|label>        - Send a quick suggestion\n")
		r.printf("  /view                       - Print the widget state\n")
		r.printf("  /quit, /exit                - Exit\n")

	default:
		return false, fmt.Errorf("unknown command: %s (try /help)", parts[0])
	}
	return false, nil
}
