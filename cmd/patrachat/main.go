package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"PatraChat/internal/audio"
	"PatraChat/internal/chatbot"
	"PatraChat/internal/client"
	"PatraChat/internal/clock"
	"PatraChat/internal/config"
	"PatraChat/internal/intent"
	"PatraChat/internal/profile"
	"PatraChat/internal/server"
	"PatraChat/internal/session"
	"PatraChat/internal/telemetry"
	"PatraChat/internal/terminal"
)

// app carries what the persistent pre-run sets up for every command.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	tracer  trace.Tracer
	meter   metric.Meter
	closers []func()
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "patrachat",
		Short: "Patra AI portfolio chat assistant",
		Long: `patrachat answers questions about a portfolio profile with canned,
keyword-matched replies.

Run without arguments to start the interactive chat.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runREPL(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.ProfileBackend, "profile-backend", a.cfg.ProfileBackend, "Profile source (builtin|yaml|sqlite|postgres)")
	flags.StringVar(&a.cfg.ProfilePath, "profile", a.cfg.ProfilePath, "Profile YAML file, SQLite file or Postgres DSN")
	flags.StringVar(&a.cfg.AssistantName, "assistant-name", a.cfg.AssistantName, "Name used in the greeting")
	flags.DurationVar(&a.cfg.ReplyLatency, "reply-latency", a.cfg.ReplyLatency, "Delay before the assistant replies")
	flags.DurationVar(&a.cfg.RevealDelay, "reveal-delay", a.cfg.RevealDelay, "Scroll inactivity before the trigger reappears")
	flags.StringVar(&a.cfg.ReplyPolicy, "reply-policy", a.cfg.ReplyPolicy, "Submissions while typing (supersede|queue)")
	flags.BoolVar(&a.cfg.CancelReplyOnClose, "cancel-reply-on-close", a.cfg.CancelReplyOnClose, "Drop the pending reply when the chat is closed")
	flags.BoolVar(&a.cfg.KeepVisibleWhileOpen, "keep-visible-while-open", a.cfg.KeepVisibleWhileOpen, "Keep the trigger visible while the chat is open")
	flags.BoolVar(&a.cfg.SoundEnabled, "sound", a.cfg.SoundEnabled, "Play audio cues")
	flags.StringVar(&a.cfg.LogDir, "log-dir", a.cfg.LogDir, "Directory for log, trace and metric files")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "Log level (debug|info|warn|error)")
	flags.BoolVar(&a.cfg.LogStderr, "log-stderr", a.cfg.LogStderr, "Also write logs to stderr")
	flags.BoolVar(&a.cfg.Telemetry, "telemetry", a.cfg.Telemetry, "Export traces and metrics to the log directory")

	root.AddCommand(newREPLCmd(a), newServeCmd(a), newSeedCmd(a), newSendCmd(a))
	return root
}

func newREPLCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Chat with the assistant in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runREPL(cmd)
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve chat widgets over HTTP and WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runServe(cmd)
		},
	}
	cmd.Flags().StringVar(&a.cfg.Addr, "addr", a.cfg.Addr, "Listen address")
	cmd.Flags().StringSliceVar(&a.cfg.AllowedOrigins, "allowed-origins", a.cfg.AllowedOrigins, "CORS allowed origins")
	cmd.Flags().Float64Var(&a.cfg.SubmitRate, "submit-rate", a.cfg.SubmitRate, "Messages per second allowed per session")
	cmd.Flags().IntVar(&a.cfg.SubmitBurst, "submit-burst", a.cfg.SubmitBurst, "Message burst allowed per session")
	return cmd
}

func newSeedCmd(a *app) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write a profile into the SQLite or Postgres profile database",
		Long: `seed replaces the profile stored in the database named by --profile.
The profile is read from --from, or the built-in sample when omitted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSeed(cmd, from)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "YAML profile to seed from")
	return cmd
}

func newSendCmd(a *app) *cobra.Command {
	var serverURL string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Ask a running server one question and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSend(cmd, serverURL, strings.Join(args, " "), timeout)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "Server base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "How long to wait for the reply")
	return cmd
}

func (a *app) init(ctx context.Context) error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	logger, logFile, err := telemetry.InitLogger(telemetry.LoggerOptions{
		Dir:    a.cfg.LogDir,
		Level:  a.cfg.LogLevel,
		Stderr: a.cfg.LogStderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.logger = logger
	a.closers = append(a.closers, func() { logFile.Close() })

	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx, a.cfg.LogDir, a.cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.tracer, a.meter = tracer, meter
	a.closers = append(a.closers, cleanup)
	return nil
}

// close runs closers in reverse so telemetry shuts down before the log file.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) loadProfile(ctx context.Context) (profile.Source, error) {
	switch a.cfg.ProfileBackend {
	case config.ProfileYAML:
		return profile.LoadYAML(a.cfg.ProfilePath)
	case config.ProfileSQLite:
		return profile.OpenSQL(ctx, profile.DriverSQLite, a.cfg.ProfilePath)
	case config.ProfilePostgres:
		return profile.OpenSQL(ctx, profile.DriverPostgres, a.cfg.ProfilePath)
	default:
		return profile.NewStatic(profile.Builtin()), nil
	}
}

func (a *app) newWidgetFactory(ctx context.Context, player audio.Player) (func() *chatbot.Widget, error) {
	src, err := a.loadProfile(ctx)
	if err != nil {
		return nil, err
	}
	a.logger.Info("profile loaded", "backend", a.cfg.ProfileBackend, "name", src.Snapshot().About.Name)

	resolver := intent.NewResolver(src)
	deps := chatbot.Deps{
		Clock:  clock.Real(),
		Logger: a.logger,
		Tracer: a.tracer,
		Meter:  a.meter,
		Player: player,
	}
	return func() *chatbot.Widget {
		return chatbot.NewWidget(a.cfg, resolver, deps)
	}, nil
}

func (a *app) runREPL(cmd *cobra.Command) error {
	factory, err := a.newWidgetFactory(cmd.Context(), audio.NewBell(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	w := factory()
	defer w.Stop()

	return terminal.New(w, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger).Run(cmd.Context())
}

func (a *app) runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	factory, err := a.newWidgetFactory(ctx, audio.Nop{})
	if err != nil {
		return err
	}
	return server.New(a.cfg, factory, a.logger).ListenAndServe(ctx)
}

func (a *app) runSeed(cmd *cobra.Command, from string) error {
	var driver string
	switch a.cfg.ProfileBackend {
	case config.ProfileSQLite:
		driver = profile.DriverSQLite
	case config.ProfilePostgres:
		driver = profile.DriverPostgres
	default:
		return fmt.Errorf("seed needs --profile-backend sqlite or postgres, got %s", a.cfg.ProfileBackend)
	}

	p := profile.Builtin()
	if from != "" {
		src, err := profile.LoadYAML(from)
		if err != nil {
			return err
		}
		p = src.Snapshot()
	}

	if err := profile.SeedDSN(cmd.Context(), driver, a.cfg.ProfilePath, p); err != nil {
		return err
	}
	a.logger.Info("profile seeded", "backend", a.cfg.ProfileBackend, "name", p.About.Name)
	fmt.Fprintf(cmd.OutOrStdout(), "Seeded profile %q\n", p.About.Name)
	return nil
}

func (a *app) runSend(cmd *cobra.Command, serverURL, text string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	c := client.NewHTTPClient(serverURL, a.logger)
	sess, err := c.Create(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer c.Delete(context.Background(), sess.ID)

	stream, err := client.Dial(ctx, serverURL, sess.ID, a.logger)
	if err != nil {
		return err
	}
	defer stream.Close()

	initial, err := stream.Next()
	if err != nil {
		return err
	}
	before := initial.Session.Messages[len(initial.Session.Messages)-1].ID

	if _, err := c.Do(ctx, sess.ID, client.ActionOpen); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	if _, err := c.Send(ctx, sess.ID, text); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	view, err := stream.Until(ctx, func(v chatbot.ViewModel) bool {
		msgs := v.Session.Messages
		if v.Session.IsTyping || len(msgs) == 0 {
			return false
		}
		last := msgs[len(msgs)-1]
		return last.Sender == session.SenderAssistant && last.ID != before
	})
	if err != nil {
		return fmt.Errorf("wait for reply: %w", err)
	}

	msgs := view.Session.Messages
	styles := terminal.NewStyles(lipgloss.NewRenderer(cmd.OutOrStdout()))
	fmt.Fprintln(cmd.OutOrStdout(), terminal.Flatten(msgs[len(msgs)-1].Text, styles.Bold))
	return nil
}

func execute(args []string, in io.Reader, out io.Writer) error {
	a := &app{cfg: config.Default()}
	if err := config.LoadEnv(&a.cfg); err != nil {
		return err
	}

	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	return root.ExecuteContext(context.Background())
}

func main() {
	if err := execute(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
