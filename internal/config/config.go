package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProfileBuiltin  = "builtin"
	ProfileYAML     = "yaml"
	ProfileSQLite   = "sqlite"
	ProfilePostgres = "postgres"
)

// Reply policies decide what a submission does while a reply is in flight.
const (
	PolicySupersede = "supersede" // re-key the pending reply to the newest input
	PolicyQueue     = "queue"     // answer every input in order, one timer at a time
)

// Config holds application configuration
type Config struct {
	AssistantName string

	ProfileBackend string
	ProfilePath    string // YAML file, SQLite file or Postgres DSN

	ReplyLatency  time.Duration
	RevealDelay   time.Duration
	FrameInterval time.Duration
	RingRadius    float64

	ReplyPolicy          string
	CancelReplyOnClose   bool
	KeepVisibleWhileOpen bool
	SoundEnabled         bool

	LogDir    string
	LogLevel  string
	LogStderr bool
	Telemetry bool

	// HTTP presentation boundary
	Addr           string
	AllowedOrigins []string
	SubmitRate     float64 // submissions per second per widget
	SubmitBurst    int
}

// Default returns the configuration the widget ships with.
func Default() Config {
	return Config{
		AssistantName:        "Patra AI",
		ProfileBackend:       ProfileBuiltin,
		ReplyLatency:         1200 * time.Millisecond,
		RevealDelay:          700 * time.Millisecond,
		FrameInterval:        16 * time.Millisecond,
		RingRadius:           26,
		ReplyPolicy:          PolicySupersede,
		KeepVisibleWhileOpen: true,
		SoundEnabled:         true,
		LogDir:               "logs",
		LogLevel:             "info",
		Addr:                 ":8080",
		AllowedOrigins:       []string{"*"},
		SubmitRate:           2,
		SubmitBurst:          5,
	}
}

// LoadEnv reads an optional .env file and applies PATRA_* overrides to cfg.
func LoadEnv(cfg *Config, files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("PATRA_ASSISTANT_NAME", &cfg.AssistantName)
	str("PATRA_PROFILE_BACKEND", &cfg.ProfileBackend)
	str("PATRA_PROFILE_PATH", &cfg.ProfilePath)
	str("PATRA_REPLY_POLICY", &cfg.ReplyPolicy)
	str("PATRA_LOG_DIR", &cfg.LogDir)
	str("PATRA_LOG_LEVEL", &cfg.LogLevel)
	str("PATRA_ADDR", &cfg.Addr)
	duration("PATRA_REPLY_LATENCY", &cfg.ReplyLatency)
	duration("PATRA_REVEAL_DELAY", &cfg.RevealDelay)
	boolean("PATRA_CANCEL_REPLY_ON_CLOSE", &cfg.CancelReplyOnClose)
	boolean("PATRA_KEEP_VISIBLE_WHILE_OPEN", &cfg.KeepVisibleWhileOpen)
	boolean("PATRA_SOUND", &cfg.SoundEnabled)
	boolean("PATRA_TELEMETRY", &cfg.Telemetry)
	if v := os.Getenv("PATRA_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = strings.Split(v, ",")
	}

	return errors.Join(errs...)
}

// Validate checks values a flag or env var could have broken.
func (c Config) Validate() error {
	switch c.ProfileBackend {
	case ProfileBuiltin:
	case ProfileYAML, ProfileSQLite, ProfilePostgres:
		if c.ProfilePath == "" {
			return fmt.Errorf("profile backend %q requires a profile path", c.ProfileBackend)
		}
	default:
		return fmt.Errorf("unknown profile backend: %s", c.ProfileBackend)
	}

	switch c.ReplyPolicy {
	case PolicySupersede, PolicyQueue:
	default:
		return fmt.Errorf("unknown reply policy: %s", c.ReplyPolicy)
	}

	if c.ReplyLatency < 0 || c.RevealDelay < 0 {
		return errors.New("latencies must not be negative")
	}
	if c.RingRadius <= 0 {
		return errors.New("ring radius must be positive")
	}
	return nil
}
