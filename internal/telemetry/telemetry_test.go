package telemetry

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}

func TestInitLoggerWritesRotatingFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	dir := t.TempDir()
	logger, closer, err := InitLogger(LoggerOptions{Dir: dir, Level: "info"})
	require.NoError(t, err)

	logger.Info("hello", "component", "test")
	logger.Debug("hidden")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(filepath.Join(dir, "patrachat.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestInitLoggerBadLevel(t *testing.T) {
	_, _, err := InitLogger(LoggerOptions{Dir: t.TempDir(), Level: "nope"})
	assert.Error(t, err)
}

func TestInitTelemetryDisabled(t *testing.T) {
	dir := t.TempDir()
	tracer, meter, cleanup, err := InitTelemetry(context.Background(), dir, false)
	require.NoError(t, err)
	require.NotNil(t, tracer)
	require.NotNil(t, meter)
	cleanup()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInitTelemetryEnabled(t *testing.T) {
	dir := t.TempDir()
	tracer, meter, cleanup, err := InitTelemetry(context.Background(), dir, true)
	require.NoError(t, err)

	_, span := tracer.Start(context.Background(), "test.span")
	span.End()
	counter, err := meter.Int64Counter("test.counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	cleanup()

	data, err := os.ReadFile(filepath.Join(dir, "patrachat_traces.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "test.span")
}
