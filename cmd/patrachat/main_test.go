package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PatraChat/internal/chatbot"
	"PatraChat/internal/config"
	"PatraChat/internal/intent"
	"PatraChat/internal/profile"
	"PatraChat/internal/server"
)

func TestSeedThenREPL(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "profile.db")
	logs := filepath.Join(dir, "logs")

	var out bytes.Buffer
	err := execute([]string{"seed", "--profile-backend", "sqlite", "--profile", db, "--log-dir", logs},
		strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `Seeded profile "Amit Kumar Patra"`)

	out.Reset()
	err = execute([]string{"repl", "--profile-backend", "sqlite", "--profile", db, "--log-dir", logs, "--sound=false"},
		strings.NewReader("/chips\n/quit\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Patra AI")
	assert.Contains(t, out.String(), "1. Projects")
	assert.Contains(t, out.String(), "Goodbye!")

	data, err := os.ReadFile(filepath.Join(logs, "patrachat.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "profile loaded")
}

func TestSeedFromYAML(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(yml, []byte("about:\n  name: Sam Doe\n"), 0o600))

	var out bytes.Buffer
	err := execute([]string{"seed", "--profile-backend", "sqlite", "--profile", filepath.Join(dir, "p.db"),
		"--from", yml, "--log-dir", filepath.Join(dir, "logs")}, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"Sam Doe"`)
}

func TestSeedRequiresSQLBackend(t *testing.T) {
	err := execute([]string{"seed", "--log-dir", t.TempDir()}, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorContains(t, err, "seed needs --profile-backend sqlite or postgres")
}

func TestInvalidConfigRejected(t *testing.T) {
	err := execute([]string{"repl", "--reply-policy", "drop", "--log-dir", t.TempDir()}, strings.NewReader(""), &bytes.Buffer{})
	assert.ErrorContains(t, err, "unknown reply policy")
}

func TestSendAgainstServer(t *testing.T) {
	cfg := config.Default()
	cfg.ReplyLatency = 10 * time.Millisecond
	cfg.SoundEnabled = false
	resolver := intent.NewResolver(profile.NewStatic(profile.Builtin()))
	srv := server.New(cfg, func() *chatbot.Widget {
		return chatbot.NewWidget(cfg, resolver, chatbot.Deps{})
	}, nil)
	ts := httptest.NewServer(srv.Handler())
	defer func() {
		srv.Close()
		ts.Close()
	}()

	var out bytes.Buffer
	err := execute([]string{"send", "--server", ts.URL, "--log-dir", t.TempDir(), "what", "are", "your", "skills?"},
		strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Frontend")
	assert.NotContains(t, out.String(), "<br/>")

	require.Eventually(t, func() bool { return srv.Registry().Len() == 0 }, time.Second, 10*time.Millisecond,
		"send deletes its session")
}
