package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/moorebrett0/mochi/internal/config"
	"github.com/moorebrett0/mochi/internal/persona"
)

func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"MOCHI_LOG_LEVEL", "MOCHI_PERSONA", "MOCHI_LISTEN", "AI_PROVIDER", "DISCORD_BOT_TOKEN"} {
		t.Setenv(k, "")
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "mochi.yaml")
	if err := os.WriteFile(path, []byte("log_level: loud\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := run(context.Background(), options{configPath: path})
	if err == nil || !strings.Contains(err.Error(), "loading config") {
		t.Fatalf("run = %v, want a config error", err)
	}
}

func TestRunRejectsBadLogLevelFlag(t *testing.T) {
	cleanEnv(t)
	t.Chdir(t.TempDir())

	err := run(context.Background(), options{configPath: "missing.yaml", logLevel: "trace"})
	if err == nil || !strings.Contains(err.Error(), "invalid log level") {
		t.Fatalf("run = %v, want a log level error", err)
	}
}

func TestInitAsksForPersona(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "mochi.yaml")

	var out strings.Builder
	if err := runInit(strings.NewReader("garfield\n2\n"), &out, path, "", ":9100", false); err != nil {
		t.Fatalf("runInit: %v", err)
	}
	if !strings.Contains(out.String(), "pick a number") {
		t.Fatalf("bad answer not re-prompted:\n%s", out.String())
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Persona != persona.OrderedIDs[1] || cfg.Server.Listen != ":9100" {
		t.Fatalf("cfg persona=%q listen=%q", cfg.Persona, cfg.Server.Listen)
	}
}

func TestInitKeepsExistingConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mochi.yaml")
	if err := os.WriteFile(path, []byte("persona: rick\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := runInit(strings.NewReader(""), io.Discard, path, "mochi", "", false)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("runInit = %v, want an exists error", err)
	}
	if err := runInit(strings.NewReader(""), io.Discard, path, "mochi", "", true); err != nil {
		t.Fatalf("runInit --force: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "persona: mochi") {
		t.Fatalf("config not overwritten:\n%s", data)
	}
}

func TestInitWithoutAnswer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mochi.yaml")
	if err := runInit(strings.NewReader(""), io.Discard, path, "", "", false); err == nil {
		t.Fatal("init without a persona should fail")
	}
	if _, err := os.Stat(path); err == nil {
		t.Fatal("no file should be written")
	}
}
