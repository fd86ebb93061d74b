package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "SMARTNOTES_REPLY_DELAY", "SMARTNOTES_SESSION_TTL", "LOG_LEVEL", "SMARTNOTES_LOG_FILE"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != ":7521" {
		t.Fatalf("unexpected addr: %q", cfg.Addr())
	}
	if cfg.ReplyDelay != time.Second {
		t.Fatalf("unexpected reply delay: %v", cfg.ReplyDelay)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("unexpected session ttl: %v", cfg.SessionTTL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("unexpected log level: %v", cfg.LogLevel)
	}
}

func TestLoadFromTOMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "smartnotes.toml")
	content := []byte("port = \"9000\"\nreply_delay = \"250ms\"\nsession_ttl = \"5m\"\nlog_level = \"debug\"\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9000" || cfg.ReplyDelay != 250*time.Millisecond || cfg.SessionTTL != 5*time.Minute {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("unexpected log level: %v", cfg.LogLevel)
	}

	t.Setenv("PORT", "127.0.0.1:9100")
	t.Setenv("SMARTNOTES_REPLY_DELAY", "2s")
	cfg, err = Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr() != "127.0.0.1:9100" {
		t.Fatalf("env port should win, got %q", cfg.Addr())
	}
	if cfg.ReplyDelay != 2*time.Second {
		t.Fatalf("env reply delay should win, got %v", cfg.ReplyDelay)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad delay", "SMARTNOTES_REPLY_DELAY", "soon"},
		{"negative delay", "SMARTNOTES_REPLY_DELAY", "-1s"},
		{"zero ttl", "SMARTNOTES_SESSION_TTL", "0s"},
		{"bad level", "LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			if _, err := Load(""); err == nil {
				t.Fatalf("expected error for %s=%q", tt.key, tt.val)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
