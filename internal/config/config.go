package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"smartnotes/internal/assistant"
	"smartnotes/internal/notes"
)

const defaultPort = "7521"

// Config is the resolved runtime configuration.
type Config struct {
	Port       string
	ReplyDelay time.Duration
	SessionTTL time.Duration
	LogLevel   slog.Level
	LogFile    string
}

// fileConfig is the TOML layout. Durations use time.ParseDuration syntax.
type fileConfig struct {
	Port       string `toml:"port"`
	ReplyDelay string `toml:"reply_delay"`
	SessionTTL string `toml:"session_ttl"`
	LogLevel   string `toml:"log_level"`
	LogFile    string `toml:"log_file"`
}

func Default() Config {
	return Config{
		Port:       defaultPort,
		ReplyDelay: assistant.DefaultDelay,
		SessionTTL: notes.DefaultSessionTTL,
		LogLevel:   slog.LevelInfo,
	}
}

// Load resolves configuration from defaults, then the TOML file at path (if
// any), then environment variables.
func Load(path string) (Config, error) {
	raw := fileConfig{}
	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	raw.Port = getEnv("PORT", raw.Port)
	raw.ReplyDelay = getEnv("SMARTNOTES_REPLY_DELAY", raw.ReplyDelay)
	raw.SessionTTL = getEnv("SMARTNOTES_SESSION_TTL", raw.SessionTTL)
	raw.LogLevel = getEnv("LOG_LEVEL", raw.LogLevel)
	raw.LogFile = getEnv("SMARTNOTES_LOG_FILE", raw.LogFile)

	return raw.resolve()
}

func (f fileConfig) resolve() (Config, error) {
	cfg := Default()
	if p := strings.TrimSpace(f.Port); p != "" {
		cfg.Port = p
	}
	if f.ReplyDelay != "" {
		d, err := time.ParseDuration(f.ReplyDelay)
		if err != nil {
			return Config{}, fmt.Errorf("reply_delay: %w", err)
		}
		if d < 0 {
			return Config{}, errors.New("reply_delay: must not be negative")
		}
		cfg.ReplyDelay = d
	}
	if f.SessionTTL != "" {
		d, err := time.ParseDuration(f.SessionTTL)
		if err != nil {
			return Config{}, fmt.Errorf("session_ttl: %w", err)
		}
		if d <= 0 {
			return Config{}, errors.New("session_ttl: must be positive")
		}
		cfg.SessionTTL = d
	}
	if f.LogLevel != "" {
		lvl, err := ParseLevel(f.LogLevel)
		if err != nil {
			return Config{}, err
		}
		cfg.LogLevel = lvl
	}
	cfg.LogFile = strings.TrimSpace(f.LogFile)
	return cfg, nil
}

// ParseLevel accepts debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log_level: invalid level %q (expected debug|info|warn|error)", s)
	}
	return lvl, nil
}

// NewLogger builds the text logger every command uses.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: c.LogLevel,
	}))
}

// Addr is the listen address for the web host.
func (c Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
