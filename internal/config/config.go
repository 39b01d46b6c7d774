package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds quotedesk's runtime settings.
type Config struct {
	APIBase       string
	UserAgent     string
	StoragePath   string
	LogFile       string
	LogLevel      string
	PollInterval  time.Duration
	BatchSize     int
	CreateTimeout time.Duration
	UpdateTimeout time.Duration
	SnapshotTTL   time.Duration
}

const (
	defaultConfigPath    = "~/.config/quotedesk/config.toml"
	defaultAPIBase       = "http://127.0.0.1:8080"
	defaultStoragePath   = "~/.local/share/quotedesk/pending.db"
	defaultLogFile       = "~/.local/share/quotedesk/quotedesk.log"
	defaultLogLevel      = "info"
	defaultPollInterval  = 5 * time.Second
	defaultBatchSize     = 10
	defaultCreateTimeout = 30 * time.Second
	defaultUpdateTimeout = 15 * time.Second
	defaultSnapshotTTL   = 24 * time.Hour
)

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		APIBase:       defaultAPIBase,
		StoragePath:   mustExpand(defaultStoragePath),
		LogFile:       mustExpand(defaultLogFile),
		LogLevel:      defaultLogLevel,
		PollInterval:  defaultPollInterval,
		BatchSize:     defaultBatchSize,
		CreateTimeout: defaultCreateTimeout,
		UpdateTimeout: defaultUpdateTimeout,
		SnapshotTTL:   defaultSnapshotTTL,
	}
}

// Load locates and parses the config file, falling back to defaults when
// the file or individual fields are missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		APIBase       string `toml:"api_base"`
		UserAgent     string `toml:"user_agent"`
		StoragePath   string `toml:"storage_path"`
		LogFile       string `toml:"log_file"`
		LogLevel      string `toml:"log_level"`
		PollSeconds   int    `toml:"poll_seconds"`
		BatchSize     int    `toml:"batch_size"`
		CreateTimeout string `toml:"create_timeout"`
		UpdateTimeout string `toml:"update_timeout"`
		SnapshotTTL   string `toml:"snapshot_ttl"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.APIBase); v != "" {
		cfg.APIBase = v
	}
	cfg.UserAgent = strings.TrimSpace(raw.UserAgent)
	if v := strings.TrimSpace(raw.StoragePath); v != "" {
		cfg.StoragePath = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.TrimSpace(raw.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if raw.PollSeconds > 0 {
		cfg.PollInterval = time.Duration(raw.PollSeconds) * time.Second
	}
	if raw.BatchSize > 0 {
		cfg.BatchSize = raw.BatchSize
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"create_timeout", raw.CreateTimeout, &cfg.CreateTimeout},
		{"update_timeout", raw.UpdateTimeout, &cfg.UpdateTimeout},
		{"snapshot_ttl", raw.SnapshotTTL, &cfg.SnapshotTTL},
	}
	for _, d := range durations {
		if strings.TrimSpace(d.raw) == "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("%s must be positive, got %s", d.key, d.raw)
		}
		*d.dst = parsed
	}

	return cfg, nil
}

// DefaultPath returns the expanded default config location.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
