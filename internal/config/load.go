package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Resolved is the fully merged configuration with durations and sizes
// parsed into their native types.
type Resolved struct {
	ConfigPath        string
	WorkspaceID       string
	ModelID           string
	Timeout           time.Duration
	ConnectTimeout    time.Duration
	RetryCount        int
	Backoff           time.Duration
	BackoffFactor     float64
	PageSize          int
	StatusPollDelay   time.Duration
	UploadChunkSize   int64
	BatchSize         int
	AllowFileCreation bool
	Concurrency       string
	LogLevel          string
	Auth              AuthConfig
	Secrets           Secrets
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal and carry "did you mean?"
// suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the four-layer override chain:
// defaults -> config file -> environment variables -> CLI flags.
// Credential completeness is left to ValidateResolved, so commands that
// never authenticate work without secrets.
func Resolve(env EnvOverrides, cli CLIOverrides, logger *slog.Logger) (*Resolved, error) {
	if logger == nil {
		logger = slog.Default()
	}

	// 1. Config path: CLI > env > default
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	// 2. Config file, or defaults when absent
	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	// 3. Environment
	if env.WorkspaceID != "" {
		cfg.WorkspaceID = env.WorkspaceID
	}

	if env.ModelID != "" {
		cfg.ModelID = env.ModelID
	}

	// 4. CLI flags (nil = not specified)
	if cli.WorkspaceID != nil {
		cfg.WorkspaceID = *cli.WorkspaceID
	}

	if cli.ModelID != nil {
		cfg.ModelID = *cli.ModelID
	}

	if cli.AuthMethod != nil {
		cfg.Auth.Method = *cli.AuthMethod
	}

	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}

	// Overrides can introduce invalid values the file never had.
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	resolved, err := build(cfg, cfgPath, env.Secrets)
	if err != nil {
		return nil, err
	}

	logger.Debug("config resolved",
		slog.String("path", cfgPath),
		slog.String("workspace_id", resolved.WorkspaceID),
		slog.String("model_id", resolved.ModelID),
		slog.String("auth_method", resolved.Auth.Method),
	)

	return resolved, nil
}

// build converts a validated Config into a Resolved. Parse errors are
// impossible after Validate but still surface rather than panic.
func build(cfg *Config, path string, secrets Secrets) (*Resolved, error) {
	r := &Resolved{
		ConfigPath:        path,
		WorkspaceID:       cfg.WorkspaceID,
		ModelID:           cfg.ModelID,
		RetryCount:        cfg.RetryCount,
		BackoffFactor:     cfg.BackoffFactor,
		PageSize:          cfg.PageSize,
		BatchSize:         cfg.BatchSize,
		AllowFileCreation: cfg.AllowFileCreation,
		Concurrency:       cfg.Concurrency,
		LogLevel:          cfg.LogLevel,
		Auth:              cfg.Auth,
		Secrets:           secrets,
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"timeout", cfg.Timeout, &r.Timeout},
		{"connect_timeout", cfg.ConnectTimeout, &r.ConnectTimeout},
		{"backoff", cfg.Backoff, &r.Backoff},
		{"status_poll_delay", cfg.StatusPollDelay, &r.StatusPollDelay},
	}

	for _, d := range durations {
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.name, err)
		}

		*d.dst = v
	}

	size, err := ParseSize(cfg.UploadChunkSize)
	if err != nil {
		return nil, fmt.Errorf("upload_chunk_size: %w", err)
	}

	r.UploadChunkSize = size

	return r, nil
}
