// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for anaplan-go. Values resolve through a
// four-layer override chain: defaults -> config file -> environment -> CLI
// flags.
package config

// Config is the top-level configuration structure parsed from a TOML file.
// Durations and sizes stay strings here and are parsed during resolution, so
// the file keeps the user's own spelling ("25MB", "1m30s").
type Config struct {
	WorkspaceID       string     `toml:"workspace_id"`
	ModelID           string     `toml:"model_id"`
	Timeout           string     `toml:"timeout"`
	ConnectTimeout    string     `toml:"connect_timeout"`
	RetryCount        int        `toml:"retry_count"`
	Backoff           string     `toml:"backoff"`
	BackoffFactor     float64    `toml:"backoff_factor"`
	PageSize          int        `toml:"page_size"`
	StatusPollDelay   string     `toml:"status_poll_delay"`
	UploadChunkSize   string     `toml:"upload_chunk_size"`
	BatchSize         int        `toml:"batch_size"`
	AllowFileCreation bool       `toml:"allow_file_creation"`
	Concurrency       string     `toml:"concurrency"`
	LogLevel          string     `toml:"log_level"`
	Auth              AuthConfig `toml:"auth"`
}

// AuthConfig selects and describes the credentials. Secrets never live in
// the file; they come from the environment or the OS keyring.
type AuthConfig struct {
	Method       string `toml:"method" json:"method"`
	Email        string `toml:"email" json:"email"`
	Certificate  string `toml:"certificate" json:"certificate"`
	PrivateKey   string `toml:"private_key" json:"private_key"`
	ClientID     string `toml:"client_id" json:"client_id"`
	RedirectURI  string `toml:"redirect_uri" json:"redirect_uri"`
	PersistToken bool   `toml:"persist_token" json:"persist_token"`
}

// Authentication methods.
const (
	AuthBasic       = "basic"
	AuthCertificate = "certificate"
	AuthToken       = "token"
	AuthOAuth       = "oauth"
)

// CLIOverrides holds values from CLI flags that override config file and
// environment settings. Pointer fields distinguish "not specified" (nil)
// from "explicitly set to the zero value".
type CLIOverrides struct {
	ConfigPath  string  // --config flag (empty = use default)
	WorkspaceID *string // --workspace
	ModelID     *string // --model
	AuthMethod  *string // --auth
	LogLevel    string  // derived from --verbose / --debug / --quiet
}
