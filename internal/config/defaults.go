package config

// Default values for configuration options. These are "layer 0" of the
// override chain and match the client library's own defaults.
const (
	defaultTimeout         = "30s"
	defaultConnectTimeout  = "10s"
	defaultRetryCount      = 2
	defaultBackoff         = "1s"
	defaultBackoffFactor   = 2.0
	defaultPageSize        = 5000
	defaultStatusPollDelay = "1s"
	defaultUploadChunkSize = "25MB"
	defaultBatchSize       = 4
	defaultConcurrency     = "parallel"
	defaultLogLevel        = "info"
	defaultAuthMethod      = AuthBasic
	defaultRedirectURI     = "http://localhost:8765/callback"
)

// DefaultConfig returns a Config populated with all default values.
// It is the starting point for TOML decoding, so unset fields keep their
// defaults, and the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Timeout:         defaultTimeout,
		ConnectTimeout:  defaultConnectTimeout,
		RetryCount:      defaultRetryCount,
		Backoff:         defaultBackoff,
		BackoffFactor:   defaultBackoffFactor,
		PageSize:        defaultPageSize,
		StatusPollDelay: defaultStatusPollDelay,
		UploadChunkSize: defaultUploadChunkSize,
		BatchSize:       defaultBatchSize,
		Concurrency:     defaultConcurrency,
		LogLevel:        defaultLogLevel,
		Auth: AuthConfig{
			Method:      defaultAuthMethod,
			RedirectURI: defaultRedirectURI,
		},
	}
}
