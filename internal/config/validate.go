package config

import (
	"errors"
	"fmt"
	"time"
)

// Validation range constants.
const (
	maxRetryCount    = 10
	minBackoffFactor = 1.0
	minPageSize      = 1
	maxPageSize      = 5000
	minChunkBytes    = 1_000_000  // 1 MB
	maxChunkBytes    = 50_000_000 // 50 MB
	minBatchSize     = 1
	maxBatchSize     = 64
)

var validConcurrency = map[string]bool{
	"parallel":    true,
	"cooperative": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validAuthMethods = map[string]bool{
	AuthBasic:       true,
	AuthCertificate: true,
	AuthToken:       true,
	AuthOAuth:       true,
}

// Validate checks all configuration values and returns all errors found,
// so users can fix every issue in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateNetwork(cfg)...)
	errs = append(errs, validateTransfers(cfg)...)

	if !validConcurrency[cfg.Concurrency] {
		errs = append(errs, fmt.Errorf("concurrency: must be parallel or cooperative, got %q", cfg.Concurrency))
	}

	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level: must be one of debug, info, warn, error; got %q", cfg.LogLevel))
	}

	if !validAuthMethods[cfg.Auth.Method] {
		errs = append(errs, fmt.Errorf("auth.method: must be one of basic, certificate, token, oauth; got %q",
			cfg.Auth.Method))
	}

	return errors.Join(errs...)
}

func validateNetwork(cfg *Config) []error {
	var errs []error

	for _, d := range []struct{ name, value string }{
		{"timeout", cfg.Timeout},
		{"connect_timeout", cfg.ConnectTimeout},
		{"backoff", cfg.Backoff},
		{"status_poll_delay", cfg.StatusPollDelay},
	} {
		if err := validatePositiveDuration(d.name, d.value); err != nil {
			errs = append(errs, err)
		}
	}

	if cfg.RetryCount < 0 || cfg.RetryCount > maxRetryCount {
		errs = append(errs, fmt.Errorf("retry_count: must be between 0 and %d, got %d",
			maxRetryCount, cfg.RetryCount))
	}

	if cfg.BackoffFactor < minBackoffFactor {
		errs = append(errs, fmt.Errorf("backoff_factor: must be at least 1, got %g", cfg.BackoffFactor))
	}

	if cfg.PageSize < minPageSize || cfg.PageSize > maxPageSize {
		errs = append(errs, fmt.Errorf("page_size: must be between %d and %d, got %d",
			minPageSize, maxPageSize, cfg.PageSize))
	}

	return errs
}

func validateTransfers(cfg *Config) []error {
	var errs []error

	bytes, err := ParseSize(cfg.UploadChunkSize)

	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("upload_chunk_size: %w", err))
	case bytes < minChunkBytes || bytes > maxChunkBytes:
		errs = append(errs, fmt.Errorf("upload_chunk_size: must be between 1MB and 50MB, got %s",
			cfg.UploadChunkSize))
	}

	if cfg.BatchSize < minBatchSize || cfg.BatchSize > maxBatchSize {
		errs = append(errs, fmt.Errorf("batch_size: must be between %d and %d, got %d",
			minBatchSize, maxBatchSize, cfg.BatchSize))
	}

	return errs
}

func validatePositiveDuration(name, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q: %w", name, value, err)
	}

	if d <= 0 {
		return fmt.Errorf("%s: must be positive, got %s", name, value)
	}

	return nil
}

// ValidateResolved checks cross-field constraints on the fully resolved
// configuration. Unlike Validate, it sees secrets from the environment, so it
// can tell whether the selected auth method has everything it needs.
func ValidateResolved(r *Resolved) error {
	var errs []error

	a := r.Auth

	switch a.Method {
	case AuthBasic:
		if a.Email == "" {
			errs = append(errs, errors.New("auth.email: required for basic authentication"))
		}

		if r.Secrets.Password == "" {
			errs = append(errs, fmt.Errorf("%s: required for basic authentication", EnvPassword))
		}
	case AuthCertificate:
		if a.Certificate == "" {
			errs = append(errs, errors.New("auth.certificate: required for certificate authentication"))
		}

		if a.PrivateKey == "" {
			errs = append(errs, errors.New("auth.private_key: required for certificate authentication"))
		}
	case AuthToken:
		if r.Secrets.Token == "" {
			errs = append(errs, fmt.Errorf("%s: required for token authentication", EnvToken))
		}
	case AuthOAuth:
		if a.ClientID == "" {
			errs = append(errs, errors.New("auth.client_id: required for oauth authentication"))
		}

		if a.RedirectURI == "" {
			errs = append(errs, errors.New("auth.redirect_uri: required for oauth authentication"))
		}
	}

	return errors.Join(errs...)
}
