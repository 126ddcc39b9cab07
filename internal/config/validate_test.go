package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero timeout", func(c *Config) { c.Timeout = "0s" }, "timeout: must be positive"},
		{"bad duration", func(c *Config) { c.Backoff = "soon" }, "backoff: invalid duration"},
		{"negative retries", func(c *Config) { c.RetryCount = -1 }, "retry_count"},
		{"too many retries", func(c *Config) { c.RetryCount = 11 }, "retry_count"},
		{"shrinking backoff", func(c *Config) { c.BackoffFactor = 0.5 }, "backoff_factor"},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, "page_size"},
		{"page size too big", func(c *Config) { c.PageSize = 5001 }, "page_size"},
		{"chunk too small", func(c *Config) { c.UploadChunkSize = "500KB" }, "upload_chunk_size"},
		{"chunk too big", func(c *Config) { c.UploadChunkSize = "51MB" }, "upload_chunk_size"},
		{"chunk unparseable", func(c *Config) { c.UploadChunkSize = "lots" }, "upload_chunk_size"},
		{"zero batch", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"huge batch", func(c *Config) { c.BatchSize = 65 }, "batch_size"},
		{"unknown concurrency", func(c *Config) { c.Concurrency = "threads" }, "concurrency"},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"unknown auth", func(c *Config) { c.Auth.Method = "saml" }, "auth.method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_BoundariesAccepted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RetryCount = 0
	cfg.BackoffFactor = 1
	cfg.PageSize = 1
	cfg.UploadChunkSize = "1MB"
	cfg.BatchSize = 64
	cfg.Concurrency = "cooperative"

	assert.NoError(t, Validate(cfg))

	cfg.PageSize = 5000
	cfg.UploadChunkSize = "50MB"
	cfg.RetryCount = 10

	assert.NoError(t, Validate(cfg))
}

func TestValidate_AccumulatesErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PageSize = 0
	cfg.BatchSize = 0
	cfg.LogLevel = "loud"

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page_size")
	assert.Contains(t, err.Error(), "batch_size")
	assert.Contains(t, err.Error(), "log_level")
}

func TestValidateResolved_AuthMethods(t *testing.T) {
	tests := []struct {
		name    string
		auth    AuthConfig
		secrets Secrets
		wantErr []string
	}{
		{
			name:    "basic complete",
			auth:    AuthConfig{Method: AuthBasic, Email: "a@example.com"},
			secrets: Secrets{Password: "pw"},
		},
		{
			name:    "basic missing both",
			auth:    AuthConfig{Method: AuthBasic},
			wantErr: []string{"auth.email", EnvPassword},
		},
		{
			name: "certificate complete",
			auth: AuthConfig{Method: AuthCertificate, Certificate: "cert.pem", PrivateKey: "key.pem"},
		},
		{
			name:    "certificate missing key",
			auth:    AuthConfig{Method: AuthCertificate, Certificate: "cert.pem"},
			wantErr: []string{"auth.private_key"},
		},
		{
			name:    "token missing",
			auth:    AuthConfig{Method: AuthToken},
			wantErr: []string{EnvToken},
		},
		{
			name:    "token present",
			auth:    AuthConfig{Method: AuthToken},
			secrets: Secrets{Token: "tok"},
		},
		{
			name:    "oauth missing client",
			auth:    AuthConfig{Method: AuthOAuth, RedirectURI: "http://localhost/cb"},
			wantErr: []string{"auth.client_id"},
		},
		{
			name: "oauth complete without secret",
			auth: AuthConfig{Method: AuthOAuth, ClientID: "cid", RedirectURI: "http://localhost/cb"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateResolved(&Resolved{Auth: tt.auth, Secrets: tt.secrets})
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)

			for _, want := range tt.wantErr {
				assert.Contains(t, err.Error(), want)
			}
		})
	}
}
