package config

import (
	"fmt"
	"io"
)

// RenderEffective writes the resolved configuration as an annotated summary
// to w. Secrets are reported only as set or unset.
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (%s)\n\n", r.ConfigPath)

	ew.printf("workspace_id        = %q\n", r.WorkspaceID)
	ew.printf("model_id            = %q\n", r.ModelID)
	ew.printf("timeout             = %q\n", r.Timeout)
	ew.printf("connect_timeout     = %q\n", r.ConnectTimeout)
	ew.printf("retry_count         = %d\n", r.RetryCount)
	ew.printf("backoff             = %q\n", r.Backoff)
	ew.printf("backoff_factor      = %g\n", r.BackoffFactor)
	ew.printf("page_size           = %d\n", r.PageSize)
	ew.printf("status_poll_delay   = %q\n", r.StatusPollDelay)
	ew.printf("upload_chunk_size   = %q\n", FormatSize(r.UploadChunkSize))
	ew.printf("batch_size          = %d\n", r.BatchSize)
	ew.printf("allow_file_creation = %t\n", r.AllowFileCreation)
	ew.printf("concurrency         = %q\n", r.Concurrency)
	ew.printf("log_level           = %q\n", r.LogLevel)
	ew.printf("\n")

	renderAuthSection(ew, r)

	return ew.err
}

// errWriter wraps an io.Writer and captures the first write error.
// Subsequent writes after an error are no-ops.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderAuthSection(ew *errWriter, r *Resolved) {
	a := r.Auth

	ew.printf("[auth]\n")
	ew.printf("  method        = %q\n", a.Method)

	switch a.Method {
	case AuthBasic:
		ew.printf("  email         = %q\n", a.Email)
		ew.printf("  password      = %s\n", setOrUnset(r.Secrets.Password))
	case AuthCertificate:
		ew.printf("  certificate   = %q\n", a.Certificate)
		ew.printf("  private_key   = %q\n", a.PrivateKey)
		ew.printf("  key_password  = %s\n", setOrUnset(r.Secrets.PrivateKeyPassword))
	case AuthToken:
		ew.printf("  token         = %s\n", setOrUnset(r.Secrets.Token))
	case AuthOAuth:
		ew.printf("  client_id     = %q\n", a.ClientID)
		ew.printf("  redirect_uri  = %q\n", a.RedirectURI)
		ew.printf("  client_secret = %s\n", setOrUnset(r.Secrets.ClientSecret))
		ew.printf("  persist_token = %t\n", a.PersistToken)
	}
}

func setOrUnset(secret string) string {
	if secret == "" {
		return "(unset)"
	}

	return "(set)"
}
