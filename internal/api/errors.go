// Package api provides the HTTP service for the Anaplan APIs with retry,
// rate-limit backoff, pagination, task polling and error classification.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Sentinel errors forming the closed failure taxonomy.
// Use errors.Is(err, api.ErrInvalidIdentifier) to check.
var (
	ErrInvalidCredentials   = errors.New("anaplan: invalid credentials")
	ErrInvalidPrivateKey    = fmt.Errorf("anaplan: invalid private key: %w", ErrInvalidCredentials)
	ErrAuthenticationFailed = errors.New("anaplan: authentication failed")
	ErrInvalidIdentifier    = errors.New("anaplan: invalid identifier")
	ErrRateLimitExceeded    = errors.New("anaplan: rate limit exceeded")
	ErrTimeout              = errors.New("anaplan: request timed out")
	ErrRemote               = errors.New("anaplan: remote error")
	ErrActionFailed         = errors.New("anaplan: action completed with errors")
	ErrGeneric              = errors.New("anaplan: transport error")
)

// RemoteError carries the status code and body of a failed response.
// It unwraps to ErrInvalidIdentifier for 404 and ErrRemote otherwise.
type RemoteError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("anaplan: %s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

func (e *RemoteError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrInvalidIdentifier
	}

	return ErrRemote
}

// AuthError is returned when a token refresh is rejected.
// 401 unwraps to ErrInvalidCredentials, everything else to ErrAuthenticationFailed.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("anaplan: authentication failed: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *AuthError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrInvalidCredentials
	}

	return ErrAuthenticationFailed
}

// ActionError reports a task that reached COMPLETE with successful=false.
type ActionError struct {
	ActionID int64
	TaskID   string
	Details  []map[string]any
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("anaplan: task %q of action %d completed with errors", e.TaskID, e.ActionID)
}

func (e *ActionError) Unwrap() error {
	return ErrActionFailed
}

// isTimeout reports whether a transport error is a connect/read/write timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

// isAuthFailure reports whether the auth transport already classified err.
// These are never retried.
func isAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrAuthenticationFailed)
}
