package anaplan

import (
	"github.com/anaplan-sdk/anaplan-go/internal/api"
	"github.com/anaplan-sdk/anaplan-go/internal/auth"
	"github.com/anaplan-sdk/anaplan-go/internal/payload"
)

// Failure kinds. Every error returned by a Client matches one of these with
// errors.Is.
var (
	ErrInvalidCredentials   = api.ErrInvalidCredentials
	ErrInvalidPrivateKey    = api.ErrInvalidPrivateKey
	ErrAuthenticationFailed = api.ErrAuthenticationFailed
	ErrInvalidIdentifier    = api.ErrInvalidIdentifier
	ErrRateLimitExceeded    = api.ErrRateLimitExceeded
	ErrTimeout              = api.ErrTimeout
	ErrRemote               = api.ErrRemote
	ErrActionFailed         = api.ErrActionFailed
	ErrGeneric              = api.ErrGeneric
	ErrInvalidPayload       = payload.ErrInvalidPayload
)

type (
	// RemoteError carries the status and body of a failed response.
	RemoteError = api.RemoteError
	// AuthError carries the status and body of a rejected authentication.
	AuthError = api.AuthError
	// ActionError reports a task that completed with errors.
	ActionError = api.ActionError
	// Timeouts sets individual connect, read, write and pool limits.
	Timeouts = api.Timeouts
	// InsertionResult is the merged outcome of list item insertions.
	InsertionResult = payload.InsertionResult
)

// Credentials select the authentication strategy.
type Credentials = auth.Credentials

type (
	BasicCredentials         = auth.BasicCredentials
	CertCredentials          = auth.CertCredentials
	StaticTokenCredentials   = auth.StaticTokenCredentials
	OAuthRefreshCredentials  = auth.OAuthRefreshCredentials
	OAuthAuthCodeCredentials = auth.OAuthAuthCodeCredentials
	PromptFunc               = auth.PromptFunc
)

// LoopbackPrompt serves redirectURI on the local machine during an
// interactive OAuth login and hands the authorization URL to open.
var LoopbackPrompt = auth.LoopbackPrompt
