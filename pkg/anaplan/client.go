// Package anaplan is a client for the Anaplan integration, transactional,
// ALM, audit, SCIM and CloudWorks APIs.
//
// A Client authenticates every request through one of the supported
// credential kinds, retries transient failures, paginates listings and
// moves file content in compressed chunks:
//
//	c, err := anaplan.New(ctx, anaplan.Options{
//		WorkspaceID: "8a8b8c8d8e8f8g8i",
//		ModelID:     "ABCD0123456789",
//		Credentials: anaplan.BasicCredentials{Email: "admin@example.com", Password: pw},
//	})
//	if err != nil { ... }
//	defer c.Close()
//
//	err = c.UploadAndImport(ctx, 113000000000, data, 112000000000)
package anaplan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
	"github.com/anaplan-sdk/anaplan-go/internal/auth"
	"github.com/anaplan-sdk/anaplan-go/internal/transfer"
)

// Default service hosts.
const (
	DefaultAPIHost        = "https://api.anaplan.com"
	DefaultAuthHost       = "https://auth.anaplan.com"
	DefaultAuditHost      = "https://audit.anaplan.com"
	DefaultCloudWorksHost = "https://api.cloudworks.anaplan.com"
)

// ErrNoModel is returned by model scoped operations on a client without a
// workspace and model.
var ErrNoModel = errors.New("anaplan: workspace id and model id are required")

// Hosts overrides the base URLs of the Anaplan services. Empty fields take
// the defaults.
type Hosts struct {
	API        string
	Auth       string
	Audit      string
	CloudWorks string
}

func (h Hosts) withDefaults() Hosts {
	if h.API == "" {
		h.API = DefaultAPIHost
	}

	if h.Auth == "" {
		h.Auth = DefaultAuthHost
	}

	if h.Audit == "" {
		h.Audit = DefaultAuditHost
	}

	if h.CloudWorks == "" {
		h.CloudWorks = DefaultCloudWorksHost
	}

	return h
}

// Options configures a Client. Zero values take the defaults.
type Options struct {
	WorkspaceID string
	ModelID     string
	Credentials Credentials

	// Timeout bounds each request. Timeouts, when set, replaces it with
	// individual connect, read, write and pool limits.
	Timeout  time.Duration
	Timeouts *Timeouts

	RetryCount    int
	Backoff       time.Duration
	BackoffFactor float64
	PageSize      int
	PollDelay     time.Duration

	UploadChunkSize   int
	BatchSize         int
	AllowFileCreation bool

	// Concurrency is "parallel" (default) or "cooperative".
	Concurrency      string
	ConcurrencyLimit int

	Hosts Hosts

	// Transport is the base round tripper under authentication. Defaults
	// to a pooled transport honoring the timeouts.
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// Client talks to the Anaplan APIs. A Client is safe for concurrent use.
type Client struct {
	svc       *api.Service
	auth      *auth.Transport
	hosts     Hosts
	transfer  transfer.Options
	logger    *slog.Logger
	workspace string
	model     string
}

// New builds a Client and authenticates it. Strategies that already hold a
// token, such as a static token, make no request here.
func New(ctx context.Context, opts Options) (*Client, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hosts := opts.Hosts.withDefaults()

	strategy, err := auth.New(withAuthHost(opts.Credentials, hosts.Auth), logger)
	if err != nil {
		return nil, err
	}

	exec, err := api.NewExecutor(opts.Concurrency, opts.ConcurrencyLimit)
	if err != nil {
		return nil, err
	}

	timeouts := api.Timeouts{Total: opts.Timeout}
	if opts.Timeouts != nil {
		timeouts = *opts.Timeouts
	}

	base := opts.Transport
	if base == nil {
		base = api.NewTransport(timeouts)
	}

	at := auth.NewTransport(base, strategy, logger)
	svc := api.NewService(api.NewHTTPClient(at, timeouts), api.Config{
		RetryCount:    opts.RetryCount,
		Backoff:       opts.Backoff,
		BackoffFactor: opts.BackoffFactor,
		PageSize:      opts.PageSize,
		PollDelay:     opts.PollDelay,
	}, exec, logger)

	c := &Client{
		svc:   svc,
		auth:  at,
		hosts: hosts,
		transfer: transfer.Options{
			ChunkSize:         opts.UploadChunkSize,
			BatchSize:         opts.BatchSize,
			AllowFileCreation: opts.AllowFileCreation,
		},
		logger:    logger,
		workspace: opts.WorkspaceID,
		model:     opts.ModelID,
	}

	if err := at.Authenticate(ctx); err != nil {
		return nil, err
	}

	logger.Debug("client ready",
		slog.String("workspace_id", c.workspace),
		slog.String("model_id", c.model),
		slog.String("concurrency", opts.Concurrency),
	)

	return c, nil
}

// withAuthHost points password and certificate credentials without an
// explicit auth URL at host.
func withAuthHost(c Credentials, host string) Credentials {
	endpoint := host + "/token/authenticate"

	switch cred := c.(type) {
	case BasicCredentials:
		if cred.AuthURL == "" {
			cred.AuthURL = endpoint
		}

		return cred
	case CertCredentials:
		if cred.AuthURL == "" {
			cred.AuthURL = endpoint
		}

		return cred
	default:
		return c
	}
}

// WithModel returns a Client for another workspace and model that shares
// this client's authentication, connection pool and settings.
func (c *Client) WithModel(workspaceID, modelID string) *Client {
	clone := *c
	clone.workspace = workspaceID
	clone.model = modelID

	return &clone
}

// WorkspaceID returns the workspace the client is scoped to.
func (c *Client) WorkspaceID() string { return c.workspace }

// ModelID returns the model the client is scoped to.
func (c *Client) ModelID() string { return c.model }

// Close releases idle connections. In-flight requests are not interrupted.
func (c *Client) Close() {
	c.svc.Close()
}

// Logout clears the tokens of an interactive OAuth client and removes the
// persisted refresh token. Other credential kinds are unaffected.
func (c *Client) Logout() error {
	if a, ok := c.auth.Strategy().(*auth.OAuthAuthCode); ok {
		return a.Logout()
	}

	return nil
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	return c.auth.Strategy().Token()
}

// modelURL is the integration API base of the client's model.
func (c *Client) modelURL() (string, error) {
	if c.workspace == "" || c.model == "" {
		return "", ErrNoModel
	}

	return fmt.Sprintf("%s/2/0/workspaces/%s/models/%s",
		c.hosts.API, url.PathEscape(c.workspace), url.PathEscape(c.model)), nil
}

// transactionalURL is the transactional and ALM API base of the model.
func (c *Client) transactionalURL() (string, error) {
	if c.workspace == "" || c.model == "" {
		return "", ErrNoModel
	}

	return fmt.Sprintf("%s/2/0/models/%s", c.hosts.API, url.PathEscape(c.model)), nil
}

func (c *Client) engine() (*transfer.Engine, error) {
	base, err := c.modelURL()
	if err != nil {
		return nil, err
	}

	return transfer.New(c.svc, base+"/files", c.transfer, c.logger), nil
}
