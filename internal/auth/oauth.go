package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
)

// Anaplan OAuth defaults.
const (
	DefaultAuthorizationURL = "https://us1a.app.anaplan.com/auth/prelogin"
	DefaultTokenURL         = "https://us1a.app.anaplan.com/oauth/token"
	DefaultScope            = "openid profile email offline_access"
)

// PromptFunc presents authURL to the user and returns the full callback URL
// the authorization server redirected to.
type PromptFunc func(ctx context.Context, authURL string) (callbackURL string, err error)

// OAuthConfig builds the oauth2.Config shared by the OAuth strategies and
// the web application helpers. Empty URLs and scope take the defaults.
func OAuthConfig(clientID, clientSecret, redirectURI, authorizationURL, tokenURL, scope string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       strings.Fields(orDefault(scope, DefaultScope)),
		Endpoint: oauth2.Endpoint{
			AuthURL:   orDefault(authorizationURL, DefaultAuthorizationURL),
			TokenURL:  orDefault(tokenURL, DefaultTokenURL),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Authorize returns the authorization URL and the state embedded in it.
// An empty state is replaced with a random one.
func Authorize(cfg *oauth2.Config, state string) (authURL, usedState string) {
	if state == "" {
		state = uuid.NewString()
	}

	return cfg.AuthCodeURL(state), state
}

// FetchToken validates a callback URL against state and exchanges its code
// for a token pair. Failures match api.ErrInvalidCredentials.
func FetchToken(ctx context.Context, cfg *oauth2.Config, callbackURL, state string) (*oauth2.Token, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing callback URL: %w", api.ErrInvalidCredentials, err)
	}

	q := u.Query()

	if q.Get("state") != state {
		return nil, fmt.Errorf("%w: OAuth state mismatch", api.ErrInvalidCredentials)
	}

	if e := q.Get("error"); e != "" {
		return nil, fmt.Errorf("%w: authorization failed: %s: %s",
			api.ErrInvalidCredentials, e, q.Get("error_description"))
	}

	code := q.Get("code")
	if code == "" {
		return nil, fmt.Errorf("%w: callback carries no authorization code", api.ErrInvalidCredentials)
	}

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: token exchange: %w", api.ErrInvalidCredentials, err)
	}

	return tok, nil
}

// OAuthRefresh rotates bearers with the OAuth refresh token grant. Every
// refresh consumes the refresh token and replaces it. Using the same refresh
// token from another process at the same time has undefined results.
type OAuthRefresh struct {
	tokenSlot
	cfg    *oauth2.Config
	store  SecretStore
	logger *slog.Logger

	mu           sync.Mutex
	refreshToken string
	expiry       time.Time
}

// NewOAuthRefresh returns a strategy seeded with tok. tok must carry a
// refresh token.
func NewOAuthRefresh(c OAuthRefreshCredentials, logger *slog.Logger) (*OAuthRefresh, error) {
	if c.Token == nil || c.Token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: OAuth refresh credentials need a refresh token", api.ErrInvalidCredentials)
	}

	cfg := OAuthConfig(c.ClientID, c.ClientSecret, c.RedirectURI, "", c.TokenURL, "")

	return newOAuthRefresh(cfg, c.Token, nil, logger), nil
}

func newOAuthRefresh(cfg *oauth2.Config, tok *oauth2.Token, store SecretStore, logger *slog.Logger) *OAuthRefresh {
	if logger == nil {
		logger = slog.Default()
	}

	o := &OAuthRefresh{cfg: cfg, store: store, logger: logger}

	if tok != nil {
		o.refreshToken = tok.RefreshToken
		o.expiry = tok.Expiry

		if tok.AccessToken != "" {
			o.set(tok.AccessToken)
		}
	}

	return o
}

// RefreshRequest builds the refresh_token grant for the token endpoint.
func (o *OAuthRefresh) RefreshRequest(ctx context.Context) (*http.Request, error) {
	o.mu.Lock()
	rt := o.refreshToken
	o.mu.Unlock()

	if rt == "" {
		return nil, fmt.Errorf("%w: no refresh token available", api.ErrInvalidCredentials)
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {rt},
		"client_id":     {o.cfg.ClientID},
	}

	if o.cfg.ClientSecret != "" {
		form.Set("client_secret", o.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.Endpoint.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("auth: building refresh request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// ParseRefreshResponse stores the new access token and rotates the refresh
// token. A rejected refresh token fails with api.ErrInvalidCredentials.
func (o *OAuthRefresh) ParseRefreshResponse(resp *http.Response) error {
	body, err := readRefreshBody(resp)
	if err != nil {
		var authErr *api.AuthError
		if errors.As(err, &authErr) && strings.Contains(authErr.Body, "invalid_grant") {
			return fmt.Errorf("%w: refresh token rejected: %w", api.ErrInvalidCredentials, err)
		}

		return err
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
	}

	if err := json.Unmarshal(body, &payload); err != nil || payload.AccessToken == "" {
		return fmt.Errorf("%w: token response carries no access_token", api.ErrInvalidCredentials)
	}

	o.rotate(&oauth2.Token{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    payload.TokenType,
		Expiry:       expiryFrom(payload.ExpiresIn),
	})

	o.logger.Info("OAuth token refreshed", slog.Time("expiry", o.Expiry()))

	return nil
}

// OAuthToken returns a snapshot of the current token pair.
func (o *OAuthRefresh) OAuthToken() *oauth2.Token {
	o.mu.Lock()
	defer o.mu.Unlock()

	return &oauth2.Token{
		AccessToken:  o.get(),
		RefreshToken: o.refreshToken,
		TokenType:    "Bearer",
		Expiry:       o.expiry,
	}
}

// Expiry returns the access token expiry, zero when unknown.
func (o *OAuthRefresh) Expiry() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.expiry
}

// rotate swaps in tok and mirrors the refresh token to the secret store.
// A server that does not rotate refresh tokens keeps the old one.
func (o *OAuthRefresh) rotate(tok *oauth2.Token) {
	o.mu.Lock()

	if tok.RefreshToken != "" {
		o.refreshToken = tok.RefreshToken
	}

	o.expiry = tok.Expiry
	rt := o.refreshToken
	o.set(tok.AccessToken)
	o.mu.Unlock()

	if o.store == nil || rt == "" {
		return
	}

	if err := o.store.Save(rt); err != nil {
		o.logger.Warn("persisting refresh token failed", slog.String("error", err.Error()))
	}
}

func expiryFrom(expiresIn int64) time.Time {
	if expiresIn <= 0 {
		return time.Time{}
	}

	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}

// OAuthAuthCode runs the interactive authorization code flow on first use
// when neither a token nor a persisted refresh token is available, then
// refreshes like OAuthRefresh.
type OAuthAuthCode struct {
	*OAuthRefresh
	prompt     PromptFunc
	state      func() string
	httpClient *http.Client
}

// NewOAuthAuthCode returns the strategy. With Persist set the refresh token
// is mirrored to c.Store, or the OS keyring when c.Store is nil.
func NewOAuthAuthCode(c OAuthAuthCodeCredentials, logger *slog.Logger) (*OAuthAuthCode, error) {
	if c.ClientID == "" {
		return nil, fmt.Errorf("%w: OAuth client id is required", api.ErrInvalidCredentials)
	}

	var store SecretStore
	if c.Persist {
		store = c.Store
		if store == nil {
			store = NewKeyringStore()
		}
	}

	cfg := OAuthConfig(c.ClientID, c.ClientSecret, c.RedirectURI, c.AuthorizationURL, c.TokenURL, c.Scope)

	state := c.State
	if state == nil {
		state = uuid.NewString
	}

	return &OAuthAuthCode{
		OAuthRefresh: newOAuthRefresh(cfg, c.Token, store, logger),
		prompt:       c.Prompt,
		state:        state,
		httpClient:   c.HTTPClient,
	}, nil
}

// Init obtains a refresh token: the seeded one, the persisted one, or a new
// one from the interactive flow.
func (a *OAuthAuthCode) Init(ctx context.Context) error {
	a.mu.Lock()
	haveRefresh := a.refreshToken != ""
	a.mu.Unlock()

	if a.get() != "" || haveRefresh {
		return nil
	}

	if a.store != nil {
		rt, err := a.store.Load()
		if err != nil {
			a.logger.Warn("loading persisted refresh token failed", slog.String("error", err.Error()))
		}

		if rt != "" {
			a.logger.Info("using persisted refresh token")
			a.mu.Lock()
			a.refreshToken = rt
			a.mu.Unlock()

			return nil
		}
	}

	return a.Login(ctx)
}

// Login runs the interactive flow unconditionally.
func (a *OAuthAuthCode) Login(ctx context.Context) error {
	if a.prompt == nil {
		return fmt.Errorf("%w: no token available and no prompt configured", api.ErrInvalidCredentials)
	}

	authURL, state := Authorize(a.cfg, a.state())

	callbackURL, err := a.prompt(ctx, authURL)
	if err != nil {
		return fmt.Errorf("auth: awaiting authorization callback: %w", err)
	}

	if a.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	}

	tok, err := FetchToken(ctx, a.cfg, callbackURL, state)
	if err != nil {
		return err
	}

	a.rotate(tok)
	a.logger.Info("OAuth login successful", slog.Time("expiry", tok.Expiry))

	return nil
}

// Logout forgets the token pair and removes the persisted refresh token.
func (a *OAuthAuthCode) Logout() error {
	a.mu.Lock()
	a.refreshToken = ""
	a.expiry = time.Time{}
	a.set("")
	a.mu.Unlock()

	if a.store == nil {
		return nil
	}

	return a.store.Delete()
}
