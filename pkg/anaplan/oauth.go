package anaplan

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/anaplan-sdk/anaplan-go/internal/auth"
)

// OAuthApp describes an OAuth client registered with Anaplan. Web
// applications use it with AuthorizationURL and FetchToken to run the
// authorization code flow themselves, then hand the token to a Client
// through OAuthRefreshCredentials. Empty URLs and Scope take the defaults.
type OAuthApp struct {
	ClientID         string
	ClientSecret     string
	RedirectURI      string
	AuthorizationURL string
	TokenURL         string
	Scope            string
}

func (a OAuthApp) config() *oauth2.Config {
	return auth.OAuthConfig(a.ClientID, a.ClientSecret, a.RedirectURI, a.AuthorizationURL, a.TokenURL, a.Scope)
}

// AuthorizationURL returns the URL to send the user to and the state it
// carries. An empty state is replaced with a random one; keep the returned
// state for FetchToken.
func AuthorizationURL(app OAuthApp, state string) (authURL, usedState string) {
	return auth.Authorize(app.config(), state)
}

// FetchToken checks the redirect the user came back with against state and
// exchanges its code for a token pair. Failures match ErrInvalidCredentials.
func FetchToken(ctx context.Context, app OAuthApp, callbackURL, state string) (*oauth2.Token, error) {
	return auth.FetchToken(ctx, app.config(), callbackURL, state)
}

// OAuthToken returns the current token pair of a client built from
// OAuthRefreshCredentials, or nil for other credential kinds. Each refresh
// replaces the refresh token, so callers that persist it should read it
// again after use.
func (c *Client) OAuthToken() *oauth2.Token {
	if o, ok := c.auth.Strategy().(*auth.OAuthRefresh); ok {
		return o.OAuthToken()
	}

	return nil
}
