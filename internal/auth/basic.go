package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
)

// Basic authenticates with an email and password.
type Basic struct {
	tokenSlot
	email    string
	password string
	authURL  string
}

// NewBasic returns a Basic strategy. token optionally seeds the slot.
func NewBasic(c BasicCredentials) *Basic {
	b := &Basic{
		email:    c.Email,
		password: c.Password,
		authURL:  orDefault(c.AuthURL, DefaultAuthURL),
	}

	if c.Token != "" {
		b.set(c.Token)
	}

	return b
}

// RefreshRequest posts the base64 encoded credentials to the auth endpoint.
func (b *Basic) RefreshRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.authURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("auth: building basic auth request: %w", err)
	}

	creds := base64.StdEncoding.EncodeToString([]byte(b.email + ":" + b.password))
	req.Header.Set("Authorization", "Basic "+creds)

	return req, nil
}

// ParseRefreshResponse stores tokenInfo.tokenValue.
func (b *Basic) ParseRefreshResponse(resp *http.Response) error {
	return parseTokenInfo(resp, &b.tokenSlot)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
