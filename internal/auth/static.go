package auth

import (
	"context"
	"net/http"
)

// StaticToken attaches a pre-obtained bearer and never refreshes it. A 401
// surfaces as api.ErrInvalidCredentials.
type StaticToken struct {
	tokenSlot
}

// NewStaticToken returns a StaticToken strategy for token.
func NewStaticToken(token string) *StaticToken {
	s := &StaticToken{}
	s.set(token)

	return s
}

// RefreshRequest always fails with ErrNoRefresh.
func (*StaticToken) RefreshRequest(context.Context) (*http.Request, error) {
	return nil, ErrNoRefresh
}

// ParseRefreshResponse is never reached.
func (*StaticToken) ParseRefreshResponse(*http.Response) error {
	return ErrNoRefresh
}
