// Package auth acquires and refreshes Anaplan bearer tokens and attaches them
// to outbound requests through an http.RoundTripper.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
)

// DefaultAuthURL is the Anaplan token endpoint used by Basic and Cert.
const DefaultAuthURL = "https://auth.anaplan.com/token/authenticate"

const authScheme = "AnaplanAuthToken"

// maxTokenResponse bounds how much of a refresh response body is read.
const maxTokenResponse = 1 << 20

// ErrNoRefresh is returned by RefreshRequest for strategies that hold a
// fixed token.
var ErrNoRefresh = errors.New("auth: strategy cannot refresh its token")

// Strategy produces and rotates the bearer for one credential kind.
//
// Apart from an Initializer's setup step, ParseRefreshResponse is the only
// method that changes the bearer. A 401 from the refresh itself yields an
// error matching api.ErrInvalidCredentials, any other non-2xx an
// *api.AuthError matching api.ErrAuthenticationFailed.
type Strategy interface {
	// Token returns the current bearer, empty before the first refresh.
	Token() string
	// Attach writes the current bearer into req's Authorization header and
	// returns it. An empty return means no bearer has been obtained yet.
	Attach(req *http.Request) string
	RefreshRequest(ctx context.Context) (*http.Request, error)
	ParseRefreshResponse(resp *http.Response) error
}

// Initializer is implemented by strategies with a one-time setup step, such
// as an interactive login, that must run before the first refresh.
type Initializer interface {
	Init(ctx context.Context) error
}

// tokenSlot holds the current bearer. Reads are lock-free; writes happen only
// while the Transport holds its refresh lock.
type tokenSlot struct {
	v atomic.Pointer[string]
}

func (s *tokenSlot) get() string {
	if p := s.v.Load(); p != nil {
		return *p
	}

	return ""
}

func (s *tokenSlot) set(tok string) {
	s.v.Store(&tok)
}

// Attach implements Strategy for every slot-backed strategy.
func (s *tokenSlot) Attach(req *http.Request) string {
	tok := s.get()
	req.Header.Set("Authorization", authScheme+" "+tok)

	return tok
}

// Token returns the current bearer.
func (s *tokenSlot) Token() string {
	return s.get()
}

// readRefreshBody reads the response body and classifies non-2xx statuses.
func readRefreshBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: reading token response: %w", api.ErrAuthenticationFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &api.AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}

// parseTokenInfo extracts tokenInfo.tokenValue from an Anaplan authentication
// response and stores it in slot.
func parseTokenInfo(resp *http.Response, slot *tokenSlot) error {
	body, err := readRefreshBody(resp)
	if err != nil {
		return err
	}

	var payload struct {
		TokenInfo *struct {
			TokenValue string `json:"tokenValue"`
		} `json:"tokenInfo"`
	}

	if err := json.Unmarshal(body, &payload); err != nil || payload.TokenInfo == nil || payload.TokenInfo.TokenValue == "" {
		return fmt.Errorf("%w: response carries no tokenInfo", api.ErrInvalidCredentials)
	}

	slot.set(payload.TokenInfo.TokenValue)

	return nil
}
