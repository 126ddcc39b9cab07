package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
)

// Transport attaches the strategy's bearer to every request and performs a
// single refresh and resend when the server answers 401:
//
//	Attached -> (401) -> Refreshing -> Reattaching -> resend once
//
// A second 401 surfaces as an *api.AuthError matching
// api.ErrInvalidCredentials. Refresh requests are sent on the base transport
// and never intercepted. An empty token slot triggers a refresh before the
// first send.
//
// Refreshes are serialized. A request whose 401 was caused by a bearer that
// another goroutine has already rotated resends with the current bearer
// instead of refreshing again.
type Transport struct {
	base     http.RoundTripper
	strategy Strategy
	logger   *slog.Logger

	mu          sync.Mutex
	initialized bool
}

// NewTransport wraps base. A nil base means http.DefaultTransport.
func NewTransport(base http.RoundTripper, strategy Strategy, logger *slog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{base: base, strategy: strategy, logger: logger}
}

// Strategy returns the wrapped strategy.
func (t *Transport) Strategy() Strategy {
	return t.strategy
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.strategy.Token() == "" {
		if err := t.refresh(ctx, ""); err != nil {
			// The request never reaches base, which would otherwise close it.
			if req.Body != nil {
				req.Body.Close()
			}

			return nil, err
		}
	}

	first := req.Clone(ctx)
	bearer := t.strategy.Attach(first)

	resp, err := t.base.RoundTrip(first)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	drain(resp)
	t.logger.Info("bearer rejected, refreshing",
		slog.String("method", req.Method),
		slog.String("url", req.URL.String()),
	)

	if err := t.refresh(ctx, bearer); err != nil {
		return nil, err
	}

	retry, err := rewind(req)
	if err != nil {
		return nil, err
	}

	t.strategy.Attach(retry)

	resp, err = t.base.RoundTrip(retry)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponse))
		resp.Body.Close()

		return nil, &api.AuthError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return resp, nil
}

// Authenticate obtains a bearer now if the slot is empty. It is a no-op for
// strategies that already hold a token.
func (t *Transport) Authenticate(ctx context.Context) error {
	if t.strategy.Token() != "" {
		return nil
	}

	return t.refresh(ctx, "")
}

// refresh rotates the bearer unless it already differs from stale.
func (t *Transport) refresh(ctx context.Context, stale string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cur := t.strategy.Token(); cur != stale {
		return nil
	}

	if initializer, ok := t.strategy.(Initializer); ok && !t.initialized {
		if err := initializer.Init(ctx); err != nil {
			return err
		}

		t.initialized = true

		if t.strategy.Token() != stale {
			return nil
		}
	}

	rr, err := t.strategy.RefreshRequest(ctx)
	if errors.Is(err, ErrNoRefresh) {
		return fmt.Errorf("%w: token was rejected and cannot be refreshed", api.ErrInvalidCredentials)
	}

	if err != nil {
		return err
	}

	resp, err := t.base.RoundTrip(rr)
	if err != nil {
		return fmt.Errorf("auth: sending refresh request: %w", err)
	}
	defer resp.Body.Close()

	if err := t.strategy.ParseRefreshResponse(resp); err != nil {
		return err
	}

	t.logger.Info("token refreshed", slog.String("url", rr.URL.String()))

	return nil
}

// rewind clones req with a fresh body for the resend.
func rewind(req *http.Request) (*http.Request, error) {
	r := req.Clone(req.Context())

	if req.Body == nil || req.Body == http.NoBody {
		return r, nil
	}

	if req.GetBody == nil {
		return nil, errors.New("auth: request body cannot be replayed after 401")
	}

	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("auth: replaying request body: %w", err)
	}

	r.Body = body

	return r, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxTokenResponse))
	resp.Body.Close()
}
