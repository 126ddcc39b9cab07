package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

type callbackResult struct {
	url string
	err error
}

// LoopbackPrompt returns a PromptFunc that serves redirectURI on the local
// machine, shows the authorization URL through open, and returns the URL the
// browser was redirected to. redirectURI must be an http://localhost or
// http://127.0.0.1 address with an explicit port.
func LoopbackPrompt(redirectURI string, open func(authURL string) error, logger *slog.Logger) PromptFunc {
	return func(ctx context.Context, authURL string) (string, error) {
		return LoopbackCallback(ctx, redirectURI, authURL, open, logger)
	}
}

// LoopbackCallback runs one round of the loopback redirect.
func LoopbackCallback(
	ctx context.Context,
	redirectURI, authURL string,
	open func(string) error,
	logger *slog.Logger,
) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	redirect, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("auth: parsing redirect URI: %w", err)
	}

	if redirect.Scheme != "http" || redirect.Port() == "" {
		return "", fmt.Errorf("auth: loopback redirect URI must be http://host:port, got %q", redirectURI)
	}

	resultCh := make(chan callbackResult, 1)

	srv, err := startCallbackServer(ctx, redirect, resultCh, logger)
	if err != nil {
		return "", err
	}

	defer shutdownCallbackServer(srv, logger)

	if err := open(authURL); err != nil {
		return "", fmt.Errorf("auth: presenting authorization URL: %w", err)
	}

	return waitForCallback(ctx, resultCh)
}

// startCallbackServer binds the redirect host and port and serves its path.
func startCallbackServer(
	ctx context.Context,
	redirect *url.URL,
	resultCh chan<- callbackResult,
	logger *slog.Logger,
) (*http.Server, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("auth: binding callback listener on %s: %w", redirect.Host, err)
	}

	path := redirect.Path
	if path == "" {
		path = "/"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+path, func(w http.ResponseWriter, r *http.Request) {
		handleCallback(w, r, redirect, resultCh)
	})

	logger.Info("callback server listening", slog.String("addr", listener.Addr().String()))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			select {
			case resultCh <- callbackResult{err: fmt.Errorf("auth: callback server: %w", serveErr)}:
			default:
			}
		}
	}()

	return srv, nil
}

// handleCallback reports the full callback URL. State and code checks happen
// in FetchToken.
func handleCallback(w http.ResponseWriter, r *http.Request, redirect *url.URL, resultCh chan<- callbackResult) {
	u := *redirect
	u.RawQuery = r.URL.RawQuery

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
	} else {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><h1>Authentication complete</h1>"+
			"<p>You can close this window and return to the terminal.</p></body></html>")
	}

	select {
	case resultCh <- callbackResult{url: u.String()}:
	default:
	}
}

func shutdownCallbackServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

// waitForCallback blocks until the callback fires or ctx is canceled.
func waitForCallback(ctx context.Context, resultCh <-chan callbackResult) (string, error) {
	select {
	case result := <-resultCh:
		if result.err != nil {
			return "", result.err
		}

		return result.url, nil
	case <-ctx.Done():
		return "", fmt.Errorf("auth: waiting for authorization callback: %w", ctx.Err())
	}
}
