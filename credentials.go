package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/anaplan-sdk/anaplan-go/internal/config"
	"github.com/anaplan-sdk/anaplan-go/pkg/anaplan"
)

// errNotInteractive is returned when an OAuth login needs a browser but
// stdin is not a terminal.
var errNotInteractive = errors.New("oauth login needs an interactive terminal; run 'anaplan-go login' first")

// interactive reports whether a human can answer prompts.
func interactive() bool {
	fd := os.Stdin.Fd()

	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// buildCredentials maps the resolved auth section onto client credentials.
// Certificate and key paths are handed through; the client reads PEM files.
func buildCredentials(r *config.Resolved, tty bool, logger *slog.Logger) (anaplan.Credentials, error) {
	a := r.Auth

	switch a.Method {
	case config.AuthBasic:
		return anaplan.BasicCredentials{Email: a.Email, Password: r.Secrets.Password}, nil
	case config.AuthCertificate:
		return anaplan.CertCredentials{
			Certificate:        a.Certificate,
			PrivateKey:         a.PrivateKey,
			PrivateKeyPassword: r.Secrets.PrivateKeyPassword,
		}, nil
	case config.AuthToken:
		return anaplan.StaticTokenCredentials{Token: r.Secrets.Token}, nil
	case config.AuthOAuth:
		return anaplan.OAuthAuthCodeCredentials{
			ClientID:     a.ClientID,
			ClientSecret: r.Secrets.ClientSecret,
			RedirectURI:  a.RedirectURI,
			Persist:      a.PersistToken,
			Prompt:       oauthPrompt(a.RedirectURI, tty, logger),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported auth method %q", a.Method)
	}
}

// oauthPrompt serves the loopback redirect when a terminal is attached and
// fails fast otherwise, so scripts never hang waiting for a browser.
func oauthPrompt(redirectURI string, tty bool, logger *slog.Logger) anaplan.PromptFunc {
	if !tty {
		return func(context.Context, string) (string, error) {
			return "", errNotInteractive
		}
	}

	return anaplan.LoopbackPrompt(redirectURI, func(authURL string) error {
		fmt.Fprintf(os.Stderr, "Open this URL in your browser to sign in:\n\n  %s\n\n", authURL)
		return nil
	}, logger)
}
