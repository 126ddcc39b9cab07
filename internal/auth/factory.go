package auth

import (
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
)

// Credentials is the closed set of credential kinds accepted by New.
type Credentials interface {
	credentials()
}

// BasicCredentials authenticate with email and password. Token optionally
// seeds the bearer.
type BasicCredentials struct {
	Email    string
	Password string
	AuthURL  string
	Token    string
}

// CertCredentials authenticate with a certificate and RSA private key. Both
// may be given as PEM content or as a path to a PEM file.
type CertCredentials struct {
	Certificate        string
	PrivateKey         string
	PrivateKeyPassword string
	AuthURL            string
	Token              string
}

// StaticTokenCredentials carry a pre-obtained bearer.
type StaticTokenCredentials struct {
	Token string
}

// OAuthRefreshCredentials refresh a token pair obtained elsewhere.
type OAuthRefreshCredentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	TokenURL     string
	Token        *oauth2.Token
}

// OAuthAuthCodeCredentials drive the interactive authorization code flow.
type OAuthAuthCodeCredentials struct {
	ClientID         string
	ClientSecret     string
	RedirectURI      string
	Scope            string
	AuthorizationURL string
	TokenURL         string
	Token            *oauth2.Token
	Persist          bool
	Prompt           PromptFunc

	// State generates the OAuth state. Defaults to a random UUID.
	State func() string
	// Store overrides the OS keyring when Persist is set.
	Store SecretStore
	// HTTPClient is used for the code exchange.
	HTTPClient *http.Client
}

func (BasicCredentials) credentials()         {}
func (CertCredentials) credentials()          {}
func (StaticTokenCredentials) credentials()   {}
func (OAuthRefreshCredentials) credentials()  {}
func (OAuthAuthCodeCredentials) credentials() {}

// New builds the strategy for c.
func New(c Credentials, logger *slog.Logger) (Strategy, error) {
	switch c := c.(type) {
	case BasicCredentials:
		if c.Email == "" || c.Password == "" {
			return nil, fmt.Errorf("%w: basic auth needs an email and a password", api.ErrInvalidCredentials)
		}

		return NewBasic(c), nil
	case CertCredentials:
		s, err := NewCert(c)
		if err != nil {
			return nil, err
		}

		return s, nil
	case StaticTokenCredentials:
		if c.Token == "" {
			return nil, fmt.Errorf("%w: static token is empty", api.ErrInvalidCredentials)
		}

		return NewStaticToken(c.Token), nil
	case OAuthRefreshCredentials:
		s, err := NewOAuthRefresh(c, logger)
		if err != nil {
			return nil, err
		}

		return s, nil
	case OAuthAuthCodeCredentials:
		s, err := NewOAuthAuthCode(c, logger)
		if err != nil {
			return nil, err
		}

		return s, nil
	case nil:
		return nil, fmt.Errorf("%w: no credentials given", api.ErrInvalidCredentials)
	default:
		return nil, fmt.Errorf("%w: unsupported credentials %T", api.ErrInvalidCredentials, c)
	}
}
