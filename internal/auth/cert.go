package auth

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/youmark/pkcs8"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
)

// challengeSize is the number of random bytes signed per authentication.
const challengeSize = 150

// Cert authenticates with an X.509 certificate and a signed random challenge.
type Cert struct {
	tokenSlot
	certificate []byte
	key         *rsa.PrivateKey
	authURL     string

	// random is the challenge source. Tests override it.
	random io.Reader
}

// NewCert loads the certificate and private key once. Key failures match
// api.ErrInvalidPrivateKey.
func NewCert(c CertCredentials) (*Cert, error) {
	certificate, err := readPathOrBlob(c.Certificate)
	if err != nil {
		return nil, fmt.Errorf("auth: reading certificate: %w", err)
	}

	if len(certificate) == 0 {
		return nil, fmt.Errorf("%w: certificate is empty", api.ErrInvalidCredentials)
	}

	key, err := LoadPrivateKey(c.PrivateKey, c.PrivateKeyPassword)
	if err != nil {
		return nil, err
	}

	s := &Cert{
		certificate: certificate,
		key:         key,
		authURL:     orDefault(c.AuthURL, DefaultAuthURL),
		random:      rand.Reader,
	}

	if c.Token != "" {
		s.set(c.Token)
	}

	return s, nil
}

// RefreshRequest signs a fresh challenge with RSA PKCS#1 v1.5 over SHA-512.
func (c *Cert) RefreshRequest(ctx context.Context) (*http.Request, error) {
	challenge := make([]byte, challengeSize)
	if _, err := io.ReadFull(c.random, challenge); err != nil {
		return nil, fmt.Errorf("auth: generating challenge: %w", err)
	}

	digest := sha512.Sum512(challenge)

	signed, err := rsa.SignPKCS1v15(rand.Reader, c.key, crypto.SHA512, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: signing challenge: %w", api.ErrInvalidPrivateKey, err)
	}

	body, err := json.Marshal(map[string]string{
		"encodedData":       base64.StdEncoding.EncodeToString(challenge),
		"encodedSignedData": base64.StdEncoding.EncodeToString(signed),
	})
	if err != nil {
		return nil, fmt.Errorf("auth: encoding challenge: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("auth: building certificate auth request: %w", err)
	}

	req.Header.Set("Authorization", "CACertificate "+base64.StdEncoding.EncodeToString(c.certificate))
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

// ParseRefreshResponse stores tokenInfo.tokenValue.
func (c *Cert) ParseRefreshResponse(resp *http.Response) error {
	return parseTokenInfo(resp, &c.tokenSlot)
}

// LoadPrivateKey parses an RSA key from a PEM blob or a path to one.
// PKCS#1, PKCS#8 and password protected PKCS#8 keys are accepted.
func LoadPrivateKey(keyOrPath, password string) (*rsa.PrivateKey, error) {
	raw, err := readPathOrBlob(keyOrPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrInvalidPrivateKey, err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", api.ErrInvalidPrivateKey)
	}

	var key *rsa.PrivateKey

	switch block.Type {
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		key, err = pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes)
	case "ENCRYPTED PRIVATE KEY":
		if password == "" {
			return nil, fmt.Errorf("%w: key is encrypted and no password was given", api.ErrInvalidPrivateKey)
		}

		key, err = pkcs8.ParsePKCS8PrivateKeyRSA(block.Bytes, []byte(password))
	default:
		err = fmt.Errorf("unsupported PEM block %q", block.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrInvalidPrivateKey, err)
	}

	return key, nil
}

// readPathOrBlob treats s as a file path when such a file exists and as the
// content itself otherwise.
func readPathOrBlob(s string) ([]byte, error) {
	if s == "" {
		return nil, errors.New("no key material given")
	}

	if fi, err := os.Stat(s); err == nil && !fi.IsDir() {
		return os.ReadFile(s)
	}

	return []byte(s), nil
}
