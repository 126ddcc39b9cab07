package auth

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha512"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/youmark/pkcs8"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
)

const fakeCertificate = "-----BEGIN CERTIFICATE-----\nMIIBfake\n-----END CERTIFICATE-----\n"

var testKey = sync.OnceValue(func() *rsa.PrivateKey {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		panic(err)
	}

	return key
})

func pkcs1PEM(key *rsa.PrivateKey) string {
	return string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}))
}

func pkcs8PEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()

	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
}

func encryptedPEM(t *testing.T, key *rsa.PrivateKey, password string) string {
	t.Helper()

	der, err := pkcs8.MarshalPrivateKey(key, []byte(password), nil)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{Type: "ENCRYPTED PRIVATE KEY", Bytes: der}))
}

func TestLoadPrivateKey(t *testing.T) {
	key := testKey()

	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, []byte(pkcs1PEM(key)), 0o600))

	tests := []struct {
		name     string
		material string
		password string
	}{
		{"pkcs1 blob", pkcs1PEM(key), ""},
		{"pkcs1 path", path, ""},
		{"pkcs8 blob", pkcs8PEM(t, key), ""},
		{"encrypted pkcs8", encryptedPEM(t, key, "s3cret"), "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadPrivateKey(tt.material, tt.password)
			require.NoError(t, err)
			assert.True(t, key.Equal(got))
		})
	}
}

func TestLoadPrivateKey_Failures(t *testing.T) {
	key := testKey()

	tests := []struct {
		name     string
		material string
		password string
	}{
		{"empty", "", ""},
		{"not pem", "definitely not a key", ""},
		{"wrong password", encryptedPEM(t, key, "s3cret"), "wrong"},
		{"missing password", encryptedPEM(t, key, "s3cret"), ""},
		{"certificate block", fakeCertificate, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPrivateKey(tt.material, tt.password)
			require.ErrorIs(t, err, api.ErrInvalidPrivateKey)
			require.ErrorIs(t, err, api.ErrInvalidCredentials)
		})
	}
}

func TestCert_RefreshSignsChallenge(t *testing.T) {
	key := testKey()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != authPath {
			if r.Header.Get("Authorization") != authScheme+" CT" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}

			w.WriteHeader(http.StatusOK)

			return
		}

		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		encodedCert, ok := strings.CutPrefix(r.Header.Get("Authorization"), "CACertificate ")
		assert.True(t, ok)

		cert, err := base64.StdEncoding.DecodeString(encodedCert)
		assert.NoError(t, err)
		assert.Equal(t, fakeCertificate, string(cert))

		var body struct {
			EncodedData       string `json:"encodedData"`
			EncodedSignedData string `json:"encodedSignedData"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		data, err := base64.StdEncoding.DecodeString(body.EncodedData)
		assert.NoError(t, err)
		assert.Len(t, data, challengeSize)

		sig, err := base64.StdEncoding.DecodeString(body.EncodedSignedData)
		assert.NoError(t, err)

		digest := sha512.Sum512(data)
		assert.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA512, digest[:], sig))

		fmt.Fprint(w, `{"tokenInfo":{"tokenValue":"CT"}}`)
	}))
	defer srv.Close()

	certPath := filepath.Join(t.TempDir(), "cert.pem")
	require.NoError(t, os.WriteFile(certPath, []byte(fakeCertificate), 0o600))

	s, err := NewCert(CertCredentials{
		Certificate: certPath,
		PrivateKey:  pkcs1PEM(key),
		AuthURL:     srv.URL + authPath,
	})
	require.NoError(t, err)

	resp, err := (&http.Client{Transport: NewTransport(nil, s, nil)}).Get(srv.URL + "/2/0/workspaces")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CT", s.Token())
}

func TestNewCert_InvalidKey(t *testing.T) {
	_, err := NewCert(CertCredentials{Certificate: fakeCertificate, PrivateKey: "garbage"})
	require.ErrorIs(t, err, api.ErrInvalidPrivateKey)
}
