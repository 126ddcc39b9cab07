package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/anaplan-sdk/anaplan-go/internal/api"
)

func TestNew_PicksStrategy(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  Strategy
	}{
		{"basic", BasicCredentials{Email: "a@b.c", Password: "p"}, &Basic{}},
		{"cert", CertCredentials{Certificate: fakeCertificate, PrivateKey: pkcs1PEM(testKey())}, &Cert{}},
		{"static", StaticTokenCredentials{Token: "T"}, &StaticToken{}},
		{"refresh", OAuthRefreshCredentials{ClientID: "c", Token: &oauth2.Token{RefreshToken: "R"}}, &OAuthRefresh{}},
		{"auth code", OAuthAuthCodeCredentials{ClientID: "c"}, &OAuthAuthCode{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.creds, nil)
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"nil", nil},
		{"basic without password", BasicCredentials{Email: "a@b.c"}},
		{"empty static token", StaticTokenCredentials{}},
		{"auth code without client", OAuthAuthCodeCredentials{}},
		{"refresh without token", OAuthRefreshCredentials{ClientID: "c"}},
		{"cert without key", CertCredentials{Certificate: fakeCertificate}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.creds, nil)
			require.ErrorIs(t, err, api.ErrInvalidCredentials)
			assert.Nil(t, s)
		})
	}
}

func TestNew_SeededTokenIsAttached(t *testing.T) {
	s, err := New(BasicCredentials{Email: "a@b.c", Password: "p", Token: "seed"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "seed", s.Token())
	assert.Equal(t, DefaultAuthURL, s.(*Basic).authURL)
}
