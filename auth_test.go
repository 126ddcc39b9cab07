package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/anaplan-sdk/anaplan-go/internal/auth"
)

func TestLogout_RemovesStoredRefreshToken(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set(auth.KeyringService, auth.KeyringAccount, "R-stored"))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"logout", "-q", "--config", filepath.Join(t.TempDir(), "absent.toml")})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	_, err := keyring.Get(auth.KeyringService, auth.KeyringAccount)
	assert.ErrorIs(t, err, keyring.ErrNotFound)
}

func TestLogout_NothingStored(t *testing.T) {
	keyring.MockInit()

	cmd := newRootCmd()
	cmd.SetArgs([]string{"logout", "-q", "--config", filepath.Join(t.TempDir(), "absent.toml")})
	assert.NoError(t, cmd.ExecuteContext(context.Background()))
}

func TestLogin_IncompleteCredentials(t *testing.T) {
	t.Setenv("ANAPLAN_PASSWORD", "")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"login", "-q", "--config", filepath.Join(t.TempDir(), "absent.toml")})

	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete credentials")
}
