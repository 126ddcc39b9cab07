package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	s := NewKeyringStore()

	got, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, got, "missing entry loads as empty")

	require.NoError(t, s.Save("refresh-1"))

	got, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", got)

	require.NoError(t, s.Delete())
	require.NoError(t, s.Delete(), "deleting a missing entry is not an error")

	got, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}
