package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Keyring coordinates of the persisted OAuth refresh token.
const (
	KeyringService = "anaplan_sdk"
	KeyringAccount = "refresh_token"
)

// SecretStore persists a single secret across process lifetimes.
type SecretStore interface {
	// Load returns the stored secret, or "" when none is stored.
	Load() (string, error)
	Save(secret string) error
	Delete() error
}

// KeyringStore keeps the secret in the OS keychain.
type KeyringStore struct {
	service string
	account string
}

// NewKeyringStore returns a store for the refresh token entry.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{service: KeyringService, account: KeyringAccount}
}

func (s *KeyringStore) Load() (string, error) {
	secret, err := keyring.Get(s.service, s.account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("auth: reading keyring entry %s/%s: %w", s.service, s.account, err)
	}

	return secret, nil
}

func (s *KeyringStore) Save(secret string) error {
	if err := keyring.Set(s.service, s.account, secret); err != nil {
		return fmt.Errorf("auth: writing keyring entry %s/%s: %w", s.service, s.account, err)
	}

	return nil
}

// Delete removes the entry. A missing entry is not an error.
func (s *KeyringStore) Delete() error {
	err := keyring.Delete(s.service, s.account)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("auth: deleting keyring entry %s/%s: %w", s.service, s.account, err)
	}

	return nil
}
