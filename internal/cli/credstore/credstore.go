// Package credstore persists the CLI's credential in the OS keychain /
// credential manager, keyed by auth backend so multiple environments
// can coexist.
package credstore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const service = "egua-cli"

// ErrNotAuthenticated is returned when no credential is stored.
var ErrNotAuthenticated = errors.New("não autenticado. Execute 'egua login' primeiro")

// Store implements the session layer's TokenPersistence on top of the
// OS keyring.
type Store struct {
	key string
}

// New creates a store scoped to the given auth backend URL.
func New(backendURL string) *Store {
	return &Store{key: fmt.Sprintf("token-%s", backendURL)}
}

// Save persists the credential securely.
func (s *Store) Save(token string) error {
	if err := keyring.Set(service, s.key, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Load retrieves the credential. Absence is reported as
// ErrNotAuthenticated.
func (s *Store) Load() (string, error) {
	token, err := keyring.Get(service, s.key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotAuthenticated
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	return token, nil
}

// Clear removes the credential. Clearing an absent credential is not an
// error.
func (s *Store) Clear() error {
	if err := keyring.Delete(service, s.key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
