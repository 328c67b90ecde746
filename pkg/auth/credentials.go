// Package auth stores VK access tokens, preferring the system keychain with
// an encrypted file and environment variables as fallbacks.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Account represents one stored VK access token
type Account struct {
	Name         string    `json:"name"`
	AccessToken  string    `json:"access_token"`
	LastModified time.Time `json:"last_modified"`
}

// DefaultAccount is the account name used when none is given
const DefaultAccount = "default"

var (
	// ErrTokenNotFound means no token is stored under the requested name
	ErrTokenNotFound = errors.New("token not found")
	// ErrInvalidAccount means the account is missing required fields
	ErrInvalidAccount = errors.New("invalid account")
	// ErrStoreUnavailable means the backend cannot serve the operation
	ErrStoreUnavailable = errors.New("token store unavailable")
)

// TokenStore is the interface for storing and retrieving access tokens
type TokenStore interface {
	// Store saves the account
	Store(account *Account) error
	// Retrieve gets the account stored under name
	Retrieve(name string) (*Account, error)
	// Delete removes the account stored under name
	Delete(name string) error
	// Exists checks whether an account is stored under name
	Exists(name string) bool
}

// Manager chains token stores with fallback
type Manager struct {
	stores []TokenStore
}

// NewManager creates a token manager with every available backend, most
// secure first
func NewManager() (*Manager, error) {
	var stores []TokenStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "tokens.enc"))
	if err == nil {
		stores = append(stores, encryptedStore)
	}

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves the account in the first backend that accepts it
func (m *Manager) Store(account *Account) error {
	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(account); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr == nil {
		lastErr = ErrStoreUnavailable
	}
	return lastErr
}

// Retrieve returns the account from the first backend that has it
func (m *Manager) Retrieve(name string) (*Account, error) {
	for _, store := range m.stores {
		account, err := store.Retrieve(name)
		if err == nil {
			return account, nil
		}
	}
	return nil, ErrTokenNotFound
}

// Delete removes the account from every backend that has it
func (m *Manager) Delete(name string) error {
	deleted := false
	for _, store := range m.stores {
		if store.Exists(name) {
			if err := store.Delete(name); err == nil {
				deleted = true
			}
		}
	}
	if !deleted {
		return ErrTokenNotFound
	}
	return nil
}

// getConfigDir returns the vkdumper configuration directory, creating it if
// needed
func getConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, "vkdumper")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}
