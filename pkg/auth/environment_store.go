package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements TokenStore using the VKDUMP_ACCESS_TOKEN
// environment variable. It is read only and serves as the last resort.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment backed store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve gets the token from the environment
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	token := os.Getenv("VKDUMP_ACCESS_TOKEN")
	if token == "" {
		return nil, ErrTokenNotFound
	}
	if name == "" {
		name = DefaultAccount
	}
	return &Account{
		Name:         name,
		AccessToken:  token,
		LastModified: time.Now(),
	}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks whether the environment token is set
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv("VKDUMP_ACCESS_TOKEN") != ""
}
