package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *EncryptedFileStore {
	t.Helper()
	t.Setenv(storeKeyEnvName, "test-passphrase")
	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "tokens.enc"))
	require.NoError(t, err)
	return store
}

func TestEncryptedStoreRequiresPassphrase(t *testing.T) {
	t.Setenv(storeKeyEnvName, "")
	_, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "tokens.enc"))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestEncryptedStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Store(&Account{Name: "default", AccessToken: "secret-token"}))

	account, err := store.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "secret-token", account.AccessToken)
	assert.True(t, store.Exists("default"))
	assert.False(t, store.Exists("other"))
}

func TestEncryptedStoreFileIsOpaque(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Store(&Account{Name: "default", AccessToken: "secret-token"}))

	raw, err := os.ReadFile(store.path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-token")
	assert.NotContains(t, string(raw), "default")
}

func TestEncryptedStoreRejectsWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.enc")

	t.Setenv(storeKeyEnvName, "right")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Name: "default", AccessToken: "secret"}))

	t.Setenv(storeKeyEnvName, "wrong")
	store2, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = store2.Retrieve("default")
	assert.Error(t, err)
}

func TestEncryptedStoreDelete(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Store(&Account{Name: "default", AccessToken: "secret"}))

	require.NoError(t, store.Delete("default"))
	_, err := store.Retrieve("default")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.ErrorIs(t, store.Delete("default"), ErrTokenNotFound)
}

func TestEncryptedStoreValidatesAccount(t *testing.T) {
	store := newTestStore(t)

	assert.ErrorIs(t, store.Store(nil), ErrInvalidAccount)
	assert.ErrorIs(t, store.Store(&Account{Name: "x"}), ErrInvalidAccount)
	assert.ErrorIs(t, store.Store(&Account{AccessToken: "x"}), ErrInvalidAccount)

	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrInvalidAccount)
}

func TestEncryptedStoreMissingAccount(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Retrieve("nope")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
