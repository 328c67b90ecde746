package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentStoreRetrieve(t *testing.T) {
	t.Setenv("VKDUMP_ACCESS_TOKEN", "env-token")
	store := NewEnvironmentStore()

	account, err := store.Retrieve("default")
	require.NoError(t, err)
	assert.Equal(t, "env-token", account.AccessToken)
	assert.Equal(t, "default", account.Name)
	assert.True(t, store.Exists("default"))
}

func TestEnvironmentStoreEmpty(t *testing.T) {
	t.Setenv("VKDUMP_ACCESS_TOKEN", "")
	store := NewEnvironmentStore()

	_, err := store.Retrieve("default")
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.False(t, store.Exists("default"))
}

func TestEnvironmentStoreIsReadOnly(t *testing.T) {
	store := NewEnvironmentStore()

	assert.ErrorIs(t, store.Store(&Account{Name: "x", AccessToken: "y"}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("x"), ErrStoreUnavailable)
}
