package auth

import (
	"testing"

	"ccmonitor/cli/internal/keychain"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore() *keychain.Manager {
	return keychain.NewWithKeyring(keyring.NewArrayKeyring(nil))
}

func TestLoadEmptyStore(t *testing.T) {
	t.Setenv(EnvKey, "")
	t.Setenv(EnvSecret, "")

	c, err := Load(newStore())
	require.NoError(t, err)
	assert.Equal(t, SourceNone, c.Source)
	assert.False(t, c.Present())
}

func TestSaveThenLoadFromKeychain(t *testing.T) {
	t.Setenv(EnvKey, "")
	t.Setenv(EnvSecret, "")
	store := newStore()

	require.NoError(t, Save(store, Credentials{Key: "org1", Secret: "s3cret", IoTAuthToken: "tok"}))

	c, err := Load(store)
	require.NoError(t, err)
	assert.Equal(t, SourceKeychain, c.Source)
	assert.Equal(t, "org1", c.Key)
	assert.Equal(t, "s3cret", c.Secret)
	assert.Equal(t, "tok", c.IoTAuthToken)

	require.NoError(t, Clear(store))
	c, err = Load(store)
	require.NoError(t, err)
	assert.False(t, c.Present())
}

func TestEnvironmentWins(t *testing.T) {
	store := newStore()
	require.NoError(t, Save(store, Credentials{Key: "org1", Secret: "s3cret"}))
	t.Setenv(EnvKey, "ci")
	t.Setenv(EnvSecret, "ci-secret")

	c, err := Load(store)
	require.NoError(t, err)
	assert.Equal(t, SourceEnv, c.Source)
	assert.Equal(t, "ci", c.Key)
}

func TestSaveRequiresBothHalves(t *testing.T) {
	require.Error(t, Save(newStore(), Credentials{Key: "org1"}))
}

func TestLoadWithoutStore(t *testing.T) {
	t.Setenv(EnvKey, "")
	t.Setenv(EnvSecret, "")
	c, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, SourceNone, c.Source)
}
