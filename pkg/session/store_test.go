package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path, "")
	require.NoError(t, err)

	assert.False(t, store.Exists())

	blob := []byte(`{"auth_token": "tok", "ct0": "csrf"}`)
	require.NoError(t, store.Save(blob))
	assert.True(t, store.Exists())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, blob, loaded)

	// Without a passphrase the blob is on disk as-is.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, blob, raw)

	require.NoError(t, store.Delete())
	assert.False(t, store.Exists())
}

func TestFileStoreEncryptedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path, "correct horse")
	require.NoError(t, err)

	blob := []byte(`{"auth_token": "tok", "ct0": "csrf"}`)
	require.NoError(t, store.Save(blob))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, blob, loaded)

	// The plaintext must not appear on disk.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "auth_token")
}

func TestFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path, "right")
	require.NoError(t, err)
	require.NoError(t, store.Save([]byte("secret blob")))

	reopened, err := NewFileStore(path, "wrong")
	require.NoError(t, err)
	_, err = reopened.Load()
	assert.Error(t, err)
}

func TestFileStoreReadsPlainFileWithPassphraseSet(t *testing.T) {
	// A plain cookie file written before encryption was enabled must still
	// load once a passphrase is configured.
	path := filepath.Join(t.TempDir(), "session.json")
	blob := []byte(`{"auth_token": "tok", "ct0": "csrf"}`)
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	store, err := NewFileStore(path, "newly added")
	require.NoError(t, err)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, blob, loaded)
}

func TestFileStoreDeleteMissingIsNoop(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "missing.json"), "")
	require.NoError(t, err)
	assert.NoError(t, store.Delete())
}

func TestSeedFromSecret(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path, "")
	require.NoError(t, err)

	// base64 of {"auth_token":"tok","ct0":"csrf"}
	secret := "eyJhdXRoX3Rva2VuIjoidG9rIiwiY3QwIjoiY3NyZiJ9"
	require.NoError(t, SeedFromSecret(store, secret))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.JSONEq(t, `{"auth_token": "tok", "ct0": "csrf"}`, string(loaded))
}

func TestSeedFromSecretDoesNotOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path, "")
	require.NoError(t, err)
	require.NoError(t, store.Save([]byte("existing")))

	require.NoError(t, SeedFromSecret(store, "aWdub3JlZA=="))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []byte("existing"), loaded)
}

func TestSeedFromSecretRejectsGarbage(t *testing.T) {
	store, err := NewFileStore(filepath.Join(t.TempDir(), "session.json"), "")
	require.NoError(t, err)
	assert.Error(t, SeedFromSecret(store, "!!not base64!!"))
	assert.NoError(t, SeedFromSecret(store, ""))
}
