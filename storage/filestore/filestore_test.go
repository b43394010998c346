package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agiworkforce/go-auth-client/storage"
	"github.com/agiworkforce/go-auth-client/storage/filestore"
)

func TestNew_RequiresDir(t *testing.T) {
	_, err := filestore.New("  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "dir is required")
}

func TestPutGetDelete_RoundTrip(t *testing.T) {
	fs, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	key := storage.Key("session")

	_, err = fs.Get(ctx, key)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, fs.Put(ctx, key, []byte(`{"authenticated":true}`)))

	blob, err := fs.Get(ctx, key)
	require.NoError(t, err)
	require.JSONEq(t, `{"authenticated":true}`, string(blob))

	require.NoError(t, fs.Delete(ctx, key))
	_, err = fs.Get(ctx, key)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPut_OverwritesPreviousBlob(t *testing.T) {
	fs, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	key := storage.Key("profile")

	require.NoError(t, fs.Put(ctx, key, []byte("one")))
	require.NoError(t, fs.Put(ctx, key, []byte("two")))

	blob, err := fs.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "two", string(blob))
}

func TestDelete_AbsentKeyIsSafe(t *testing.T) {
	fs, err := filestore.New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, fs.Delete(context.Background(), storage.Key("session")))
}

func TestSealed_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs, err := filestore.New(dir, filestore.WithPassphrase("correct horse battery staple"))
	require.NoError(t, err)
	ctx := context.Background()
	key := storage.Key("session")
	plaintext := []byte(`{"access_token":"secret"}`)

	require.NoError(t, fs.Put(ctx, key, plaintext))

	blob, err := fs.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, plaintext, blob)

	// A second store over the same dir and passphrase reads the same salt and
	// can unseal.
	reopened, err := filestore.New(dir, filestore.WithPassphrase("correct horse battery staple"))
	require.NoError(t, err)
	blob, err = reopened.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, plaintext, blob)
}

// The sealing key is derived once and cached: after the first operation the
// salt file is no longer consulted.
func TestSealed_KeyIsCachedAfterFirstUse(t *testing.T) {
	dir := t.TempDir()
	fs, err := filestore.New(dir, filestore.WithPassphrase("pass"))
	require.NoError(t, err)
	ctx := context.Background()
	key := storage.Key("session")

	require.NoError(t, fs.Put(ctx, key, []byte("one")))
	require.NoError(t, os.Remove(filepath.Join(dir, ".salt")))

	require.NoError(t, fs.Put(ctx, key, []byte("two")))
	blob, err := fs.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, "two", string(blob))
}

func TestSealed_WrongPassphraseFails(t *testing.T) {
	dir := t.TempDir()
	fs, err := filestore.New(dir, filestore.WithPassphrase("right"))
	require.NoError(t, err)
	ctx := context.Background()
	key := storage.Key("session")

	require.NoError(t, fs.Put(ctx, key, []byte("secret")))

	wrong, err := filestore.New(dir, filestore.WithPassphrase("wrong"))
	require.NoError(t, err)
	_, err = wrong.Get(ctx, key)
	require.Error(t, err)
}

func TestSealed_BlobIsNotPlaintextOnDisk(t *testing.T) {
	dir := t.TempDir()
	fs, err := filestore.New(dir, filestore.WithPassphrase("pass"))
	require.NoError(t, err)
	ctx := context.Background()
	key := storage.Key("session")

	require.NoError(t, fs.Put(ctx, key, []byte("very-secret-token")))

	raw, err := filestore.New(dir)
	require.NoError(t, err)
	blob, err := raw.Get(ctx, key)
	require.NoError(t, err)
	require.NotContains(t, string(blob), "very-secret-token")
}
