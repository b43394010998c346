// Package filestore implements storage.Store on the local filesystem, one file
// per key. Writes go through a temp file and rename so a crash mid-write never
// leaves a truncated blob. Blobs can optionally be sealed at rest with
// XChaCha20-Poly1305, keyed from a passphrase via scrypt.
package filestore

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"github.com/agiworkforce/go-auth-client/storage"
)

// scrypt parameters for passphrase-derived sealing keys.
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// saltFile holds the per-installation scrypt salt alongside the sealed blobs.
const saltFile = ".salt"

var _ storage.Store = (*FileStore)(nil)

type FileStore struct {
	dir  string
	aead func() ([]byte, error) // nil when sealing is disabled
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithPassphrase seals every blob with XChaCha20-Poly1305 using a key derived
// from the passphrase. The scrypt salt is generated on first use and stored in
// the data directory. Derivation runs once; the key is cached for the life of
// the store.
func WithPassphrase(passphrase string) Option {
	return func(fs *FileStore) {
		var (
			once sync.Once
			key  []byte
			err  error
		)
		fs.aead = func() ([]byte, error) {
			once.Do(func() {
				var salt []byte
				salt, err = fs.loadOrCreateSalt()
				if err != nil {
					return
				}
				key, err = scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
			})
			return key, err
		}
	}
}

// New creates a FileStore rooted at dir, creating the directory if needed.
func New(dir string, options ...Option) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("[filestore.New] dir is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "[filestore.New] MkdirAll")
	}

	fs := &FileStore{dir: dir}
	for _, opt := range options {
		opt(fs)
	}
	return fs, nil
}

func (fs *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	blob, err := os.ReadFile(fs.path(key))
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.Get] ReadFile")
	}
	if fs.aead == nil {
		return blob, nil
	}
	return fs.unseal(blob)
}

func (fs *FileStore) Put(_ context.Context, key string, value []byte) error {
	blob := value
	if fs.aead != nil {
		sealed, err := fs.seal(value)
		if err != nil {
			return err
		}
		blob = sealed
	}

	tmp, err := os.CreateTemp(fs.dir, key+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "[FileStore.Put] CreateTemp")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "[FileStore.Put] Write")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "[FileStore.Put] Close")
	}
	if err := os.Rename(tmpName, fs.path(key)); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "[FileStore.Put] Rename")
	}
	return nil
}

func (fs *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(fs.path(key))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Delete] Remove")
	}
	return nil
}

func (fs *FileStore) path(key string) string {
	// Keys are internal names ("session.v1"), never user input, but keep them
	// from escaping the data directory anyway.
	return filepath.Join(fs.dir, filepath.Base(key)+".json")
}

func (fs *FileStore) seal(plaintext []byte) ([]byte, error) {
	key, err := fs.aead()
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.seal] NewX")
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, "[FileStore.seal] rand.Read")
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func (fs *FileStore) unseal(blob []byte) ([]byte, error) {
	key, err := fs.aead()
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.unseal] NewX")
	}
	if len(blob) < aead.NonceSize() {
		return nil, errors.New("[FileStore.unseal] sealed blob too short")
	}
	nonce, ciphertext := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore.unseal] Open")
	}
	return plaintext, nil
}

func (fs *FileStore) loadOrCreateSalt() ([]byte, error) {
	saltPath := filepath.Join(fs.dir, saltFile)
	salt, err := os.ReadFile(saltPath)
	if err == nil && len(salt) == 32 {
		return salt, nil
	}
	salt = make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "[FileStore.loadOrCreateSalt] rand.Read")
	}
	if err := os.WriteFile(saltPath, salt, 0o600); err != nil {
		return nil, errors.Wrap(err, "[FileStore.loadOrCreateSalt] WriteFile")
	}
	return salt, nil
}
