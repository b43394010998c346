package storagefakes

import (
	"context"
	"sync"

	"github.com/agiworkforce/go-auth-client/storage"
)

var _ storage.Store = (*FakeStore)(nil)

// FakeStore is an in-memory storage.Store for tests and for running the client
// without durable persistence.
type FakeStore struct {
	blobs map[string][]byte
	lock  sync.RWMutex

	// PutErr, when set, is returned by every Put. Lets tests exercise
	// persistence-failure paths.
	PutErr error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{blobs: make(map[string][]byte)}
}

func (fs *FakeStore) Get(_ context.Context, key string) ([]byte, error) {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	blob, ok := fs.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, nil
}

func (fs *FakeStore) Put(_ context.Context, key string, value []byte) error {
	if fs.PutErr != nil {
		return fs.PutErr
	}
	fs.lock.Lock()
	defer fs.lock.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	fs.blobs[key] = cp
	return nil
}

func (fs *FakeStore) Delete(_ context.Context, key string) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	delete(fs.blobs, key)
	return nil
}

// Keys returns the stored keys, primarily for assertions.
func (fs *FakeStore) Keys() []string {
	fs.lock.RLock()
	defer fs.lock.RUnlock()

	keys := make([]string, 0, len(fs.blobs))
	for k := range fs.blobs {
		keys = append(keys, k)
	}
	return keys
}
