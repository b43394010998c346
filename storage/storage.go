// Package storage defines the keyed, versioned blob store used to persist
// session and profile snapshots between process runs. Implementations live in
// subpackages (filestore, redisstore) with an in-memory fake in storagefakes.
package storage

import (
	"context"
	"fmt"

	"github.com/agiworkforce/go-auth-client/internal/errors"
)

// SchemaVersion is embedded in every storage key. Bumping it orphans previously
// written blobs, which readers treat as absent (stale sessions are discarded
// rather than migrated).
const SchemaVersion = 1

// Store persists opaque blobs under string keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// ErrNotFound is returned by Get when no blob exists under the key.
var ErrNotFound = errors.ErrNotFound

// Key returns the versioned storage key for a named blob.
func Key(name string) string {
	return fmt.Sprintf("%s.v%d", name, SchemaVersion)
}
