// Package profile holds the decoded user snapshot and supports partial merge
// updates. A nil snapshot means anonymous; a non-nil snapshot means an
// authenticated user is loaded. There is no separate "authenticated" flag to
// drift out of sync with the data.
package profile

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	apperrors "github.com/agiworkforce/go-auth-client/internal/errors"
	"github.com/agiworkforce/go-auth-client/storage"
)

// StorageName is the blob name the profile snapshot persists under,
// versioned via storage.Key.
const StorageName = "profile"

// Store holds the profile snapshot. All methods are safe for concurrent use.
type Store struct {
	lock    sync.RWMutex
	user    *User
	store   storage.Store
	nowTime func() time.Time
	logger  zerolog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// WithLogger sets the logger used to report persistence failures.
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a profile store persisting to the given storage backend.
func NewStore(store storage.Store, options ...StoreOption) (*Store, error) {
	if store == nil {
		return nil, errors.New("[profile.NewStore] storage is required")
	}

	s := &Store{
		store:   store,
		nowTime: time.Now,
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Load hydrates the snapshot from storage. Absent or unreadable blobs leave
// the store anonymous; only unexpected storage failures are returned.
func (s *Store) Load(ctx context.Context) error {
	blob, err := s.store.Get(ctx, storage.Key(StorageName))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[profile.Store.Load] storage.Get")
	}

	var user User
	if err := json.Unmarshal(blob, &user); err != nil {
		// Corrupt or pre-version-bump blob: discard rather than migrate.
		s.logger.Warn().Err(err).Msg("discarding unreadable profile snapshot")
		_ = s.store.Delete(ctx, storage.Key(StorageName))
		return nil
	}

	s.lock.Lock()
	s.user = &user
	s.lock.Unlock()
	return nil
}

// User returns a copy of the current snapshot, or nil when anonymous.
func (s *Store) User() *User {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.user == nil {
		return nil
	}
	cp := *s.user
	return &cp
}

// SetSnapshot replaces the snapshot wholesale. A non-nil user gets its
// LastActive stamped; nil clears the store.
func (s *Store) SetSnapshot(user *User) {
	s.lock.Lock()
	if user != nil {
		cp := *user
		cp.LastActive = s.nowTime()
		s.user = &cp
	} else {
		s.user = nil
	}
	s.lock.Unlock()

	s.persist()
}

// Clear drops the snapshot and its persisted blob.
func (s *Store) Clear() {
	s.lock.Lock()
	s.user = nil
	s.lock.Unlock()

	if err := s.store.Delete(context.Background(), storage.Key(StorageName)); err != nil {
		s.logger.Warn().Err(err).Msg("failed to delete persisted profile")
	}
}

// UpdateProfile shallow-merges the patch into the nested Profile sub-object
// only and stamps UpdatedAt. Returns ErrNoSession when no snapshot is loaded.
func (s *Store) UpdateProfile(patch ProfilePatch) error {
	s.lock.Lock()
	if s.user == nil {
		s.lock.Unlock()
		return apperrors.ErrNoSession
	}

	p := &s.user.Profile
	if patch.FirstName != nil {
		p.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		p.LastName = *patch.LastName
	}
	if patch.Company != nil {
		p.Company = *patch.Company
	}
	if patch.Bio != nil {
		p.Bio = *patch.Bio
	}
	if patch.Timezone != nil {
		p.Timezone = *patch.Timezone
	}
	if patch.Notifications != nil {
		p.Notifications = *patch.Notifications
	}
	s.user.UpdatedAt = s.nowTime()
	s.lock.Unlock()

	s.persist()
	return nil
}

// UpdateUser shallow-merges the patch into the top-level user record.
// Returns ErrNoSession when no snapshot is loaded.
func (s *Store) UpdateUser(patch UserPatch) error {
	s.lock.Lock()
	if s.user == nil {
		s.lock.Unlock()
		return apperrors.ErrNoSession
	}

	if patch.DisplayName != nil {
		s.user.DisplayName = *patch.DisplayName
	}
	if patch.AvatarURL != nil {
		s.user.AvatarURL = *patch.AvatarURL
	}
	if patch.Plan != nil {
		s.user.Plan = *patch.Plan
	}
	s.user.UpdatedAt = s.nowTime()
	s.lock.Unlock()

	s.persist()
	return nil
}

func (s *Store) persist() {
	// Marshal a copy taken under the lock; the live struct is patched in
	// place by UpdateProfile/UpdateUser and must never be read unlocked.
	s.lock.RLock()
	var user *User
	if s.user != nil {
		cp := *s.user
		user = &cp
	}
	s.lock.RUnlock()

	key := storage.Key(StorageName)
	if user == nil {
		if err := s.store.Delete(context.Background(), key); err != nil {
			s.logger.Warn().Err(err).Msg("failed to delete persisted profile")
		}
		return
	}

	blob, err := json.Marshal(user)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal profile snapshot")
		return
	}
	if err := s.store.Put(context.Background(), key, blob); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist profile snapshot")
	}
}
