// Package session holds and persists the transport-level authentication
// state: tokens, expiry, the authenticated flag, and the last error reported
// by the facade. No network calls originate here.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/agiworkforce/go-auth-client/storage"
)

// StorageName is the blob name the session state persists under,
// versioned via storage.Key.
const StorageName = "session"

// DefaultExtendWindow is how far ExtendSession pushes expiry forward from now.
const DefaultExtendWindow = 30 * time.Minute

// Store holds the session state. All methods are safe for concurrent use; the
// token fields are always mutated together under one lock, so readers never
// observe a half-cleared session.
type Store struct {
	lock    sync.RWMutex
	state   State
	lastErr string

	store        storage.Store
	extendWindow time.Duration
	nowTime      func() time.Time
	logger       zerolog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

// WithExtendWindow sets the window ExtendSession pushes expiry forward by.
func WithExtendWindow(window time.Duration) StoreOption {
	return func(s *Store) {
		s.extendWindow = window
	}
}

// WithLogger sets the logger used to report persistence failures.
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a session store persisting to the given storage backend.
func NewStore(store storage.Store, options ...StoreOption) (*Store, error) {
	if store == nil {
		return nil, errors.New("[session.NewStore] storage is required")
	}

	s := &Store{
		store:        store,
		extendWindow: DefaultExtendWindow,
		nowTime:      time.Now,
		logger:       zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Load hydrates the session from storage. Absent, unreadable, or
// already-expired blobs leave the store signed out. A missing DeviceID is
// assigned and written back, so every installation carries a stable ID from
// its first run.
func (s *Store) Load(ctx context.Context) error {
	blob, err := s.store.Get(ctx, storage.Key(StorageName))
	if errors.Is(err, storage.ErrNotFound) {
		s.assignDeviceID()
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[session.Store.Load] storage.Get")
	}

	var state State
	if err := json.Unmarshal(blob, &state); err != nil {
		s.logger.Warn().Err(err).Msg("discarding unreadable session state")
		_ = s.store.Delete(ctx, storage.Key(StorageName))
		s.assignDeviceID()
		return nil
	}

	// A session persisted as authenticated but already expired hydrates as
	// signed out; the tokens are useless and keeping them around only
	// invites an inconsistent authenticated=true state.
	expired := state.Authenticated && !state.ExpiresAt.After(s.nowTime())
	if expired {
		state = State{DeviceID: state.DeviceID, LastLogin: state.LastLogin}
	}

	s.lock.Lock()
	s.state = state
	s.lock.Unlock()

	if state.DeviceID == "" {
		s.assignDeviceID()
	} else if expired {
		// Scrub the stale tokens from storage too.
		s.persist()
	}
	return nil
}

// State returns a copy of the current session state.
func (s *Store) State() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state
}

// Authenticated reports whether a session is currently held.
func (s *Store) Authenticated() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.Authenticated
}

// AccessToken returns the current access token, empty when signed out.
func (s *Store) AccessToken() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.AccessToken
}

// RefreshToken returns the current refresh token, empty when signed out.
func (s *Store) RefreshToken() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.RefreshToken
}

// SetTokens unconditionally marks the session authenticated and stores the
// token triple. No validation of token format is performed.
func (s *Store) SetTokens(accessToken, refreshToken string, expiresAt time.Time) {
	s.lock.Lock()
	s.state.Authenticated = true
	s.state.AccessToken = accessToken
	s.state.RefreshToken = refreshToken
	s.state.ExpiresAt = expiresAt
	s.lock.Unlock()

	s.persist()
}

// ClearTokens clears the token triple and the authenticated flag together.
func (s *Store) ClearTokens() {
	s.lock.Lock()
	s.state.Authenticated = false
	s.state.AccessToken = ""
	s.state.RefreshToken = ""
	s.state.ExpiresAt = time.Time{}
	s.lock.Unlock()

	s.persist()
}

// UpdateLastLogin stamps the current time.
func (s *Store) UpdateLastLogin() {
	s.lock.Lock()
	s.state.LastLogin = s.nowTime()
	s.lock.Unlock()

	s.persist()
}

// CheckSession reports whether the session is live: strictly now < expiry.
// A session is expired at the exact expiry instant.
func (s *Store) CheckSession() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()

	if s.state.ExpiresAt.IsZero() {
		return false
	}
	return s.nowTime().Before(s.state.ExpiresAt)
}

// ExtendSession pushes expiry forward by the configured window from now,
// without contacting the transport. A session with no expiry set is a no-op.
func (s *Store) ExtendSession() {
	s.lock.Lock()
	if s.state.ExpiresAt.IsZero() {
		s.lock.Unlock()
		return
	}
	s.state.ExpiresAt = s.nowTime().Add(s.extendWindow)
	s.lock.Unlock()

	s.persist()
}

// SetError records the last operation error for UI display.
func (s *Store) SetError(msg string) {
	s.lock.Lock()
	s.lastErr = msg
	s.lock.Unlock()
}

// ClearError clears the last operation error.
func (s *Store) ClearError() {
	s.lock.Lock()
	s.lastErr = ""
	s.lock.Unlock()
}

// Error returns the last operation error, empty when none.
func (s *Store) Error() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.lastErr
}

func (s *Store) assignDeviceID() {
	s.lock.Lock()
	if s.state.DeviceID == "" {
		s.state.DeviceID = uuid.New().String()
	}
	s.lock.Unlock()

	s.persist()
}

func (s *Store) persist() {
	s.lock.RLock()
	state := s.state
	s.lock.RUnlock()

	blob, err := json.Marshal(state)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal session state")
		return
	}
	if err := s.store.Put(context.Background(), storage.Key(StorageName), blob); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist session state")
	}
}
