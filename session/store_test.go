package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/agiworkforce/go-auth-client/session"
	"github.com/agiworkforce/go-auth-client/storage"
	"github.com/agiworkforce/go-auth-client/storage/storagefakes"
)

const (
	testAccessToken  = "access-token-1"
	testRefreshToken = "refresh-token-1"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, store storage.Store) *session.Store {
	t.Helper()

	s, err := session.NewStore(store, session.WithNowTime(func() time.Time { return testNow }))
	require.NoError(t, err)
	return s
}

func TestNewStore_RequiresStorage(t *testing.T) {
	_, err := session.NewStore(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "storage is required")
}

// TestSetThenClearTokens_RestoresInitialState covers the round-trip property:
// after SetTokens followed by ClearTokens every token-related field is back to
// its zero value.
func TestSetThenClearTokens_RestoresInitialState(t *testing.T) {
	s := newTestStore(t, storagefakes.NewFakeStore())

	initial := s.State()
	s.SetTokens(testAccessToken, testRefreshToken, testNow.Add(time.Hour))
	require.True(t, s.Authenticated())

	s.ClearTokens()

	state := s.State()
	require.False(t, state.Authenticated)
	require.Empty(t, state.AccessToken)
	require.Empty(t, state.RefreshToken)
	require.True(t, state.ExpiresAt.IsZero())
	require.Equal(t, initial.Authenticated, state.Authenticated)
	require.Equal(t, initial.AccessToken, state.AccessToken)
	require.Equal(t, initial.RefreshToken, state.RefreshToken)
	require.Equal(t, initial.ExpiresAt, state.ExpiresAt)
}

func TestSetTokens_MarksAuthenticated(t *testing.T) {
	s := newTestStore(t, storagefakes.NewFakeStore())

	s.SetTokens(testAccessToken, testRefreshToken, testNow.Add(time.Hour))

	state := s.State()
	require.True(t, state.Authenticated)
	require.Equal(t, testAccessToken, state.AccessToken)
	require.Equal(t, testRefreshToken, state.RefreshToken)
	require.Equal(t, testNow.Add(time.Hour), state.ExpiresAt)
}

// TestCheckSession_Boundary pins the strict < comparison: the session is live
// one instant before expiry and already expired at the exact expiry instant.
func TestCheckSession_Boundary(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{name: "expiry in the future", expiresAt: testNow.Add(time.Nanosecond), want: true},
		{name: "expiry exactly now", expiresAt: testNow, want: false},
		{name: "expiry in the past", expiresAt: testNow.Add(-time.Nanosecond), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t, storagefakes.NewFakeStore())
			s.SetTokens(testAccessToken, testRefreshToken, tt.expiresAt)
			require.Equal(t, tt.want, s.CheckSession())
		})
	}
}

func TestCheckSession_NoExpirySet(t *testing.T) {
	s := newTestStore(t, storagefakes.NewFakeStore())
	require.False(t, s.CheckSession())
}

// TestExtendSession_NoExpiryIsNoOp: extending a
// session that has no expiry set must not set one, and must not panic.
func TestExtendSession_NoExpiryIsNoOp(t *testing.T) {
	s := newTestStore(t, storagefakes.NewFakeStore())

	s.ExtendSession()

	require.True(t, s.State().ExpiresAt.IsZero())
	require.False(t, s.CheckSession())
}

func TestExtendSession_PushesExpiryFromNow(t *testing.T) {
	fake := storagefakes.NewFakeStore()
	s, err := session.NewStore(fake,
		session.WithNowTime(func() time.Time { return testNow }),
		session.WithExtendWindow(10*time.Minute),
	)
	require.NoError(t, err)

	// Nearly-expired session gets a fresh window from now, not from the old
	// expiry.
	s.SetTokens(testAccessToken, testRefreshToken, testNow.Add(time.Second))
	s.ExtendSession()

	require.Equal(t, testNow.Add(10*time.Minute), s.State().ExpiresAt)
}

func TestUpdateLastLogin(t *testing.T) {
	s := newTestStore(t, storagefakes.NewFakeStore())

	s.UpdateLastLogin()

	require.Equal(t, testNow, s.State().LastLogin)
}

func TestErrorSlot(t *testing.T) {
	s := newTestStore(t, storagefakes.NewFakeStore())

	s.SetError("invalid credentials")
	require.Equal(t, "invalid credentials", s.Error())

	s.ClearError()
	require.Empty(t, s.Error())
}

func TestLoad_RoundTripsPersistedState(t *testing.T) {
	fake := storagefakes.NewFakeStore()

	first := newTestStore(t, fake)
	require.NoError(t, first.Load(context.Background()))
	first.SetTokens(testAccessToken, testRefreshToken, testNow.Add(time.Hour))
	first.UpdateLastLogin()
	deviceID := first.State().DeviceID
	require.NotEmpty(t, deviceID)

	second := newTestStore(t, fake)
	require.NoError(t, second.Load(context.Background()))

	state := second.State()
	require.True(t, state.Authenticated)
	require.Equal(t, testAccessToken, state.AccessToken)
	require.Equal(t, testRefreshToken, state.RefreshToken)
	require.Equal(t, testNow, state.LastLogin)
	require.Equal(t, deviceID, state.DeviceID, "device ID is stable across restarts")
}

func TestLoad_ExpiredSessionHydratesSignedOut(t *testing.T) {
	fake := storagefakes.NewFakeStore()

	first := newTestStore(t, fake)
	require.NoError(t, first.Load(context.Background()))
	first.SetTokens(testAccessToken, testRefreshToken, testNow.Add(-time.Minute))

	second := newTestStore(t, fake)
	require.NoError(t, second.Load(context.Background()))

	state := second.State()
	require.False(t, state.Authenticated)
	require.Empty(t, state.AccessToken)
	require.Empty(t, state.RefreshToken)
}

func TestLoad_CorruptBlobIsDiscarded(t *testing.T) {
	fake := storagefakes.NewFakeStore()
	require.NoError(t, fake.Put(context.Background(), storage.Key(session.StorageName), []byte("{not json")))

	s := newTestStore(t, fake)
	require.NoError(t, s.Load(context.Background()))
	require.False(t, s.Authenticated())
}

func TestLoad_AbsentBlobAssignsDeviceID(t *testing.T) {
	s := newTestStore(t, storagefakes.NewFakeStore())

	require.NoError(t, s.Load(context.Background()))

	require.NotEmpty(t, s.State().DeviceID)
	require.False(t, s.Authenticated())
}

// Persistence failures must never break in-memory state transitions.
func TestSetTokens_PersistFailureKeepsMemoryState(t *testing.T) {
	fake := storagefakes.NewFakeStore()
	fake.PutErr = context.DeadlineExceeded

	s := newTestStore(t, fake)
	s.SetTokens(testAccessToken, testRefreshToken, testNow.Add(time.Hour))

	require.True(t, s.Authenticated())
}
