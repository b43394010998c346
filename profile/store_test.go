package profile_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/agiworkforce/go-auth-client/internal/errors"
	"github.com/agiworkforce/go-auth-client/internal/utils"
	"github.com/agiworkforce/go-auth-client/profile"
	"github.com/agiworkforce/go-auth-client/storage/storagefakes"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *profile.Store {
	t.Helper()

	s, err := profile.NewStore(storagefakes.NewFakeStore(),
		profile.WithNowTime(func() time.Time { return testNow }))
	require.NoError(t, err)
	return s
}

func testUser() *profile.User {
	return &profile.User{
		ID:          "user-1",
		Email:       "jane@example.com",
		DisplayName: "Jane",
		Role:        profile.RoleUser,
		Plan:        profile.PlanPro,
		Profile: profile.Profile{
			FirstName: "Jane",
			LastName:  "Doe",
			Timezone:  "Europe/London",
		},
		Usage: profile.Usage{TokensUsed: 1200, TokensLimit: 100000},
	}
}

func TestNewStore_RequiresStorage(t *testing.T) {
	_, err := profile.NewStore(nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "storage is required")
}

func TestSetSnapshot_StampsLastActive(t *testing.T) {
	s := newTestStore(t)

	s.SetSnapshot(testUser())

	got := s.User()
	require.NotNil(t, got)
	require.Equal(t, testNow, got.LastActive)
}

func TestSetSnapshot_NilClears(t *testing.T) {
	s := newTestStore(t)
	s.SetSnapshot(testUser())

	s.SetSnapshot(nil)

	require.Nil(t, s.User())
}

// TestUpdateProfile_NoSnapshot: patching with no
// user loaded is rejected explicitly and leaves the store anonymous.
func TestUpdateProfile_NoSnapshot(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateProfile(profile.ProfilePatch{Bio: utils.Ptr("new")})

	require.ErrorIs(t, err, apperrors.ErrNoSession)
	require.Nil(t, s.User())
}

func TestUpdateUser_NoSnapshot(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateUser(profile.UserPatch{DisplayName: utils.Ptr("New Name")})

	require.ErrorIs(t, err, apperrors.ErrNoSession)
	require.Nil(t, s.User())
}

// UpdateProfile merges into the nested profile only: unset patch fields and
// billing/usage are untouched.
func TestUpdateProfile_ShallowMerge(t *testing.T) {
	s := newTestStore(t)
	s.SetSnapshot(testUser())

	err := s.UpdateProfile(profile.ProfilePatch{
		Bio:     utils.Ptr("builder of things"),
		Company: utils.Ptr("AGI Workforce"),
	})
	require.NoError(t, err)

	got := s.User()
	require.Equal(t, "builder of things", got.Profile.Bio)
	require.Equal(t, "AGI Workforce", got.Profile.Company)
	require.Equal(t, "Jane", got.Profile.FirstName, "unpatched field untouched")
	require.Equal(t, "Europe/London", got.Profile.Timezone, "unpatched field untouched")
	require.Equal(t, int64(1200), got.Usage.TokensUsed, "usage untouched by profile patch")
	require.Equal(t, testNow, got.UpdatedAt)
}

func TestUpdateUser_TopLevelMerge(t *testing.T) {
	s := newTestStore(t)
	s.SetSnapshot(testUser())

	err := s.UpdateUser(profile.UserPatch{
		DisplayName: utils.Ptr("Jane D."),
		Plan:        utils.Ptr(profile.PlanEnterprise),
	})
	require.NoError(t, err)

	got := s.User()
	require.Equal(t, "Jane D.", got.DisplayName)
	require.Equal(t, profile.PlanEnterprise, got.Plan)
	require.Equal(t, "jane@example.com", got.Email, "unpatched field untouched")
	require.Equal(t, "Doe", got.Profile.LastName, "nested profile untouched by user patch")
}

// Persistence marshals a copy taken under the lock, so concurrent patches
// never race with serialization. The race detector enforces this.
func TestConcurrentPatches_DoNotRaceWithPersist(t *testing.T) {
	s := newTestStore(t)
	s.SetSnapshot(testUser())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.UpdateProfile(profile.ProfilePatch{Bio: utils.Ptr("concurrent bio")})
				_ = s.UpdateUser(profile.UserPatch{DisplayName: utils.Ptr("Concurrent Name")})
			}
		}()
	}
	wg.Wait()

	got := s.User()
	require.Equal(t, "concurrent bio", got.Profile.Bio)
	require.Equal(t, "Concurrent Name", got.DisplayName)
}

func TestUser_ReturnsCopy(t *testing.T) {
	s := newTestStore(t)
	s.SetSnapshot(testUser())

	first := s.User()
	first.DisplayName = "mutated"

	require.Equal(t, "Jane", s.User().DisplayName)
}

func TestLoad_RoundTripsSnapshot(t *testing.T) {
	fake := storagefakes.NewFakeStore()

	first, err := profile.NewStore(fake, profile.WithNowTime(func() time.Time { return testNow }))
	require.NoError(t, err)
	first.SetSnapshot(testUser())

	second, err := profile.NewStore(fake)
	require.NoError(t, err)
	require.NoError(t, second.Load(context.Background()))

	got := second.User()
	require.NotNil(t, got)
	require.Equal(t, "jane@example.com", got.Email)
	require.Equal(t, profile.PlanPro, got.Plan)
}

func TestClear_RemovesPersistedSnapshot(t *testing.T) {
	fake := storagefakes.NewFakeStore()

	first, err := profile.NewStore(fake)
	require.NoError(t, err)
	first.SetSnapshot(testUser())
	first.Clear()

	second, err := profile.NewStore(fake)
	require.NoError(t, err)
	require.NoError(t, second.Load(context.Background()))
	require.Nil(t, second.User())
}
