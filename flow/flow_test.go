package flow_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agiworkforce/go-auth-client/flow"
)

func TestBegin_ChecksAndSets(t *testing.T) {
	s := flow.NewStore()

	require.True(t, s.Begin(flow.OpRefresh))
	require.False(t, s.Begin(flow.OpRefresh), "second Begin of the same op must lose")
	require.True(t, s.Begin(flow.OpSignIn), "different op is independent")

	s.End(flow.OpRefresh)
	require.True(t, s.Begin(flow.OpRefresh), "op can begin again after End")
}

func TestBegin_OnlyOneWinnerUnderContention(t *testing.T) {
	s := flow.NewStore()

	const goroutines = 32
	var wg sync.WaitGroup
	var winnersLock sync.Mutex
	winners := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Begin(flow.OpRefresh) {
				winnersLock.Lock()
				winners++
				winnersLock.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, winners)
}

func TestEnd_WithoutBeginIsSafe(t *testing.T) {
	s := flow.NewStore()

	s.End(flow.OpSignOut)

	require.False(t, s.InFlight(flow.OpSignOut))
}

func TestFlags_Snapshot(t *testing.T) {
	s := flow.NewStore()
	s.Begin(flow.OpSignIn)
	s.Begin(flow.OpRefresh)
	s.SetError("invalid credentials")

	flags := s.Flags()

	require.True(t, flags.SigningIn)
	require.False(t, flags.SigningUp)
	require.False(t, flags.SigningOut)
	require.True(t, flags.Refreshing)
	require.Equal(t, "invalid credentials", flags.Error)
}

func TestClearError(t *testing.T) {
	s := flow.NewStore()
	s.SetError("invalid credentials")

	s.ClearError()

	require.Empty(t, s.Flags().Error)
}

func TestReset_ReturnsAllToDefaults(t *testing.T) {
	s := flow.NewStore()
	s.Begin(flow.OpSignIn)
	s.Begin(flow.OpSignUp)
	s.Begin(flow.OpSignOut)
	s.Begin(flow.OpRefresh)
	s.SetError("boom")

	s.Reset()

	require.Equal(t, flow.Flags{}, s.Flags())
	require.True(t, s.Begin(flow.OpSignIn), "flags usable again after reset")
}
