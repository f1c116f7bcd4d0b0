package process

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(t.TempDir())
	t.Cleanup(func() {
		m.CleanupPID()
		m.CleanupRef()
	})
	return m
}

func TestManager_WritePIDThenReadPIDRoundTrips(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.WritePID())
	require.Equal(t, os.Getpid(), m.ReadPID())
}

func TestManager_ReadPID_MissingFileReturnsZero(t *testing.T) {
	m := newTestManager(t)

	require.Equal(t, 0, m.ReadPID())
}

func TestManager_IsRunning_TrueForOwnProcess(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.WritePID())

	require.True(t, m.IsRunning())
}

func TestManager_IsRunning_CleansUpStalePIDFile(t *testing.T) {
	m := newTestManager(t)
	require.NoError(t, m.WritePID())

	// Overwrite with a PID that (almost certainly) isn't alive.
	require.NoError(t, os.WriteFile(m.pidFile, []byte("999999"), 0o600))

	require.False(t, m.IsRunning())
	require.Equal(t, 0, m.ReadPID())
}

func TestManager_RefCounting_IncrementsAndDecrements(t *testing.T) {
	m := newTestManager(t)
	m.CleanupRef()

	require.Equal(t, 0, m.ReadRef())

	m.IncrementRef()
	m.IncrementRef()
	require.Equal(t, 2, m.ReadRef())

	m.DecrementRef()
	require.Equal(t, 1, m.ReadRef())
}

func TestManager_RefCounting_DecrementNeverGoesNegative(t *testing.T) {
	m := newTestManager(t)
	m.CleanupRef()

	m.DecrementRef()
	require.Equal(t, 0, m.ReadRef())
}
