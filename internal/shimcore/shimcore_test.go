package shimcore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hklmshim/internal/config"
)

func testConfig(t *testing.T) config.Shim {
	t.Helper()
	return config.Shim{
		OverlayPath: filepath.Join(t.TempDir(), "overlay.sqlite"),
		HookScope:   config.ScopeFull,
	}
}

func TestBootstrapAssemblesDispatchStack(t *testing.T) {
	s, err := Bootstrap(testConfig(t))
	require.NoError(t, err)
	require.NotNil(t, s.Store)
	require.NotNil(t, s.Handles)
	require.NotNil(t, s.Engine)
	require.NotNil(t, s.Dispatcher)
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestInstallAsyncMarksReadyAndHealthy(t *testing.T) {
	s, err := Bootstrap(testConfig(t))
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	s.InstallAsync(func(string) uintptr { return 0 })
	require.Eventually(t, s.Ready, time.Second, time.Millisecond)
	require.True(t, s.Healthy())
}

func TestInstallAsyncWithScopeOffSkipsInstallButReportsHealthy(t *testing.T) {
	cfg := testConfig(t)
	cfg.HookScope = config.ScopeOff
	s, err := Bootstrap(cfg)
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	s.InstallAsync(func(string) uintptr { return 0 })
	require.Eventually(t, s.Ready, time.Second, time.Millisecond)
	require.True(t, s.Healthy())
}

func TestShutdownIsIdempotentWithoutInstall(t *testing.T) {
	s, err := Bootstrap(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, s.Shutdown(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))
}
