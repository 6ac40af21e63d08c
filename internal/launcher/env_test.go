package launcher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShimConfigFromOptionsNoDebug(t *testing.T) {
	opts := Options{OverlayPath: "overlay.sqlite"}
	cfg := shimConfigFromOptions(opts, 42)
	require.Equal(t, "overlay.sqlite", cfg.OverlayPath)
	require.False(t, cfg.TracingEnabled())
	require.Equal(t, "Local\\hklmshim_ready_42", cfg.Rendezvous)
}

func TestShimConfigFromOptionsWithDebugAll(t *testing.T) {
	opts := Options{OverlayPath: "overlay.sqlite", DebugFilter: "all"}
	cfg := shimConfigFromOptions(opts, 42)
	require.True(t, cfg.TracingEnabled())
	require.Equal(t, []string{"all"}, cfg.DebugFilter)
	require.Equal(t, `\\.\pipe\hklmshim_debug_42`, cfg.DebugPipePath)
}

func TestShimConfigFromOptionsWithDebugList(t *testing.T) {
	opts := Options{OverlayPath: "overlay.sqlite", DebugFilter: "RegOpenKeyExW, RegQueryValueExW"}
	cfg := shimConfigFromOptions(opts, 7)
	require.Equal(t, []string{"RegOpenKeyExW", "RegQueryValueExW"}, cfg.DebugFilter)
}

func TestEnvNameForFlag(t *testing.T) {
	require.Equal(t, "HKLMSHIM_ADDON_SCALE_METHOD", envNameForFlag("--scale-method"))
	require.Equal(t, "HKLMSHIM_ADDON_SCALE", envNameForFlag("--scale"))
}

func TestBuildChildEnvMirrorsForwardedFlags(t *testing.T) {
	opts := Options{
		OverlayPath: "overlay.sqlite",
		Forwarded:   map[string]string{"--scale": "2"},
	}
	cfg := shimConfigFromOptions(opts, 1)
	env := buildChildEnv(opts, cfg)
	require.Equal(t, "2", env["HKLMSHIM_ADDON_SCALE"])
	require.Equal(t, "overlay.sqlite", env["HKLMSHIM_DB"])
	require.Equal(t, "overlay.sqlite", env["HKLM_SHIM_DB_PATH"])
}
