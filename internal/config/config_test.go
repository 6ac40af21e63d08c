package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExportRoundTripsThroughLegacyNames(t *testing.T) {
	s := Shim{
		OverlayPath:   `C:\work\HKLM.sqlite`,
		HookScope:     ScopeCore,
		DebugFilter:   []string{"RegOpenKeyExW", "RegSetValueExA"},
		DebugPipePath: `\\.\pipe\acme_debug_1234`,
		Rendezvous:    "acme_ready_1234",
	}
	env := map[string]string{}
	s.ExportTo(env)

	require.Equal(t, s.OverlayPath, env["HKLM_SHIM_DB_PATH"])
	require.Equal(t, string(ScopeCore), env["HKLM_SHIM_HOOK_SCOPE"])
	require.Equal(t, "RegOpenKeyExW,RegSetValueExA", env["HKLMSHIM_DEBUG"])
	require.Equal(t, s.DebugPipePath, env["HKLM_SHIM_DEBUG_PIPE_PATH"])
}

func TestDefaultHookScopeIsFull(t *testing.T) {
	t.Setenv("HKLMSHIM_DB", "")
	t.Setenv("HKLM_SHIM_DB_PATH", "")
	t.Setenv("HKLMSHIM_HOOKS", "")
	t.Setenv("HKLM_SHIM_HOOK_SCOPE", "")
	s := FromEnvironment()
	require.Equal(t, ScopeFull, s.HookScope)
	require.Equal(t, "HKLM.sqlite", s.OverlayPath)
}

func TestHookScopeNormalizesSynonymsAndCase(t *testing.T) {
	cases := map[string]HookScope{
		"off":      ScopeOff,
		"OFF":      ScopeOff,
		"none":     ScopeOff,
		"None":     ScopeOff,
		"disabled": ScopeOff,
		"DISABLED": ScopeOff,
		"core":     ScopeCore,
		"Core":     ScopeCore,
		"full":     ScopeFull,
		"Full":     ScopeFull,
	}
	for raw, want := range cases {
		t.Setenv("HKLMSHIM_HOOKS", raw)
		t.Setenv("HKLM_SHIM_HOOK_SCOPE", "")
		require.Equal(t, want, FromEnvironment().HookScope, "raw=%q", raw)
	}
}

func TestAllowsHonorsAllWildcard(t *testing.T) {
	s := Shim{DebugFilter: []string{"all"}}
	require.True(t, s.Allows("RegQueryValueExW"))

	s2 := Shim{DebugFilter: []string{"RegSetValueExW"}}
	require.True(t, s2.Allows("regsetvalueexw"))
	require.False(t, s2.Allows("RegCreateKeyExW"))
}
