// Package config resolves the environment variables the shim reads on
// process attach. Every variable has a primary name and a legacy alias;
// the launcher sets both in parallel so older shim builds (or external
// add-ons) that only know the legacy name keep working.
package config

import (
	"os"
	"strings"
)

// HookScope selects which trampolines the shim installs.
type HookScope string

const (
	ScopeCore HookScope = "core" // minimal set: wide-spelling handle-consuming APIs only
	ScopeFull HookScope = "full" // core plus every narrow-spelling API (default)
	ScopeOff  HookScope = "off"  // install nothing; used for diagnostic runs
)

const (
	envOverlayPath       = "HKLMSHIM_DB"
	envOverlayPathLegacy = "HKLM_SHIM_DB_PATH"

	envHookScope       = "HKLMSHIM_HOOKS"
	envHookScopeLegacy = "HKLM_SHIM_HOOK_SCOPE"

	envDebugFilter       = "HKLMSHIM_DEBUG"
	envDebugFilterLegacy = "HKLM_SHIM_DEBUG_APIS"

	envDebugPipe       = "HKLMSHIM_DEBUG_PIPE"
	envDebugPipeLegacy = "HKLM_SHIM_DEBUG_PIPE_PATH"

	envRendezvous       = "HKLMSHIM_READY_EVENT"
	envRendezvousLegacy = "HKLM_SHIM_RENDEZVOUS_NAME"
)

// Shim is the full set of environment-driven settings the shim reads on
// process attach.
type Shim struct {
	OverlayPath   string
	HookScope     HookScope
	DebugFilter   []string // nil/empty means tracing disabled; one entry "all" means unfiltered
	DebugPipePath string
	Rendezvous    string
}

// FromEnvironment reads the current process environment into a Shim,
// applying defaults for anything absent under both the primary and
// legacy names.
func FromEnvironment() Shim {
	return Shim{
		OverlayPath:   lookupEither(envOverlayPath, envOverlayPathLegacy, "HKLM.sqlite"),
		HookScope:     normalizeHookScope(lookupEither(envHookScope, envHookScopeLegacy, string(ScopeFull))),
		DebugFilter:   parseDebugFilter(lookupEither(envDebugFilter, envDebugFilterLegacy, "")),
		DebugPipePath: lookupEither(envDebugPipe, envDebugPipeLegacy, ""),
		Rendezvous:    lookupEither(envRendezvous, envRendezvousLegacy, ""),
	}
}

// normalizeHookScope case-folds raw and maps every spelling of "install
// nothing" (off/none/disabled) to ScopeOff, and every spelling of
// core/full to its canonical constant. Anything else passes through
// unchanged so Engine.Install still rejects it explicitly rather than
// silently treating an unrecognized scope as full.
func normalizeHookScope(raw string) HookScope {
	switch {
	case strings.EqualFold(raw, string(ScopeOff)), strings.EqualFold(raw, "none"), strings.EqualFold(raw, "disabled"):
		return ScopeOff
	case strings.EqualFold(raw, string(ScopeCore)):
		return ScopeCore
	case strings.EqualFold(raw, string(ScopeFull)):
		return ScopeFull
	default:
		return HookScope(raw)
	}
}

// ExportTo sets every variable (primary and legacy) on env, the Unicode
// environment block the Launcher builds for the child process, so both
// spellings are visible to whatever shim build ends up loaded.
func (s Shim) ExportTo(env map[string]string) {
	env[envOverlayPath], env[envOverlayPathLegacy] = s.OverlayPath, s.OverlayPath
	env[envHookScope], env[envHookScopeLegacy] = string(s.HookScope), string(s.HookScope)
	var joined string
	switch {
	case len(s.DebugFilter) == 0:
		joined = ""
	case s.DebugFilter[0] == "all":
		joined = "all"
	default:
		joined = strings.Join(s.DebugFilter, ",")
	}
	env[envDebugFilter], env[envDebugFilterLegacy] = joined, joined
	env[envDebugPipe], env[envDebugPipeLegacy] = s.DebugPipePath, s.DebugPipePath
	env[envRendezvous], env[envRendezvousLegacy] = s.Rendezvous, s.Rendezvous
}

// TracingEnabled reports whether the debug tracing bridge should be used.
func (s Shim) TracingEnabled() bool {
	return s.DebugPipePath != "" && len(s.DebugFilter) > 0
}

// Allows reports whether api passes the debug filter.
func (s Shim) Allows(api string) bool {
	if len(s.DebugFilter) == 0 {
		return false
	}
	for _, f := range s.DebugFilter {
		if f == "all" || strings.EqualFold(f, api) {
			return true
		}
	}
	return false
}

func lookupEither(primary, legacy, def string) string {
	if v, ok := os.LookupEnv(primary); ok && v != "" {
		return v
	}
	if v, ok := os.LookupEnv(legacy); ok && v != "" {
		return v
	}
	return def
}

func parseDebugFilter(raw string) []string {
	if raw == "" {
		return nil
	}
	if strings.EqualFold(raw, "all") {
		return []string{"all"}
	}
	var out []string
	for _, seg := range strings.Split(raw, ",") {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
