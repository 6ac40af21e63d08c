package launcher

import (
	"os"
	"strings"

	"github.com/joshuapare/hklmshim/internal/config"
)

// buildChildEnv starts from the launcher's own environment, overlays the
// shim's primary/legacy variable pairs, and mirrors every forwarded
// add-on flag as an environment variable too, so an add-on can read
// either source. Returned as a map so callers can edit before encoding
// to the platform's native environment block shape.
func buildChildEnv(opts Options, shim config.Shim) map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	shim.ExportTo(env)
	for name, value := range opts.Forwarded {
		env[envNameForFlag(name)] = value
	}
	return env
}

// envNameForFlag turns "--scale-method" into "HKLMSHIM_ADDON_SCALE_METHOD",
// the variable an add-on reads when it would rather not reparse argv.
func envNameForFlag(flag string) string {
	trimmed := strings.TrimPrefix(flag, "--")
	trimmed = strings.ReplaceAll(trimmed, "-", "_")
	return "HKLMSHIM_ADDON_" + strings.ToUpper(trimmed)
}

// shimConfigFromOptions builds the Shim settings the launcher exports,
// independent of anything the child has to do to pick them up.
func shimConfigFromOptions(opts Options, launcherPid uint32) config.Shim {
	s := config.Shim{
		OverlayPath: opts.OverlayPath,
		HookScope:   config.ScopeFull,
	}
	if opts.DebugFilter != "" {
		s.DebugFilter = splitDebugFilter(opts.DebugFilter)
		s.DebugPipePath = DebugPipeName(launcherPid)
	}
	s.Rendezvous = RendezvousName(launcherPid)
	return s
}

func splitDebugFilter(raw string) []string {
	if strings.EqualFold(raw, "all") {
		return []string{"all"}
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
