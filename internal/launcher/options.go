// Package launcher implements the injecting process launcher: it parses
// its own flags, separates them from the target executable's argument
// vector, resolves and injects the shim DLL into a suspended child, and
// propagates the child's exit code.
package launcher

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Exit codes, matching the external-interfaces contract exactly. Code 0
// is never returned by this package directly — on success Run propagates
// whatever the child itself exited with.
const (
	ExitUsage            = 1
	ExitInjectionFailure = 2
	ExitCompatFailure    = 3
	ExitStdioRebind      = 4
	ExitDebugPipeFailure = 5
	ExitArchMismatch     = 6
)

// forwardedFlagPrefixes lists add-on flag names the launcher recognizes,
// validates, and forwards both into the target's argv and into its
// environment, without attaching any meaning to their values itself.
// original_source/ forwards more of these than spec.md enumerates by
// name (graphics-scaling add-ons among them); keeping this as a small
// explicit list rather than a single hardcoded pair lets a new add-on
// register its own flag name here without touching the parsing logic
// below. Names are matched exactly, not as prefixes.
var forwardedFlagPrefixes = []string{
	"--scale",
	"--scale-method",
}

// Options is the parsed, validated form of the launcher's own command
// line, before any process is touched.
type Options struct {
	OverlayPath string
	DebugFilter string            // "" disables tracing; "all" or a CSV list enables it
	Forwarded   map[string]string // add-on flag name -> value, e.g. "--scale" -> "2"
	TargetExe   string
	TargetArgs  []string
}

// ParseArgs splits args (os.Args[1:]) into the launcher's own flags and
// the target's command line. Launcher flags must all appear before the
// target executable; the first argument that does not start with "--"
// (and is not the value of a preceding flag) is taken as the target exe,
// and everything after it is forwarded verbatim. A "--" argument that is
// not a recognized flag is an error.
func ParseArgs(args []string) (Options, error) {
	opts := Options{
		OverlayPath: "HKLM.sqlite",
		Forwarded:   map[string]string{},
	}

	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			break
		}

		name, inlineValue, hasInline := cutFlag(arg)
		value := inlineValue
		consumed := 1
		needsValue := name == "--db" || name == "--debug" || isForwardedFlag(name)
		if needsValue && !hasInline {
			if i+1 >= len(args) {
				return Options{}, fmt.Errorf("flag %s requires a value", name)
			}
			value = args[i+1]
			consumed = 2
		}

		switch {
		case name == "--db":
			if value == "" {
				return Options{}, fmt.Errorf("--db requires a non-empty path")
			}
			if filepath.IsAbs(value) {
				opts.OverlayPath = value
			} else {
				opts.OverlayPath = filepath.Clean(value)
			}
		case name == "--debug":
			if value == "" {
				return Options{}, fmt.Errorf("--debug requires a list or \"all\"")
			}
			opts.DebugFilter = value
		case isForwardedFlag(name):
			opts.Forwarded[name] = value
		default:
			return Options{}, fmt.Errorf("unrecognized flag %s", name)
		}

		i += consumed
	}

	if i >= len(args) {
		return Options{}, fmt.Errorf("missing target executable")
	}
	opts.TargetExe = args[i]
	opts.TargetArgs = append([]string{}, args[i+1:]...)
	return opts, nil
}

func cutFlag(arg string) (name, value string, hasInline bool) {
	if idx := strings.IndexByte(arg, '='); idx >= 0 {
		return arg[:idx], arg[idx+1:], true
	}
	return arg, "", false
}

func isForwardedFlag(name string) bool {
	for _, p := range forwardedFlagPrefixes {
		if name == p {
			return true
		}
	}
	return false
}

// Usage returns the one-line usage string printed on a parse failure.
func Usage() string {
	return "usage: hklm-launch [--db <path>] [--debug <list>|all] [add-on flags…] <target.exe> [target args…]"
}
