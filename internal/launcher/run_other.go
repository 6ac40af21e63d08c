//go:build !windows

package launcher

import "errors"

// Result mirrors the Windows build's type so callers compile everywhere;
// ExitCode is meaningless here since Run always fails immediately.
type Result struct {
	ExitCode int
}

var errUnsupported = errors.New("hklm-launch only injects into processes on Windows")

// Run is a stub: process injection is inherently Windows-only. It exists
// so the rest of the module (and its tests) build on every platform.
func Run(opts Options) Result {
	_ = opts
	return Result{ExitCode: ExitInjectionFailure}
}

// ShimDLLPath mirrors the Windows build's signature for the same reason.
func ShimDLLPath() (string, error) {
	return "", errUnsupported
}
