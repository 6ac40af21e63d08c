// Package winreg abstracts real-HKLM access behind a small interface so
// the merge engine and API interceptors can be exercised on any platform.
// The production implementation (winreg_windows.go) wraps
// golang.org/x/sys/windows/registry; everywhere else, OpenReal reports the
// key as absent, which is the correct behavior for a component that only
// ever runs for real on Windows.
package winreg

import (
	"errors"

	"github.com/joshuapare/hklmshim/internal/regtypes"
)

// ErrUnsupported is available to Opener implementations on a platform with
// no real registry to read from. This package's own non-Windows Opener
// does not return it; it reports every key as absent instead.
var ErrUnsupported = errors.New("winreg: real registry access unsupported on this platform")

// RealKey is a read-only view of one opened real-registry key.
type RealKey interface {
	// ListValues returns every value under this key.
	ListValues() ([]regtypes.Value, error)
	// ListSubkeys returns the names of every immediate subkey.
	ListSubkeys() ([]string, error)
	// GetValue looks up a single named value.
	GetValue(name string) (typ regtypes.Type, data []byte, ok bool, err error)
	// Close releases the underlying OS handle.
	Close() error
}

// Opener opens real keys by canonical path, under the Windows root this
// shim virtualizes (HKLM). Every path it opens is for read-only,
// pass-through access: this shim never writes back to the real registry
// (writes always land in the overlay), so the interface has no create or
// write-value method.
type Opener interface {
	// OpenReal opens path for read access. existed is false when the real
	// registry has no such key (not an error condition).
	OpenReal(path string) (key RealKey, existed bool, err error)
}
