//go:build !windows

package shimcore

import (
	"errors"

	"github.com/joshuapare/hklmshim/internal/debugtrace"
)

// dialTrace has no transport to dial off Windows: the debug bridge is a
// named-pipe mechanism specific to the injected-process story.
func dialTrace(string) (*debugtrace.Writer, error) {
	return nil, errors.New("shimcore: debug trace pipe unsupported on this platform")
}

// signalRendezvous is a no-op off Windows: there is no injected process
// for a launcher to wait on.
func signalRendezvous(string) {}
