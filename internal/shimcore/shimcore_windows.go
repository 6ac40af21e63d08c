//go:build windows

package shimcore

import (
	"syscall"

	"golang.org/x/sys/windows"

	"github.com/joshuapare/hklmshim/internal/debugtrace"
	"github.com/joshuapare/hklmshim/internal/interceptors"
	"github.com/joshuapare/hklmshim/internal/obslog"
)

func init() {
	newHookInstaller = func() HookInstaller { return interceptors.NewEngine() }
}

func dialTrace(pipePath string) (*debugtrace.Writer, error) {
	return debugtrace.Dial(pipePath)
}

// signalRendezvous opens the named event the Launcher created and set to
// auto-reset, and signals it. name being empty (no rendezvous requested)
// and a failure to open it are both silently ignored: the Launcher times
// out and continues regardless, per the "log timeout but continue
// regardless" failure model.
func signalRendezvous(name string) {
	if name == "" {
		return
	}
	p, err := syscall.UTF16PtrFromString(name)
	if err != nil {
		return
	}
	h, err := windows.OpenEvent(windows.EVENT_MODIFY_STATE, false, p)
	if err != nil {
		obslog.Warn("rendezvous event not found", "name", name, "err", err)
		return
	}
	defer windows.CloseHandle(h)
	if err := windows.SetEvent(h); err != nil {
		obslog.Warn("failed to signal rendezvous event", "name", name, "err", err)
	}
}
