//go:build windows

package debugtrace

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// pipeConn adapts a raw Windows file handle opened against a named pipe
// to io.Writer.
type pipeConn struct {
	h windows.Handle
}

func (p pipeConn) Write(b []byte) (int, error) {
	var n uint32
	err := windows.WriteFile(p.h, b, &n, nil)
	return int(n), err
}

// Dial opens path (e.g. `\\.\pipe\acme_debug_1234`) for writing and wraps
// it in a Writer. Failure is non-fatal to the caller: the trace bridge is
// best-effort by design, so a dial error just leaves tracing disabled.
func Dial(path string) (*Writer, error) {
	p, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(p,
		windows.GENERIC_WRITE, 0, nil,
		windows.OPEN_EXISTING, 0, 0)
	if err != nil {
		return nil, err
	}
	return New(pipeConn{h: h}), nil
}
