//go:build windows

package launcher

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// debugPipe is the launcher's end of the named pipe the injected shim's
// tracing bridge connects out to. The launcher only creates it; draining
// it is left to whatever debug front-end the operator is running, per
// the trace transport's best-effort contract.
type debugPipe struct {
	handle windows.Handle
}

func createDebugPipe(name string) (*debugPipe, error) {
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, fmt.Errorf("encode pipe name: %w", err)
	}
	h, err := windows.CreateNamedPipe(
		namep,
		windows.PIPE_ACCESS_INBOUND|windows.FILE_FLAG_OVERLAPPED,
		0, // PIPE_TYPE_BYTE | PIPE_READMODE_BYTE | PIPE_WAIT, all zero-valued
		windows.PIPE_UNLIMITED_INSTANCES,
		4096, 4096,
		0,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create named pipe %s: %w", name, err)
	}
	return &debugPipe{handle: h}, nil
}

func (p *debugPipe) Close() error {
	if p == nil || p.handle == 0 {
		return nil
	}
	return windows.CloseHandle(p.handle)
}
