//go:build windows

package launcher

import (
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"
	"unsafe"

	"github.com/joshuapare/hklmshim/internal/obslog"
	"golang.org/x/sys/windows"
)

const rendezvousWait = 2 * time.Second

// Result is what Run returns: either the child's own verbatim exit code,
// or one of the launcher's own nonzero codes from a failure before the
// child could be resumed.
type Result struct {
	ExitCode int
}

// Run executes the full launch sequence: resolve the shim, export its
// configuration, spawn the child suspended, verify bitness, inject,
// optionally wait for the rendezvous signal, optionally track the
// child's job object, then resume and wait.
func Run(opts Options) Result {
	shimPath, err := ResolveShimPath(os.Args[0])
	if err != nil {
		obslog.Error("resolve shim dll", "err", err)
		return Result{ExitCode: ExitInjectionFailure}
	}

	launcherPid := windows.GetCurrentProcessId()
	shimCfg := shimConfigFromOptions(opts, launcherPid)

	var pipe *debugPipe
	if shimCfg.TracingEnabled() {
		pipe, err = createDebugPipe(shimCfg.DebugPipePath)
		if err != nil {
			obslog.Error("create debug pipe", "err", err)
			return Result{ExitCode: ExitDebugPipeFailure}
		}
		defer pipe.Close()
	}

	childEnv := buildChildEnv(opts, shimCfg)
	workDir, err := os.Getwd()
	if err != nil {
		obslog.Error("resolve working directory", "err", err)
		return Result{ExitCode: ExitUsage}
	}

	procInfo, err := createSuspendedChild(opts, childEnv, workDir)
	if err != nil {
		obslog.Error("create child process", "err", err)
		return Result{ExitCode: ExitInjectionFailure}
	}
	defer windows.CloseHandle(procInfo.Thread)
	defer windows.CloseHandle(procInfo.Process)

	if match, err := sameArchitecture(procInfo.Process); err != nil || !match {
		if err != nil {
			obslog.Error("check architecture", "err", err)
		} else {
			obslog.Error("architecture mismatch between launcher and target")
		}
		terminateAndClose(procInfo.Process)
		return Result{ExitCode: ExitArchMismatch}
	}

	if err := injectDLL(procInfo.Process, shimPath); err != nil {
		obslog.Error("inject shim dll", "err", err)
		terminateAndClose(procInfo.Process)
		return Result{ExitCode: ExitInjectionFailure}
	}

	waitRendezvous(shimCfg.Rendezvous)

	var job *jobObject
	if shimCfg.TracingEnabled() {
		job, err = createJobObject()
		if err != nil {
			obslog.Warn("job object unavailable, will wait on process handle only", "err", err)
		} else {
			defer job.Close()
			if err := job.assign(procInfo.Process); err != nil {
				obslog.Warn("assign child to job object failed", "err", err)
			}
		}
	}

	if _, err := windows.ResumeThread(procInfo.Thread); err != nil {
		obslog.Error("resume child thread", "err", err)
		terminateAndClose(procInfo.Process)
		return Result{ExitCode: ExitInjectionFailure}
	}

	windows.WaitForSingleObject(procInfo.Process, windows.INFINITE)
	if job != nil {
		job.waitDrain()
	}
	var exitCode uint32
	if err := windows.GetExitCodeProcess(procInfo.Process, &exitCode); err != nil {
		obslog.Error("get child exit code", "err", err)
		return Result{ExitCode: ExitInjectionFailure}
	}
	return Result{ExitCode: int(exitCode)}
}

func createSuspendedChild(opts Options, env map[string]string, workDir string) (windows.ProcessInformation, error) {
	cmdLine := buildCommandLine(opts)
	cmdLinePtr, err := windows.UTF16PtrFromString(cmdLine)
	if err != nil {
		return windows.ProcessInformation{}, fmt.Errorf("encode command line: %w", err)
	}
	workDirPtr, err := windows.UTF16PtrFromString(workDir)
	if err != nil {
		return windows.ProcessInformation{}, fmt.Errorf("encode working directory: %w", err)
	}

	var startupInfo windows.StartupInfo
	startupInfo.Cb = uint32(unsafe.Sizeof(startupInfo))

	var procInfo windows.ProcessInformation
	err = windows.CreateProcess(
		nil,
		cmdLinePtr,
		nil,
		nil,
		false,
		windows.CREATE_SUSPENDED|windows.CREATE_UNICODE_ENVIRONMENT,
		environmentBlockPtr(env),
		workDirPtr,
		&startupInfo,
		&procInfo,
	)
	if err != nil {
		return windows.ProcessInformation{}, fmt.Errorf("CreateProcess: %w", err)
	}
	return procInfo, nil
}

// buildCommandLine composes a single Windows command-line string from
// the target exe and its forwarded arguments, quoting each the way
// CommandLineToArgvW expects (the same escaping syscall.EscapeArg uses
// for os/exec's own process creation).
func buildCommandLine(opts Options) string {
	parts := make([]string, 0, 1+len(opts.TargetArgs)+2*len(opts.Forwarded))
	parts = append(parts, syscall.EscapeArg(opts.TargetExe))
	for name, value := range opts.Forwarded {
		parts = append(parts, syscall.EscapeArg(name), syscall.EscapeArg(value))
	}
	for _, a := range opts.TargetArgs {
		parts = append(parts, syscall.EscapeArg(a))
	}
	return strings.Join(parts, " ")
}

func waitRendezvous(name string) {
	if name == "" {
		return
	}
	namep, err := windows.UTF16PtrFromString(name)
	if err != nil {
		obslog.Warn("encode rendezvous name failed", "err", err)
		return
	}
	h, err := windows.CreateEvent(nil, 0, 0, namep)
	if h == 0 {
		obslog.Warn("create rendezvous event failed, continuing without it", "err", err)
		return
	}
	defer windows.CloseHandle(h)
	event, err := windows.WaitForSingleObject(h, uint32(rendezvousWait/time.Millisecond))
	if err != nil || event == uint32(windows.WAIT_TIMEOUT) {
		obslog.Warn("rendezvous wait timed out, continuing anyway")
		return
	}
	obslog.Debug("shim signaled hooks installed")
}

func terminateAndClose(process windows.Handle) {
	windows.TerminateProcess(process, uint32(ExitInjectionFailure))
}

// ShimDLLPath exposes the resolved path for callers (tests, diagnostics)
// that want it without running the full launch sequence.
func ShimDLLPath() (string, error) {
	return ResolveShimPath(os.Args[0])
}
