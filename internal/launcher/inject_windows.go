//go:build windows

package launcher

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	memCommit       = 0x00001000
	memReserve      = 0x00002000
	memRelease      = 0x00008000
	pageReadWrite   = 0x04
	infiniteTimeout = 0xFFFFFFFF
)

// kernel32 carries the handful of remote-process primitives
// golang.org/x/sys/windows exposes only as a DLL/proc lookup rather than
// a typed wrapper: VirtualAllocEx, VirtualFreeEx, CreateRemoteThread,
// and GetExitCodeThread. Everything else in this file (WriteProcessMemory,
// GetModuleHandleEx, GetProcAddress, WaitForSingleObject, IsWow64Process)
// uses the typed wrapper the package already provides.
var kernel32 = windows.NewLazySystemDLL("kernel32.dll")

var (
	procVirtualAllocEx     = kernel32.NewProc("VirtualAllocEx")
	procVirtualFreeEx      = kernel32.NewProc("VirtualFreeEx")
	procCreateRemoteThread = kernel32.NewProc("CreateRemoteThread")
	procGetExitCodeThread  = kernel32.NewProc("GetExitCodeThread")
)

// loadLibraryWAddress returns the address of kernel32!LoadLibraryW in
// this process's address space. Kernel32 is always mapped at the same
// base address across processes on the same system for a given session
// (ASLR notwithstanding, this has held for every supported Windows
// release), so the address resolved here is valid as a remote thread
// start address in the target process too.
func loadLibraryWAddress() (uintptr, error) {
	namep, err := windows.UTF16PtrFromString("kernel32.dll")
	if err != nil {
		return 0, fmt.Errorf("encode kernel32.dll: %w", err)
	}
	var h windows.Handle
	if err := windows.GetModuleHandleEx(0, namep, &h); err != nil {
		return 0, fmt.Errorf("get kernel32 module handle: %w", err)
	}
	addr, err := windows.GetProcAddress(h, "LoadLibraryW")
	if err != nil {
		return 0, fmt.Errorf("resolve LoadLibraryW: %w", err)
	}
	return addr, nil
}

// injectDLL writes dllPath into process's address space and starts a
// remote thread at LoadLibraryW with that address as its argument,
// waiting for it to finish and checking LoadLibraryW's return value
// (the loaded module handle, nonzero on success) came back nonzero.
func injectDLL(process windows.Handle, dllPath string) error {
	loadLibraryW, err := loadLibraryWAddress()
	if err != nil {
		return err
	}

	pathUTF16, err := windows.UTF16FromString(dllPath)
	if err != nil {
		return fmt.Errorf("encode dll path: %w", err)
	}
	size := uintptr(len(pathUTF16)) * 2

	remoteAddr, _, callErr := procVirtualAllocEx.Call(
		uintptr(process), 0, size, memCommit|memReserve, pageReadWrite,
	)
	if remoteAddr == 0 {
		return fmt.Errorf("VirtualAllocEx: %w", callErr)
	}
	defer procVirtualFreeEx.Call(uintptr(process), remoteAddr, 0, memRelease)

	var written uintptr
	if err := windows.WriteProcessMemory(
		process, remoteAddr, (*byte)(unsafe.Pointer(&pathUTF16[0])), size, &written,
	); err != nil {
		return fmt.Errorf("WriteProcessMemory: %w", err)
	}
	if written != size {
		return fmt.Errorf("WriteProcessMemory: short write (%d of %d bytes)", written, size)
	}

	threadHandle, _, callErr := procCreateRemoteThread.Call(
		uintptr(process), 0, 0, loadLibraryW, remoteAddr, 0, 0,
	)
	if threadHandle == 0 {
		return fmt.Errorf("CreateRemoteThread: %w", callErr)
	}
	remoteThread := windows.Handle(threadHandle)
	defer windows.CloseHandle(remoteThread)

	if _, err := windows.WaitForSingleObject(remoteThread, infiniteTimeout); err != nil {
		return fmt.Errorf("wait for injection thread: %w", err)
	}

	var exitCode uint32
	ok, _, callErr := procGetExitCodeThread.Call(uintptr(remoteThread), uintptr(unsafe.Pointer(&exitCode)))
	if ok == 0 {
		return fmt.Errorf("GetExitCodeThread: %w", callErr)
	}
	if exitCode == 0 {
		return fmt.Errorf("LoadLibraryW returned NULL in target process")
	}
	return nil
}

// sameArchitecture reports whether process, opened with
// PROCESS_QUERY_LIMITED_INFORMATION, runs the same bitness as this
// launcher, via IsWow64Process on both sides. A 32-bit launcher can
// never inject into a 64-bit target and vice versa; the shim DLL is
// built for one bitness only.
func sameArchitecture(process windows.Handle) (bool, error) {
	selfWow64, err := isWow64(windows.CurrentProcess())
	if err != nil {
		return false, err
	}
	targetWow64, err := isWow64(process)
	if err != nil {
		return false, err
	}
	return selfWow64 == targetWow64, nil
}

func isWow64(process windows.Handle) (bool, error) {
	var wow64 bool
	if err := windows.IsWow64Process(process, &wow64); err != nil {
		return false, fmt.Errorf("IsWow64Process: %w", err)
	}
	return wow64, nil
}
