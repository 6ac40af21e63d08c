//go:build windows

package interceptors

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/joshuapare/hklmshim/internal/config"
	"github.com/joshuapare/hklmshim/internal/reentry"
)

// hookedEntryPoint is one (wide, narrow) pair of registry API spellings
// that must be patched identically in every candidate host module, so a
// virtual handle returned under one spelling can never be handed to the
// real implementation of the other.
type hookedEntryPoint struct {
	wide, narrow string
}

// entryPoints is the closed set of registry APIs this shim intercepts.
// advapi32.dll is the canonical host; kernelbase.dll forwards the same
// exports on modern Windows and is scanned too, since a target may bind
// directly against it.
var entryPoints = []hookedEntryPoint{
	{"RegOpenKeyExW", "RegOpenKeyExA"},
	{"RegCreateKeyExW", "RegCreateKeyExA"},
	{"RegCloseKey", "RegCloseKey"},
	{"RegSetValueExW", "RegSetValueExA"},
	{"RegSetKeyValueW", "RegSetKeyValueA"},
	{"RegQueryValueExW", "RegQueryValueExA"},
	{"RegGetValueW", "RegGetValueA"},
	{"RegDeleteValueW", "RegDeleteValueA"},
	{"RegDeleteKeyW", "RegDeleteKeyA"},
	{"RegDeleteKeyExW", "RegDeleteKeyExA"},
	{"RegDeleteTreeW", "RegDeleteTreeA"},
	{"RegEnumValueW", "RegEnumValueA"},
	{"RegEnumKeyExW", "RegEnumKeyExA"},
	{"RegQueryInfoKeyW", "RegQueryInfoKeyA"},
}

// candidateHostModules is the set of module names each entry point is
// hunted for in, since a target may import the same export from more than
// one of them.
var candidateHostModules = []string{"advapi32.dll", "kernelbase.dll"}

// installedHook is one patched export: the address it was found at, the
// bytes it originally held (restored on uninstall), and the address of a
// relocated copy of those bytes plus a jump back past the patch —
// trampoline — that lets a pass-through caller still execute the
// original function body even while the live export is jumping
// somewhere else.
type installedHook struct {
	name       string
	target     uintptr
	original   [trampolineLen]byte
	trampoline uintptr
}

// trampolineLen is the number of bytes overwritten at each patched entry
// point: a 64-bit absolute jump (mov rax, imm64; jmp rax) on x86-64.
const trampolineLen = 12

// Engine owns every hook installed for one process. Bypass is the shared
// re-entry guard handlers must hold while calling through to the real OS
// implementation.
type Engine struct {
	mu        sync.Mutex
	hooks     []*installedHook
	originals map[string]uintptr
	Bypass    *reentry.Guard
}

// NewEngine constructs an uninstalled Engine.
func NewEngine() *Engine {
	return &Engine{Bypass: reentry.Global, originals: make(map[string]uintptr)}
}

// OriginalAddr returns the trampoline address that still executes name's
// unpatched body, for handlers that must call through to the real
// implementation under Bypass. The second result is false if name was
// never hooked (absent on this host, or scope excluded it).
func (e *Engine) OriginalAddr(name string) (uintptr, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	addr, ok := e.originals[name]
	return addr, ok
}

// Install scans every candidate host module for every entry point allowed
// by scope and patches each occurrence found. handlerFor maps an export
// name to the callback address to jump to (the Shim Loader passes
// Handlers.HandlerFor); a zero address skips that export. Entry points
// absent from the host (common on older systems) are skipped rather than
// treated as a failure, per the "some APIs may not exist on the host"
// guidance. A scope other than ScopeCore or ScopeFull is an error.
func (e *Engine) Install(scope config.HookScope, handlerFor func(exportName string) uintptr) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if scope != config.ScopeCore && scope != config.ScopeFull {
		return fmt.Errorf("interceptors: unknown hook scope %q", scope)
	}

	for _, ep := range entryPoints {
		names := []string{ep.wide}
		if scope == config.ScopeFull {
			names = append(names, ep.narrow)
		}
		for _, modName := range candidateHostModules {
			mod, err := windows.LoadLibrary(modName)
			if err != nil {
				continue
			}
			for _, name := range names {
				addr, err := windows.GetProcAddress(mod, name)
				if err != nil {
					continue // not present on this host/module; not fatal
				}
				handler := handlerFor(name)
				if handler == 0 {
					continue
				}
				hook, err := patch(name, uintptr(addr), handler)
				if err != nil {
					return fmt.Errorf("interceptors: patch %s: %w", name, err)
				}
				e.hooks = append(e.hooks, hook)
				e.originals[name] = hook.trampoline
			}
		}
	}
	return nil
}

// Uninstall restores every patched export to its original bytes, in
// reverse install order. Errors from individual restores are collected but
// do not stop the sweep, since teardown must be best-effort.
func (e *Engine) Uninstall() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var firstErr error
	for i := len(e.hooks) - 1; i >= 0; i-- {
		h := e.hooks[i]
		if err := unpatch(h); err != nil && firstErr == nil {
			firstErr = err
		}
		if h.trampoline != 0 {
			_ = windows.VirtualFree(h.trampoline, 0, windows.MEM_RELEASE)
		}
	}
	e.hooks = nil
	e.originals = make(map[string]uintptr)
	return firstErr
}

// patch overwrites target's prologue with an absolute jump to handler,
// after flipping the containing page writable. The original bytes are
// saved so Uninstall can restore them exactly, and a separate executable
// page is allocated holding a copy of those original bytes followed by a
// jump to target+trampolineLen, so code that still needs the real
// implementation (the real-registry reader, running under Bypass) has
// somewhere to call.
func patch(name string, target, handler uintptr) (*installedHook, error) {
	var original [trampolineLen]byte
	src := unsafe.Slice((*byte)(unsafe.Pointer(target)), trampolineLen)
	copy(original[:], src)

	trampoline, err := allocTrampoline(original[:], target+trampolineLen)
	if err != nil {
		return nil, err
	}

	var oldProtect uint32
	if err := windows.VirtualProtect(target, trampolineLen, windows.PAGE_EXECUTE_READWRITE, &oldProtect); err != nil {
		windows.VirtualFree(trampoline, 0, windows.MEM_RELEASE)
		return nil, err
	}

	stub := jumpStub(handler)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(target)), trampolineLen)
	copy(dst, stub)

	var restoreProtect uint32
	_ = windows.VirtualProtect(target, trampolineLen, oldProtect, &restoreProtect)

	return &installedHook{name: name, target: target, original: original, trampoline: trampoline}, nil
}

// allocTrampoline allocates one executable page holding origBytes
// followed by an absolute jump to resumeAt.
func allocTrampoline(origBytes []byte, resumeAt uintptr) (uintptr, error) {
	page, err := windows.VirtualAlloc(0, uintptr(len(origBytes)+trampolineLen),
		windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_EXECUTE_READWRITE)
	if err != nil {
		return 0, err
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(page)), len(origBytes)+trampolineLen)
	copy(buf, origBytes)
	copy(buf[len(origBytes):], jumpStub(resumeAt))
	return page, nil
}

func unpatch(h *installedHook) error {
	var oldProtect uint32
	if err := windows.VirtualProtect(h.target, trampolineLen, windows.PAGE_EXECUTE_READWRITE, &oldProtect); err != nil {
		return err
	}
	dst := unsafe.Slice((*byte)(unsafe.Pointer(h.target)), trampolineLen)
	copy(dst, h.original[:])
	var restoreProtect uint32
	return windows.VirtualProtect(h.target, trampolineLen, oldProtect, &restoreProtect)
}

// jumpStub encodes "mov rax, handler; jmp rax" (12 bytes, x86-64).
func jumpStub(handler uintptr) []byte {
	b := make([]byte, trampolineLen)
	b[0] = 0x48 // REX.W
	b[1] = 0xB8 // mov rax, imm64
	*(*uintptr)(unsafe.Pointer(&b[2])) = handler
	b[10] = 0xFF // jmp rax
	b[11] = 0xE0
	return b
}
