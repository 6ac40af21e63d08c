// Package handletable manufactures and tracks virtual registry key
// handles. A virtual handle is an opaque token, reliably distinguishable
// from every possible OS HKEY value, that owns the canonical path it
// represents and an optional real OS handle opened to the same path for
// pass-through of unhandled operations.
//
// Handle records are immortal for the lifetime of the hooks: once
// published, a handle value must remain addressable so that a concurrent
// caller racing a Close on another thread never dereferences a freed
// record. Reclamation happens only via Reset, called once during
// uninstall.
package handletable

import "sync"

// Handle is an opaque virtual key handle. Its concrete representation is
// an arena index with a high bit set that no genuine Windows HKEY value
// ever carries: real HKEY values are either one of the small well-known
// predefined constants or a kernel object handle, both of which stay
// within the low 32 bits on every supported architecture.
type Handle uintptr

const (
	tagBit  = uintptr(1) << 63
	sigWord = uint32(0x484b4c4d) // "HKLM", a belt-and-suspenders sanity check
)

// IsVirtual reports whether h carries this package's tag bit. It does not
// by itself prove h was ever minted by this table — combine with Lookup.
func IsVirtual(h Handle) bool {
	return uintptr(h)&tagBit != 0
}

type entry struct {
	path      string
	real      uintptr
	hasReal   bool
	signature uint32
	closed    bool
}

// Table is the process-wide virtual-handle table plus the auxiliary
// real-handle map. A Table is safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	arena   []*entry
	realMap map[uintptr]string
}

// New constructs an empty Table.
func New() *Table {
	return &Table{realMap: make(map[uintptr]string)}
}

// Open manufactures a fresh virtual handle for path, optionally carrying a
// real OS handle opened to the same path for pass-through.
func (t *Table) Open(path string, real uintptr, hasReal bool) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.arena = append(t.arena, &entry{path: path, real: real, hasReal: hasReal, signature: sigWord})
	idx := uintptr(len(t.arena)) // 1-based so the zero value is never a live index
	return Handle(idx | tagBit)
}

// Lookup resolves a virtual handle to its canonical path and optional real
// handle. ok is false if h does not carry the tag bit, is out of range, or
// was never minted (index 0).
func (t *Table) Lookup(h Handle) (path string, real uintptr, hasReal bool, ok bool) {
	if !IsVirtual(h) {
		return "", 0, false, false
	}
	idx := uintptr(h) &^ tagBit
	t.mu.RLock()
	defer t.mu.RUnlock()
	if idx == 0 || idx > uintptr(len(t.arena)) {
		return "", 0, false, false
	}
	e := t.arena[idx-1]
	if e.signature != sigWord {
		return "", 0, false, false
	}
	return e.path, e.real, e.hasReal, true
}

// Close reports the real handle (if any) that was stored in h so the
// caller can release it under a bypass guard, and marks the entry closed
// for diagnostic purposes. The backing record is NOT freed: concurrent
// callers may still present h afterward, and that must not crash. A
// double-close or a close of an already-closed/invalid handle is reported
// via ok=false and is not an error the caller need propagate — the host
// registry API tolerates double-close losslessly by returning an error
// code, not by faulting.
func (t *Table) Close(h Handle) (real uintptr, hasReal bool, ok bool) {
	if !IsVirtual(h) {
		return 0, false, false
	}
	idx := uintptr(h) &^ tagBit
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx == 0 || idx > uintptr(len(t.arena)) {
		return 0, false, false
	}
	e := t.arena[idx-1]
	if e.signature != sigWord || e.closed {
		return 0, false, false
	}
	e.closed = true
	return e.real, e.hasReal, true
}

// RegisterReal records that a real OS handle was opened against path,
// for call sites that receive a real handle whose path we still need to
// resolve later.
func (t *Table) RegisterReal(real uintptr, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.realMap[real] = path
}

// LookupReal resolves a real OS handle to the canonical path it was
// opened against, if this table recorded it.
func (t *Table) LookupReal(real uintptr) (path string, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	path, ok = t.realMap[real]
	return path, ok
}

// ForgetReal removes a real-handle mapping, e.g. once the real handle has
// been closed and the value could in principle be reused by the OS for an
// unrelated handle.
func (t *Table) ForgetReal(real uintptr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.realMap, real)
}

// Reset discards every tracked handle. Called once, by the Shim Loader,
// after hooks have been uninstalled and no concurrent caller can possibly
// still be holding a handle value.
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.arena = nil
	t.realMap = make(map[uintptr]string)
}

// Len reports the number of handles ever minted (including closed ones),
// for diagnostics/tests.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.arena)
}
