// Package interceptors holds the platform-agnostic dispatch-decision core
// that every hooked registry entry point funnels through: resolving a
// starting handle to a canonical path, deciding whether a call belongs to
// the virtualized HKLM subtree at all, and applying the open/close/
// get-set/delete/enumerate/query-info semantics against the overlay and
// merge engine. The actual trampoline installation (locating and
// patching the ~25 entry points across both spellings) is inherently
// Windows machine-code work and lives in hooks_windows.go; everything
// here is exercised by tests on any platform.
package interceptors

import (
	"context"

	"github.com/joshuapare/hklmshim/internal/handletable"
	"github.com/joshuapare/hklmshim/internal/keypath"
	"github.com/joshuapare/hklmshim/internal/merge"
	"github.com/joshuapare/hklmshim/internal/overlay"
	"github.com/joshuapare/hklmshim/internal/regtypes"
	"github.com/joshuapare/hklmshim/internal/strenc"
)

// Dispatcher is the process-wide decision core one Shim Loader instance
// wires up: a handle table, an overlay store, and a merge engine that
// optionally consults a real-registry opener.
type Dispatcher struct {
	Handles *handletable.Table
	Store   *overlay.Store
	Engine  *merge.Engine
}

// New constructs a Dispatcher over an already-open store and engine.
func New(handles *handletable.Table, store *overlay.Store, engine *merge.Engine) *Dispatcher {
	return &Dispatcher{Handles: handles, Store: store, Engine: engine}
}

// ResolveStart resolves the starting handle of a call to a canonical
// path. wellKnown is true when the caller passed the well-known HKLM
// constant rather than any handle value this process minted or observed;
// in that case the virtual root is substituted with no real handle.
//
// ok is false when start is neither the well-known root, one of our
// virtual handles, nor a real handle we have a path recorded for — i.e.
// the call is not ours and must be passed through unchanged.
func (d *Dispatcher) ResolveStart(start uintptr, wellKnown bool) (path string, real uintptr, hasReal bool, ok bool) {
	if wellKnown {
		return keypath.Root, 0, false, true
	}
	h := handletable.Handle(start)
	if handletable.IsVirtual(h) {
		p, r, hr, found := d.Handles.Lookup(h)
		return p, r, hr, found
	}
	if p, found := d.Handles.LookupReal(start); found {
		return p, start, true, true
	}
	return "", 0, false, false
}

// TargetPath canonicalizes and joins a caller-supplied subkey string
// (which may itself be multi-segment, alternately rooted, or empty)
// against an already-resolved starting path.
func TargetPath(startPath, subkey string) string {
	return keypath.Join(startPath, subkey)
}

// RealOpener performs the bypass-guarded pass-through open the Open/Create
// handler needs; its implementation lives in the Windows-specific hook
// layer, since it must call the original OS entry point under the bypass
// region described in the concurrency model.
type RealOpener func(path string, create bool) (real uintptr, existed bool, err error)

// OpenResult is what OpenOrCreate reports back to the hook trampoline.
type OpenResult struct {
	Handle      handletable.Handle
	CreatedNew  bool
	RealHandle  uintptr
	HasReal     bool
}

// OpenOrCreate implements the Open/Create dispatch rule: it always
// attempts a real pass-through open (via openReal, already bypass-
// guarded by the caller) so later enumerations can merge, and when create
// is true it additionally ensures the overlay key exists. The disposition
// reports "new" only when the overlay had no live key and the real open
// also failed-as-absent.
func (d *Dispatcher) OpenOrCreate(ctx context.Context, path string, create bool, openReal RealOpener) (OpenResult, error) {
	deleted, err := d.Store.IsKeyDeleted(ctx, path)
	if err != nil {
		return OpenResult{}, err
	}
	overlayLive := false
	if !deleted {
		overlayLive, err = d.Store.KeyExistsLocally(ctx, path)
		if err != nil {
			return OpenResult{}, err
		}
	}

	var real uintptr
	var hasReal, realExisted bool
	if openReal != nil {
		r, existed, oerr := openReal(path, create)
		if oerr == nil {
			real, hasReal, realExisted = r, true, existed
		}
	}

	if create {
		if err := d.Store.PutKey(ctx, path); err != nil {
			return OpenResult{}, err
		}
	} else if !overlayLive && !realExisted {
		return OpenResult{}, regtypes.ErrNotFound
	}

	h := d.Handles.Open(path, real, hasReal)
	if hasReal {
		d.Handles.RegisterReal(real, path)
	}
	return OpenResult{
		Handle:     h,
		CreatedNew: !overlayLive && !realExisted,
		RealHandle: real,
		HasReal:    hasReal,
	}, nil
}

// Close resolves the real sub-handle (if any) stored in h so the caller
// can release it under a bypass guard, and marks the virtual handle
// record closed. The record itself is never freed here; see
// handletable.Table.Reset.
func (d *Dispatcher) Close(h handletable.Handle) (real uintptr, hasReal bool, ok bool) {
	real, hasReal, ok = d.Handles.Close(h)
	if hasReal {
		d.Handles.ForgetReal(real)
	}
	return real, hasReal, ok
}

// SetValue normalizes a narrow-spelling string payload to the stored
// UTF-16LE form (with the correct terminator rule) and upserts it into
// the overlay. Wide-spelling callers pass narrow=false and their already-
// UTF-16LE data through untouched.
func (d *Dispatcher) SetValue(ctx context.Context, path, name string, typ regtypes.Type, data []byte, narrow bool) error {
	if narrow {
		data = normalizeNarrowWrite(typ, data)
	}
	return d.Store.PutValue(ctx, path, name, typ, data)
}

// normalizeNarrowWrite transcodes a narrow-encoded string payload (or
// NUL-joined multi-string) to this shim's canonical UTF-16LE storage
// form. Non-string types pass through unchanged: the caller is expected
// to have already supplied the correct binary layout for those.
func normalizeNarrowWrite(typ regtypes.Type, data []byte) []byte {
	switch typ {
	case regtypes.SZ, regtypes.EXPAND_SZ:
		return strenc.NarrowToUTF16LENulTerminated(stripNarrowNul(data))
	case regtypes.MULTI_SZ:
		return strenc.NarrowMultiToUTF16LEDoubleNulTerminated(splitNarrowMulti(data))
	default:
		return data
	}
}

func stripNarrowNul(data []byte) string {
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}

func splitNarrowMulti(data []byte) []string {
	var out []string
	start := 0
	for i, b := range data {
		if b == 0 {
			if i > start {
				out = append(out, string(data[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

// DeleteValue tombstones a single value.
func (d *Dispatcher) DeleteValue(ctx context.Context, path, name string) error {
	return d.Store.DeleteValue(ctx, path, name)
}

// DeleteKeyTree tombstones path and its entire subtree.
func (d *Dispatcher) DeleteKeyTree(ctx context.Context, path string) error {
	return d.Store.DeleteKeyTree(ctx, path)
}
