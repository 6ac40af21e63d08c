//go:build windows

package interceptors

import (
	"context"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/joshuapare/hklmshim/internal/handletable"
	"github.com/joshuapare/hklmshim/internal/obslog"
	"github.com/joshuapare/hklmshim/internal/regtypes"
	"github.com/joshuapare/hklmshim/internal/strenc"
)

// Win32 status codes this layer must reproduce exactly; callers branch on
// these values, not on anything Go-specific.
const (
	winErrSuccess      = 0
	winErrFileNotFound = 2
	winErrAccessDenied = 5
	winErrGenFailure   = 31
	winErrMoreData     = 234
	winErrNoMoreItems  = 259
	winErrInvalidParam = 87
	hkeyLocalMachine   = 0x80000002
)

func win32FromErr(err error) uint32 {
	if err == nil {
		return winErrSuccess
	}
	switch regtypes.KindOf(err) {
	case regtypes.ErrKindNotFound:
		return winErrFileNotFound
	case regtypes.ErrKindMoreData:
		return winErrMoreData
	case regtypes.ErrKindNoMoreItems:
		return winErrNoMoreItems
	case regtypes.ErrKindAccessDenied:
		return winErrAccessDenied
	case regtypes.ErrKindInvalidArg:
		return winErrInvalidParam
	default:
		return winErrGenFailure
	}
}

// Handlers binds one Dispatcher and hook Engine into the set of
// stdcall-compatible callbacks the hook engine patches the real registry
// exports to jump to. Built once, during the Shim Loader's install
// sequence. The callbacks emit no debug trace lines.
type Handlers struct {
	Dispatcher *Dispatcher
	Engine     *Engine
	ctx        context.Context
}

// NewHandlers constructs a Handlers bound to d and eng, with a
// context.Background() as the context every dispatch call is made under — the
// real registry API surface has no notion of cancellation, so a
// background context is always correct here.
func NewHandlers(d *Dispatcher, eng *Engine) *Handlers {
	return &Handlers{Dispatcher: d, Engine: eng, ctx: context.Background()}
}

// HandlerFor resolves an export name to the callback address Install
// should patch that export's occurrences to. Names this layer does not
// recognize yield 0, which Install treats as "skip this export".
func (h *Handlers) HandlerFor(name string) uintptr {
	fn, ok := h.callbacks()[name]
	if !ok {
		return 0
	}
	return syscall.NewCallback(fn)
}

// callOriginal invokes name's untouched body through its saved trampoline
// under the bypass guard, forwarding args unchanged and returning its
// raw result. Used by the handful of handlers (RegCloseKey in particular)
// that must let an unrecognized handle fall through to the real
// implementation.
func (h *Handlers) callOriginal(name string, args ...uintptr) uintptr {
	addr, ok := h.Engine.OriginalAddr(name)
	if !ok {
		return winErrInvalidParam
	}
	h.Engine.Bypass.Enter()
	defer h.Engine.Bypass.Leave()
	ret, _, _ := syscall.SyscallN(addr, args...)
	return ret
}

// resolve resolves a starting HKEY to a canonical path, or reports that
// the call is not ours (hkey belongs to some other hive or an untracked
// real handle).
func (h *Handlers) resolve(hkey uintptr) (path string, real uintptr, hasReal, ok bool) {
	return h.Dispatcher.ResolveStart(hkey, hkey == hkeyLocalMachine)
}

func (h *Handlers) callbacks() map[string]interface{} {
	return map[string]interface{}{
		"RegOpenKeyExW":    h.regOpenKeyExW,
		"RegOpenKeyExA":    h.regOpenKeyExA,
		"RegCreateKeyExW":  h.regCreateKeyExW,
		"RegCreateKeyExA":  h.regCreateKeyExA,
		"RegCloseKey":      h.regCloseKey,
		"RegSetValueExW":   h.regSetValueExW,
		"RegSetValueExA":   h.regSetValueExA,
		"RegQueryValueExW": h.regQueryValueExW,
		"RegQueryValueExA": h.regQueryValueExA,
		"RegDeleteValueW":  h.regDeleteValueW,
		"RegDeleteValueA":  h.regDeleteValueA,
		"RegDeleteKeyW":    h.regDeleteKeyW,
		"RegDeleteKeyA":    h.regDeleteKeyA,
		"RegDeleteKeyExW":  h.regDeleteKeyExW,
		"RegDeleteKeyExA":  h.regDeleteKeyExA,
		"RegDeleteTreeW":   h.regDeleteTreeW,
		"RegDeleteTreeA":   h.regDeleteTreeA,
		"RegEnumValueW":    h.regEnumValueW,
		"RegEnumValueA":    h.regEnumValueA,
		"RegEnumKeyExW":    h.regEnumKeyExW,
		"RegEnumKeyExA":    h.regEnumKeyExA,
		"RegQueryInfoKeyW": h.regQueryInfoKeyW,
		"RegQueryInfoKeyA": h.regQueryInfoKeyA,
		"RegSetKeyValueW":  h.regSetKeyValueW,
		"RegSetKeyValueA":  h.regSetKeyValueA,
		"RegGetValueW":     h.regGetValueW,
		"RegGetValueA":     h.regGetValueA,
	}
}

// openReal performs the bypass-guarded pass-through open OpenOrCreate
// needs, calling through to the real RegOpenKeyExW on the original
// (unpatched) entry point.
func (h *Handlers) openReal(path string, create bool) (uintptr, bool, error) {
	addr, ok := h.Engine.OriginalAddr("RegOpenKeyExW")
	if !ok {
		return 0, false, regtypes.ErrStoreFailure
	}
	rel, err := relativeForReal(path)
	if err != nil {
		return 0, false, err
	}
	p, err := windows.UTF16PtrFromString(rel)
	if err != nil {
		return 0, false, err
	}
	var out windows.Handle
	h.Engine.Bypass.Enter()
	ret, _, _ := syscall.SyscallN(addr, hkeyLocalMachine, uintptr(unsafe.Pointer(p)), 0, windows.KEY_READ, uintptr(unsafe.Pointer(&out)))
	h.Engine.Bypass.Leave()
	if ret == winErrFileNotFound {
		return 0, false, nil
	}
	if ret != winErrSuccess {
		return 0, false, regtypes.ErrStoreFailure
	}
	return uintptr(out), true, nil
}

func (h *Handlers) regOpenKeyExW(hkey, lpSubKey, ulOptions, samDesired, phkResult uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegOpenKeyExW", hkey, lpSubKey, ulOptions, samDesired, phkResult)
	}
	return h.open(startPath, decodeWide(lpSubKey), phkResult, false)
}

func (h *Handlers) regOpenKeyExA(hkey, lpSubKey, ulOptions, samDesired, phkResult uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegOpenKeyExA", hkey, lpSubKey, ulOptions, samDesired, phkResult)
	}
	return h.open(startPath, decodeNarrow(lpSubKey), phkResult, false)
}

func (h *Handlers) regCreateKeyExW(hkey, lpSubKey, reserved, lpClass, options, samDesired, lpSA, phkResult, lpDisposition uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegCreateKeyExW", hkey, lpSubKey, reserved, lpClass, options, samDesired, lpSA, phkResult, lpDisposition)
	}
	return h.createOrOpen(startPath, decodeWide(lpSubKey), phkResult, lpDisposition)
}

func (h *Handlers) regCreateKeyExA(hkey, lpSubKey, reserved, lpClass, options, samDesired, lpSA, phkResult, lpDisposition uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegCreateKeyExA", hkey, lpSubKey, reserved, lpClass, options, samDesired, lpSA, phkResult, lpDisposition)
	}
	return h.createOrOpen(startPath, decodeNarrow(lpSubKey), phkResult, lpDisposition)
}

// open implements Open dispatch once the starting handle is already known
// to be ours; startPath is the already-resolved canonical path of hkey.
func (h *Handlers) open(startPath, subkey string, phkResult uintptr, create bool) uintptr {
	target := TargetPath(startPath, subkey)
	res, err := h.Dispatcher.OpenOrCreate(h.ctx, target, create, h.openReal)
	if err != nil {
		return win32FromErr(err)
	}
	*(*uintptr)(unsafe.Pointer(phkResult)) = uintptr(res.Handle)
	return winErrSuccess
}

func (h *Handlers) createOrOpen(startPath, subkey string, phkResult, lpDisposition uintptr) uintptr {
	target := TargetPath(startPath, subkey)
	res, err := h.Dispatcher.OpenOrCreate(h.ctx, target, true, h.openReal)
	if err != nil {
		return win32FromErr(err)
	}
	*(*uintptr)(unsafe.Pointer(phkResult)) = uintptr(res.Handle)
	if lpDisposition != 0 {
		const regCreatedNewKey, regOpenedExistingKey uint32 = 1, 2
		disp := regOpenedExistingKey
		if res.CreatedNew {
			disp = regCreatedNewKey
		}
		*(*uint32)(unsafe.Pointer(lpDisposition)) = disp
	}
	return winErrSuccess
}

func (h *Handlers) regCloseKey(hkey uintptr) uintptr {
	hh := handletable.Handle(hkey)
	if !handletable.IsVirtual(hh) {
		if _, found := h.Dispatcher.Handles.LookupReal(hkey); !found {
			return h.callOriginal("RegCloseKey", hkey)
		}
	}
	real, hasReal, ok := h.Dispatcher.Close(hh)
	if !ok {
		return winErrInvalidParam
	}
	if hasReal {
		h.callOriginal("RegCloseKey", real)
	}
	return winErrSuccess
}

func (h *Handlers) regSetValueExW(hkey, lpValueName, reserved, dwType, lpData, cbData uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegSetValueExW", hkey, lpValueName, reserved, dwType, lpData, cbData)
	}
	return h.setValue(startPath, decodeWide(lpValueName), uint32(dwType), readBytes(lpData, cbData), false)
}

func (h *Handlers) regSetValueExA(hkey, lpValueName, reserved, dwType, lpData, cbData uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegSetValueExA", hkey, lpValueName, reserved, dwType, lpData, cbData)
	}
	return h.setValue(startPath, decodeNarrow(lpValueName), uint32(dwType), readBytes(lpData, cbData), true)
}

func (h *Handlers) setValue(path, name string, typ uint32, data []byte, narrow bool) uintptr {
	if err := h.Dispatcher.SetValue(h.ctx, path, name, regtypes.Type(typ), data, narrow); err != nil {
		obslog.Warn("set_value failed", "path", path, "name", name, "err", err)
		return win32FromErr(err)
	}
	return winErrSuccess
}

func (h *Handlers) regSetKeyValueW(hkey, lpSubKey, lpValueName, dwType, lpData, cbData uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegSetKeyValueW", hkey, lpSubKey, lpValueName, dwType, lpData, cbData)
	}
	return h.setKeyValue(startPath, decodeWide(lpSubKey), decodeWide(lpValueName), uint32(dwType), readBytes(lpData, cbData), false)
}

func (h *Handlers) regSetKeyValueA(hkey, lpSubKey, lpValueName, dwType, lpData, cbData uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegSetKeyValueA", hkey, lpSubKey, lpValueName, dwType, lpData, cbData)
	}
	return h.setKeyValue(startPath, decodeNarrow(lpSubKey), decodeNarrow(lpValueName), uint32(dwType), readBytes(lpData, cbData), true)
}

func (h *Handlers) setKeyValue(startPath, subkey, name string, typ uint32, data []byte, narrow bool) uintptr {
	target := TargetPath(startPath, subkey)
	if err := h.Dispatcher.Store.PutKey(h.ctx, target); err != nil {
		return win32FromErr(err)
	}
	if err := h.Dispatcher.SetValue(h.ctx, target, name, regtypes.Type(typ), data, narrow); err != nil {
		return win32FromErr(err)
	}
	return winErrSuccess
}

func (h *Handlers) regQueryValueExW(hkey, lpValueName, lpReserved, lpType, lpData, lpcbData uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegQueryValueExW", hkey, lpValueName, lpReserved, lpType, lpData, lpcbData)
	}
	return h.queryValue(startPath, decodeWide(lpValueName), lpType, lpData, lpcbData, false)
}

func (h *Handlers) regQueryValueExA(hkey, lpValueName, lpReserved, lpType, lpData, lpcbData uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegQueryValueExA", hkey, lpValueName, lpReserved, lpType, lpData, lpcbData)
	}
	return h.queryValue(startPath, decodeNarrow(lpValueName), lpType, lpData, lpcbData, true)
}

// queryValue resolves the merged value and, for a narrow-spelling caller,
// transcodes SZ/EXPAND_SZ/MULTI_SZ data back to the narrow encoding
// before sizing and copying it into the caller's buffer — the overlay
// always stores string data as UTF-16LE, so an ANSI caller must never
// see those bytes untranscoded.
func (h *Handlers) queryValue(path, name string, lpType, lpData, lpcbData uintptr, narrow bool) uintptr {
	req := bufferRequestFrom(lpData, lpcbData)
	fetchReq := req
	if narrow {
		fetchReq = BufferRequest{HasBuffer: false}
	}
	typ, data, required, err := h.Dispatcher.QueryValue(h.ctx, path, name, fetchReq)
	if narrow && err == nil {
		data, required, err = ResolveBuffer(req, normalizeNarrowRead(typ, data))
	}
	writeQueryResult(lpType, lpData, lpcbData, uint32(typ), data, required)
	return win32FromErr(err)
}

func (h *Handlers) regGetValueW(hkey, lpSubKey, lpValue, dwFlags, pdwType, pvData, pcbData uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegGetValueW", hkey, lpSubKey, lpValue, dwFlags, pdwType, pvData, pcbData)
	}
	return h.getValue(startPath, decodeWide(lpSubKey), decodeWide(lpValue), pdwType, pvData, pcbData, false)
}

func (h *Handlers) regGetValueA(hkey, lpSubKey, lpValue, dwFlags, pdwType, pvData, pcbData uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegGetValueA", hkey, lpSubKey, lpValue, dwFlags, pdwType, pvData, pcbData)
	}
	return h.getValue(startPath, decodeNarrow(lpSubKey), decodeNarrow(lpValue), pdwType, pvData, pcbData, true)
}

func (h *Handlers) getValue(startPath, subkey, name string, pdwType, pvData, pcbData uintptr, narrow bool) uintptr {
	target := TargetPath(startPath, subkey)
	req := bufferRequestFrom(pvData, pcbData)
	fetchReq := req
	if narrow {
		fetchReq = BufferRequest{HasBuffer: false}
	}
	typ, data, required, err := h.Dispatcher.QueryValue(h.ctx, target, name, fetchReq)
	if narrow && err == nil {
		data, required, err = ResolveBuffer(req, normalizeNarrowRead(typ, data))
	}
	writeQueryResult(pdwType, pvData, pcbData, uint32(typ), data, required)
	return win32FromErr(err)
}

func (h *Handlers) regDeleteValueW(hkey, lpValueName uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegDeleteValueW", hkey, lpValueName)
	}
	return win32FromErr(h.Dispatcher.DeleteValue(h.ctx, startPath, decodeWide(lpValueName)))
}

func (h *Handlers) regDeleteValueA(hkey, lpValueName uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegDeleteValueA", hkey, lpValueName)
	}
	return win32FromErr(h.Dispatcher.DeleteValue(h.ctx, startPath, decodeNarrow(lpValueName)))
}

func (h *Handlers) regDeleteKeyW(hkey, lpSubKey uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegDeleteKeyW", hkey, lpSubKey)
	}
	return win32FromErr(h.Dispatcher.DeleteKeyTree(h.ctx, TargetPath(startPath, decodeWide(lpSubKey))))
}

func (h *Handlers) regDeleteKeyA(hkey, lpSubKey uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegDeleteKeyA", hkey, lpSubKey)
	}
	return win32FromErr(h.Dispatcher.DeleteKeyTree(h.ctx, TargetPath(startPath, decodeNarrow(lpSubKey))))
}

func (h *Handlers) regDeleteKeyExW(hkey, lpSubKey, samDesired, reserved uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegDeleteKeyExW", hkey, lpSubKey, samDesired, reserved)
	}
	return win32FromErr(h.Dispatcher.DeleteKeyTree(h.ctx, TargetPath(startPath, decodeWide(lpSubKey))))
}

func (h *Handlers) regDeleteKeyExA(hkey, lpSubKey, samDesired, reserved uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegDeleteKeyExA", hkey, lpSubKey, samDesired, reserved)
	}
	return win32FromErr(h.Dispatcher.DeleteKeyTree(h.ctx, TargetPath(startPath, decodeNarrow(lpSubKey))))
}

func (h *Handlers) regDeleteTreeW(hkey, lpSubKey uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegDeleteTreeW", hkey, lpSubKey)
	}
	return win32FromErr(h.Dispatcher.DeleteKeyTree(h.ctx, TargetPath(startPath, decodeWide(lpSubKey))))
}

func (h *Handlers) regDeleteTreeA(hkey, lpSubKey uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegDeleteTreeA", hkey, lpSubKey)
	}
	return win32FromErr(h.Dispatcher.DeleteKeyTree(h.ctx, TargetPath(startPath, decodeNarrow(lpSubKey))))
}

func (h *Handlers) regEnumValueW(hkey, dwIndex, lpValueName, lpcchValueName, lpReserved, lpType, lpData, lpcbData uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegEnumValueW", hkey, dwIndex, lpValueName, lpcchValueName, lpReserved, lpType, lpData, lpcbData)
	}
	return h.enumValue(startPath, dwIndex, lpValueName, lpcchValueName, lpType, lpData, lpcbData, true)
}

func (h *Handlers) regEnumValueA(hkey, dwIndex, lpValueName, lpcchValueName, lpReserved, lpType, lpData, lpcbData uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegEnumValueA", hkey, dwIndex, lpValueName, lpcchValueName, lpReserved, lpType, lpData, lpcbData)
	}
	return h.enumValue(startPath, dwIndex, lpValueName, lpcchValueName, lpType, lpData, lpcbData, false)
}

func (h *Handlers) enumValue(path string, dwIndex, lpValueName, lpcchValueName, lpType, lpData, lpcbData uintptr, wide bool) uintptr {
	nameReq := bufferRequestFrom(lpValueName, lpcchValueName)
	name, typ, data, err := h.Dispatcher.EnumValue(h.ctx, path, int(dwIndex), nameReq)
	if err == nil {
		writeName(lpValueName, lpcchValueName, name, wide)
		if lpType != 0 {
			*(*uint32)(unsafe.Pointer(lpType)) = uint32(typ)
		}
		if lpData != 0 && lpcbData != 0 {
			if !wide {
				data = normalizeNarrowRead(typ, data)
			}
			dataReq := bufferRequestFrom(lpData, lpcbData)
			toWrite, required, derr := ResolveBuffer(dataReq, data)
			writeQueryResult(0, lpData, lpcbData, 0, toWrite, required)
			if derr != nil {
				err = derr
			}
		}
	}
	return win32FromErr(err)
}

func (h *Handlers) regEnumKeyExW(hkey, dwIndex, lpName, lpcchName, lpReserved, lpClass, lpcchClass, lpft uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegEnumKeyExW", hkey, dwIndex, lpName, lpcchName, lpReserved, lpClass, lpcchClass, lpft)
	}
	return h.enumKey(startPath, dwIndex, lpName, lpcchName, true)
}

func (h *Handlers) regEnumKeyExA(hkey, dwIndex, lpName, lpcchName, lpReserved, lpClass, lpcchClass, lpft uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegEnumKeyExA", hkey, dwIndex, lpName, lpcchName, lpReserved, lpClass, lpcchClass, lpft)
	}
	return h.enumKey(startPath, dwIndex, lpName, lpcchName, false)
}

func (h *Handlers) enumKey(path string, dwIndex, lpName, lpcchName uintptr, wide bool) uintptr {
	req := bufferRequestFrom(lpName, lpcchName)
	name, err := h.Dispatcher.EnumKey(h.ctx, path, int(dwIndex), req)
	if err == nil {
		writeName(lpName, lpcchName, name, wide)
	}
	return win32FromErr(err)
}

func (h *Handlers) regQueryInfoKeyW(hkey, lpClass, lpcchClass, lpReserved, lpcSubKeys, lpcbMaxSubKeyLen, lpcbMaxClassLen, lpcValues, lpcbMaxValueNameLen, lpcbMaxValueLen, lpcbSD, lpft uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegQueryInfoKeyW", hkey, lpClass, lpcchClass, lpReserved, lpcSubKeys, lpcbMaxSubKeyLen, lpcbMaxClassLen, lpcValues, lpcbMaxValueNameLen, lpcbMaxValueLen, lpcbSD, lpft)
	}
	return h.queryInfo(startPath, lpcSubKeys, lpcbMaxSubKeyLen, lpcValues, lpcbMaxValueNameLen, lpcbMaxValueLen)
}

func (h *Handlers) regQueryInfoKeyA(hkey, lpClass, lpcchClass, lpReserved, lpcSubKeys, lpcbMaxSubKeyLen, lpcbMaxClassLen, lpcValues, lpcbMaxValueNameLen, lpcbMaxValueLen, lpcbSD, lpft uintptr) uintptr {
	startPath, _, _, ok := h.resolve(hkey)
	if !ok {
		return h.callOriginal("RegQueryInfoKeyA", hkey, lpClass, lpcchClass, lpReserved, lpcSubKeys, lpcbMaxSubKeyLen, lpcbMaxClassLen, lpcValues, lpcbMaxValueNameLen, lpcbMaxValueLen, lpcbSD, lpft)
	}
	return h.queryInfo(startPath, lpcSubKeys, lpcbMaxSubKeyLen, lpcValues, lpcbMaxValueNameLen, lpcbMaxValueLen)
}

func (h *Handlers) queryInfo(path string, lpcSubKeys, lpcbMaxSubKeyLen, lpcValues, lpcbMaxValueNameLen, lpcbMaxValueLen uintptr) uintptr {
	info, err := h.Dispatcher.QueryInfo(h.ctx, path)
	if err != nil {
		return win32FromErr(err)
	}
	writeU32(lpcSubKeys, uint32(info.SubkeyCount))
	writeU32(lpcbMaxSubKeyLen, uint32(info.MaxSubkeyNameLen))
	writeU32(lpcValues, uint32(info.ValueCount))
	writeU32(lpcbMaxValueNameLen, uint32(info.MaxValueNameLen))
	writeU32(lpcbMaxValueLen, uint32(info.MaxValueDataLen))
	return winErrSuccess
}

// normalizeNarrowRead transcodes a stored UTF-16LE string payload (or
// double-NUL-terminated multi-string) back to the narrow encoding an
// ANSI caller expects, the inverse of normalizeNarrowWrite. Non-string
// types pass through unchanged: their binary layout is spelling-
// independent.
func normalizeNarrowRead(typ regtypes.Type, data []byte) []byte {
	switch typ {
	case regtypes.SZ, regtypes.EXPAND_SZ:
		return append([]byte(strenc.UTF16LEStringToNarrow(data)), 0)
	case regtypes.MULTI_SZ:
		return narrowMultiBytes(strenc.UTF16LEMultiToNarrow(data))
	default:
		return data
	}
}

func narrowMultiBytes(strs []string) []byte {
	var out []byte
	for _, s := range strs {
		out = append(out, s...)
		out = append(out, 0)
	}
	return append(out, 0)
}

func decodeWide(p uintptr) string {
	if p == 0 {
		return ""
	}
	return windows.UTF16PtrToString((*uint16)(unsafe.Pointer(p)))
}

func decodeNarrow(p uintptr) string {
	if p == 0 {
		return ""
	}
	return windows.BytePtrToString((*byte)(unsafe.Pointer(p)))
}

func readBytes(p, n uintptr) []byte {
	if p == 0 || n == 0 {
		return nil
	}
	return append([]byte(nil), unsafe.Slice((*byte)(unsafe.Pointer(p)), int(n))...)
}

func writeU32(p uintptr, v uint32) {
	if p != 0 {
		*(*uint32)(unsafe.Pointer(p)) = v
	}
}

// bufferRequestFrom reads the caller's declared capacity from *lenPtr
// (zero/absent meaning NULL buffer) and builds the BufferRequest the
// dispatch core expects.
func bufferRequestFrom(bufPtr, lenPtr uintptr) BufferRequest {
	if bufPtr == 0 || lenPtr == 0 {
		return BufferRequest{HasBuffer: false}
	}
	return BufferRequest{HasBuffer: true, Capacity: int(*(*uint32)(unsafe.Pointer(lenPtr)))}
}

// writeQueryResult writes the required length back through lenPtr (every
// query-style API reports it regardless of outcome) and, when data is
// non-nil, copies it into the caller's buffer and sets the type out-param
// if present.
func writeQueryResult(typePtr, dataPtr, lenPtr uintptr, typ uint32, data []byte, required int) {
	if lenPtr != 0 {
		*(*uint32)(unsafe.Pointer(lenPtr)) = uint32(required)
	}
	if typePtr != 0 {
		*(*uint32)(unsafe.Pointer(typePtr)) = typ
	}
	if data != nil && dataPtr != 0 {
		copy(unsafe.Slice((*byte)(unsafe.Pointer(dataPtr)), len(data)), data)
	}
}

// writeName copies name into the caller's buffer in the spelling the
// call site expects, NUL-terminated, and updates *lenPtr to the number of
// characters written (not counting the terminator), matching
// RegEnumValueEx/RegEnumKeyEx's lpcch* contract.
func writeName(bufPtr, lenPtr uintptr, name string, wide bool) {
	if bufPtr == 0 {
		return
	}
	if wide {
		units := windows.StringToUTF16(name)
		dst := unsafe.Slice((*uint16)(unsafe.Pointer(bufPtr)), len(units))
		copy(dst, units)
		if lenPtr != 0 {
			*(*uint32)(unsafe.Pointer(lenPtr)) = uint32(len(units) - 1)
		}
		return
	}
	b := append([]byte(name), 0)
	dst := unsafe.Slice((*byte)(unsafe.Pointer(bufPtr)), len(b))
	copy(dst, b)
	if lenPtr != 0 {
		*(*uint32)(unsafe.Pointer(lenPtr)) = uint32(len(b) - 1)
	}
}

// relativeForReal strips the HKLM root segment the same way winreg does,
// since the pass-through open must hand RegOpenKeyExW a path relative to
// HKEY_LOCAL_MACHINE.
func relativeForReal(path string) (string, error) {
	const prefix = `HKLM\`
	if path == "HKLM" {
		return "", nil
	}
	if len(path) > len(prefix) && path[:len(prefix)] == prefix {
		return path[len(prefix):], nil
	}
	return "", regtypes.ErrInvalidArg
}
