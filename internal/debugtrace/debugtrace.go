// Package debugtrace formats and ships best-effort API trace lines over a
// named pipe from inside the injected target to whatever console the
// Launcher attached. Loss is tolerated: a trace line that cannot be
// written is dropped, never retried, and never blocks the caller's
// registry call.
package debugtrace

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/joshuapare/hklmshim/internal/regtypes"
)

// Writer ships formatted trace lines to an underlying transport. The
// transport is expected to be a pipe connection; Writer itself does no
// dialing or reconnection logic (see Dial on Windows builds).
type Writer struct {
	mu   sync.Mutex
	conn io.Writer // nil means tracing is inactive; every Emit becomes a no-op
}

// New wraps an already-connected transport. Passing a nil conn produces a
// Writer whose Emit calls are no-ops, useful when tracing is disabled.
func New(conn io.Writer) *Writer {
	return &Writer{conn: conn}
}

// Emit formats and best-effort writes one trace line. A write failure
// silently disables further tracing on this Writer rather than panicking
// or retrying, matching the "loss is tolerated" contract.
func (w *Writer) Emit(pid, tid uint32, api, op, key, name string, typ regtypes.Type, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return
	}
	line := FormatLine(time.Now(), pid, tid, api, op, key, name, typ, data)
	if _, err := io.WriteString(w.conn, line); err != nil {
		w.conn = nil
	}
}

// FormatLine renders one trace line per the wire format:
//
//	(HH:MM:SS.mmm) [pid:tid] api=<name> op=<kind> key="…" name="…" value="…"
func FormatLine(t time.Time, pid, tid uint32, api, op, key, name string, typ regtypes.Type, data []byte) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(%s) [%d:%d] api=%s op=%s key=%q name=%q value=%s\n",
		t.Format("15:04:05.000"), pid, tid, api, op, key, name, formatValuePreview(typ, data))
	return b.String()
}

// formatValuePreview renders a readable preview for known types, or a hex
// dump for unknown/binary types.
func formatValuePreview(typ regtypes.Type, data []byte) string {
	switch typ {
	case regtypes.SZ, regtypes.EXPAND_SZ:
		return fmt.Sprintf("%s:%q", typeName(typ), utf16Preview(data))
	case regtypes.MULTI_SZ:
		return fmt.Sprintf("MULTI_SZ:%q", strings.Join(utf16MultiPreview(data), "|"))
	case regtypes.DWORD, regtypes.DWORD_BIG_ENDIAN:
		return fmt.Sprintf("%s:0x%08x", typeName(typ), decodeDWORD(typ, data))
	case regtypes.QWORD:
		return fmt.Sprintf("QWORD:0x%016x", decodeQWORD(data))
	default:
		return fmt.Sprintf("%s(%d bytes):%s", typeName(typ), len(data), hex.EncodeToString(data))
	}
}

func typeName(typ regtypes.Type) string {
	switch typ {
	case regtypes.NONE:
		return "NONE"
	case regtypes.SZ:
		return "SZ"
	case regtypes.EXPAND_SZ:
		return "EXPAND_SZ"
	case regtypes.BINARY:
		return "BINARY"
	case regtypes.DWORD:
		return "DWORD"
	case regtypes.DWORD_BIG_ENDIAN:
		return "DWORD_BE"
	case regtypes.MULTI_SZ:
		return "MULTI_SZ"
	case regtypes.QWORD:
		return "QWORD"
	default:
		return fmt.Sprintf("TYPE_%d", uint32(typ))
	}
}

func decodeDWORD(typ regtypes.Type, data []byte) uint32 {
	if len(data) < 4 {
		return 0
	}
	if typ == regtypes.DWORD_BIG_ENDIAN {
		return uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	}
	return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
}

func decodeQWORD(data []byte) uint64 {
	if len(data) < 8 {
		return 0
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(data[i])
	}
	return v
}

// utf16Preview decodes a NUL-terminated UTF-16LE string for display,
// truncating at the first U+0000 code unit.
func utf16Preview(data []byte) string {
	var b strings.Builder
	for i := 0; i+1 < len(data); i += 2 {
		u := uint16(data[i]) | uint16(data[i+1])<<8
		if u == 0 {
			break
		}
		b.WriteRune(rune(u))
	}
	return b.String()
}

// utf16MultiPreview splits a double-NUL-terminated MULTI_SZ blob into its
// component strings for display.
func utf16MultiPreview(data []byte) []string {
	var out []string
	var cur strings.Builder
	for i := 0; i+1 < len(data); i += 2 {
		u := uint16(data[i]) | uint16(data[i+1])<<8
		if u == 0 {
			if cur.Len() == 0 {
				break
			}
			out = append(out, cur.String())
			cur.Reset()
			continue
		}
		cur.WriteRune(rune(u))
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
