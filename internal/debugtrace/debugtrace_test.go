package debugtrace

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hklmshim/internal/regtypes"
)

func TestFormatLineKnownTypes(t *testing.T) {
	ts := time.Date(2026, 1, 1, 12, 30, 45, 123_000_000, time.UTC)

	sz := utf16LE("wrapped-ok")
	line := FormatLine(ts, 111, 222, "RegSetValueExW", "set_value", `HKLM\Software\acme`, "WorkflowValue", regtypes.SZ, sz)
	require.Contains(t, line, "(12:30:45.123)")
	require.Contains(t, line, "[111:222]")
	require.Contains(t, line, `api=RegSetValueExW`)
	require.Contains(t, line, `key="HKLM\Software\acme"`)
	require.Contains(t, line, `name="WorkflowValue"`)
	require.Contains(t, line, `SZ:"wrapped-ok"`)
}

func TestFormatLineDword(t *testing.T) {
	line := FormatLine(time.Now(), 1, 1, "RegSetValueExA", "set_value", `HKLM\A`, "Answer", regtypes.DWORD, []byte{0x2a, 0, 0, 0})
	require.Contains(t, line, "DWORD:0x0000002a")
}

func TestFormatLineBinaryTypeHexDump(t *testing.T) {
	line := FormatLine(time.Now(), 1, 1, "RegSetValueExA", "set_value", `HKLM\A`, "Blob", regtypes.BINARY, []byte{0xde, 0xad, 0xbe, 0xef})
	require.Contains(t, line, "deadbeef")
}

func TestWriterDisablesOnWriteFailure(t *testing.T) {
	w := New(failingWriter{})
	w.Emit(1, 1, "RegQueryValueExW", "query", `HKLM\A`, "V", regtypes.SZ, nil)
	require.Nil(t, w.conn, "a write failure should silently disable further tracing")
}

func TestWriterNoopWhenDisabled(t *testing.T) {
	w := New(nil)
	w.Emit(1, 1, "RegQueryValueExW", "query", `HKLM\A`, "V", regtypes.SZ, nil)
}

func TestWriterEmitsToBuffer(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)
	w.Emit(1, 1, "RegQueryValueExW", "query", `HKLM\A`, "V", regtypes.SZ, utf16LE("x"))
	require.Contains(t, buf.String(), "api=RegQueryValueExW")
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, bytes.ErrTooLarge }

func utf16LE(s string) []byte {
	out := make([]byte, 0, len(s)*2+2)
	for _, r := range s {
		out = append(out, byte(r), byte(r>>8))
	}
	return append(out, 0, 0)
}
