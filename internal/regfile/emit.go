package regfile

import (
	"fmt"
	"strings"

	"github.com/joshuapare/hklmshim/internal/overlay"
	"github.com/joshuapare/hklmshim/internal/regtypes"
)

// ExportOptions configures Emit.
type ExportOptions struct {
	// UTF16 requests UTF-16LE-with-BOM output. When false,
	// Emit returns plain UTF-8 text (used by tests and by callers piping
	// to tools that expect UTF-8).
	UTF16 bool
}

// Emit renders rows (as produced by overlay.Store.ExportAll, in the order
// given) as .reg text.
func Emit(rows []overlay.ExportedRow, opts ExportOptions) []byte {
	var b strings.Builder
	b.WriteString(RegFileHeader + crlf + crlf)

	var currentKey string
	haveKey := false
	for _, r := range rows {
		if !haveKey || r.KeyPath != currentKey {
			b.WriteString(keyOpenBracket + r.KeyPath + keyCloseBracket + crlf)
			currentKey = r.KeyPath
			haveKey = true
		}
		if r.KeyOnly {
			continue
		}
		writeValueLine(&b, r)
	}

	if opts.UTF16 {
		return encodeUTF16LEWithBOM(b.String())
	}
	return []byte(b.String())
}

func writeValueLine(b *strings.Builder, r overlay.ExportedRow) {
	if r.ValueName == "" {
		b.WriteString(defaultValuePrefix)
	} else {
		b.WriteString(quote + escapeRegString(r.ValueName) + quote + "=")
	}

	switch r.Type {
	case regtypes.SZ:
		b.WriteString(quote + escapeRegString(utf16LEStringToNarrow(r.Data)) + quote)
	case regtypes.DWORD:
		var v uint32
		if len(r.Data) >= 4 {
			v = uint32(r.Data[0]) | uint32(r.Data[1])<<8 | uint32(r.Data[2])<<16 | uint32(r.Data[3])<<24
		}
		fmt.Fprintf(b, "dword:%08x", v)
	case regtypes.BINARY:
		b.WriteString(hexPrefix + formatHexBytes(r.Data))
	default:
		fmt.Fprintf(b, "hex(%x):%s", uint32(r.Type), formatHexBytes(r.Data))
	}
	b.WriteString(crlf)
}

func formatHexBytes(data []byte) string {
	parts := make([]string, len(data))
	for i, v := range data {
		parts[i] = fmt.Sprintf("%02x", v)
	}
	return strings.Join(parts, ",")
}

func escapeRegString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return r.Replace(s)
}
