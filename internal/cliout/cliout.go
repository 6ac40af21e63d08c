// Package cliout implements the Administrative CLI's output contract:
// text written to a real console goes out as wide characters directly;
// text written to a file or a redirected stream goes out as UTF-16LE with
// a leading byte-order mark. Both paths carry the same Unicode content,
// so piping hklmctl's own stdout into another program and reading the
// file it would otherwise have written are equivalent.
package cliout

import (
	"io"
	"os"

	"github.com/joshuapare/hklmshim/internal/strenc"
)

// WriteString writes text to f using whichever of the two encodings f's
// destination calls for.
func WriteString(f *os.File, text string) error {
	if isConsole(f) {
		return writeConsole(f, text)
	}
	_, err := f.Write(strenc.EncodeUTF16LEWithBOM(text))
	return err
}

// writeConsoleFallback is used on platforms where there is no
// wide-character console API to call through to, and on Windows when the
// wide console write fails; it just writes UTF-8, which every non-Windows
// terminal already expects.
func writeConsoleFallback(w io.Writer, text string) error {
	_, err := io.WriteString(w, text)
	return err
}
