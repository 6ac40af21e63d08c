//go:build windows

package launcher

import (
	"sort"
	"strings"
	"unsafe"

	"github.com/joshuapare/hklmshim/internal/strenc"
)

// environmentBlockPtr encodes env as the double-NUL-terminated
// "KEY=VALUE\0...\0\0" UTF-16LE block CreateProcess's lpEnvironment
// parameter expects — the same wire shape internal/strenc already uses
// for REG_MULTI_SZ, reused here rather than re-implemented.
func environmentBlockPtr(env map[string]string) *uint16 {
	names := make([]string, 0, len(env))
	for k := range env {
		names = append(names, k)
	}
	// CreateProcess requires alphabetical ordering (case-insensitive) per its own docs
	sort.Slice(names, func(i, j int) bool { return strings.ToUpper(names[i]) < strings.ToUpper(names[j]) })

	pairs := make([]string, 0, len(names))
	for _, k := range names {
		pairs = append(pairs, k+"="+env[k])
	}
	block := strenc.NarrowMultiToUTF16LEDoubleNulTerminated(pairs)
	if len(block) == 0 {
		return nil
	}
	return (*uint16)(unsafe.Pointer(&block[0]))
}
