package winreg

import (
	"fmt"
	"strings"

	"github.com/joshuapare/hklmshim/internal/keypath"
)

// relativePath strips the HKLM root segment from a canonical path, leaving
// the path relative to HKEY_LOCAL_MACHINE that the underlying registry API
// expects. path must already be canonical (see keypath.Canonicalize).
func relativePath(path string) (string, error) {
	if !strings.EqualFold(path, keypath.Root) && !keypath.IsUnder(path, keypath.Root) {
		return "", fmt.Errorf("winreg: path %q is not under %s", path, keypath.Root)
	}
	if strings.EqualFold(path, keypath.Root) {
		return "", nil
	}
	return path[len(keypath.Root)+1:], nil
}
