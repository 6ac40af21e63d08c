package launcher

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	shimDLLName       = "hklmshim.dll"
	shimDLLNameLegacy = "hklm_shim.dll" // accepted if the primary is absent
)

// ResolveShimPath locates the shim DLL next to the launcher binary,
// falling back to the legacy file name. launcherPath is ordinarily
// os.Args[0]; passed explicitly so this stays testable off Windows.
func ResolveShimPath(launcherPath string) (string, error) {
	dir, err := filepath.Abs(filepath.Dir(launcherPath))
	if err != nil {
		return "", fmt.Errorf("resolve launcher directory: %w", err)
	}
	primary := filepath.Join(dir, shimDLLName)
	if _, err := os.Stat(primary); err == nil {
		return primary, nil
	}
	legacy := filepath.Join(dir, shimDLLNameLegacy)
	if _, err := os.Stat(legacy); err == nil {
		return legacy, nil
	}
	return "", fmt.Errorf("shim DLL not found next to launcher: tried %s and %s", primary, legacy)
}

// RendezvousName builds the hook-ready signal name, derived from the
// launcher's own PID so it can be computed before the child exists and
// handed to the child through its environment block.
func RendezvousName(launcherPid uint32) string {
	return fmt.Sprintf("Local\\hklmshim_ready_%d", launcherPid)
}

// DebugPipeName builds the named pipe the debug tracing bridge listens
// on, matching the \\.\pipe\<app>_debug_<pid> shape from the external
// interfaces contract. pid is the launcher's own PID, the same one
// RendezvousName uses, since the launcher (not the child) owns the pipe.
func DebugPipeName(launcherPid uint32) string {
	return fmt.Sprintf(`\\.\pipe\hklmshim_debug_%d`, launcherPid)
}
