package launcher

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveShimPathPrimary(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, shimDLLName), []byte{}, 0o644))

	got, err := ResolveShimPath(filepath.Join(dir, "hklm-launch.exe"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, shimDLLName), got)
}

func TestResolveShimPathLegacyFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, shimDLLNameLegacy), []byte{}, 0o644))

	got, err := ResolveShimPath(filepath.Join(dir, "hklm-launch.exe"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, shimDLLNameLegacy), got)
}

func TestResolveShimPathMissing(t *testing.T) {
	dir := t.TempDir()
	_, err := ResolveShimPath(filepath.Join(dir, "hklm-launch.exe"))
	require.Error(t, err)
}

func TestRendezvousAndDebugPipeNamesDeriveFromPid(t *testing.T) {
	require.Equal(t, "Local\\hklmshim_ready_1234", RendezvousName(1234))
	require.Equal(t, `\\.\pipe\hklmshim_debug_1234`, DebugPipeName(1234))
}
