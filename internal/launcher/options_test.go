package launcher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseArgsDefaults(t *testing.T) {
	opts, err := ParseArgs([]string{"target.exe", "--flag", "value"})
	require.NoError(t, err)
	require.Equal(t, "HKLM.sqlite", opts.OverlayPath)
	require.Equal(t, "", opts.DebugFilter)
	require.Equal(t, "target.exe", opts.TargetExe)
	require.Equal(t, []string{"--flag", "value"}, opts.TargetArgs)
}

func TestParseArgsDbAndDebug(t *testing.T) {
	opts, err := ParseArgs([]string{"--db", "overlay.sqlite", "--debug", "all", "target.exe"})
	require.NoError(t, err)
	require.Equal(t, "overlay.sqlite", opts.OverlayPath)
	require.Equal(t, "all", opts.DebugFilter)
	require.Empty(t, opts.TargetArgs)
}

func TestParseArgsInlineValue(t *testing.T) {
	opts, err := ParseArgs([]string{"--db=overlay.sqlite", "target.exe"})
	require.NoError(t, err)
	require.Equal(t, "overlay.sqlite", opts.OverlayPath)
}

func TestParseArgsForwardedFlag(t *testing.T) {
	opts, err := ParseArgs([]string{"--scale", "2", "--scale-method", "fsr", "target.exe", "-x"})
	require.NoError(t, err)
	require.Equal(t, "2", opts.Forwarded["--scale"])
	require.Equal(t, "fsr", opts.Forwarded["--scale-method"])
	require.Equal(t, []string{"-x"}, opts.TargetArgs)
}

func TestParseArgsMissingTarget(t *testing.T) {
	_, err := ParseArgs([]string{"--db", "x.sqlite"})
	require.Error(t, err)
}

func TestParseArgsUnrecognizedFlag(t *testing.T) {
	_, err := ParseArgs([]string{"--bogus", "target.exe"})
	require.Error(t, err)
}

func TestParseArgsMissingFlagValue(t *testing.T) {
	_, err := ParseArgs([]string{"--db"})
	require.Error(t, err)
}
