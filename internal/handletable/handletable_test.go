package handletable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenLookupClose(t *testing.T) {
	tbl := New()
	h := tbl.Open(`HKLM\Software\acme`, 0xdeadbeef, true)
	require.True(t, IsVirtual(h))

	path, real, hasReal, ok := tbl.Lookup(h)
	require.True(t, ok)
	require.Equal(t, `HKLM\Software\acme`, path)
	require.True(t, hasReal)
	require.EqualValues(t, 0xdeadbeef, real)

	real2, hasReal2, ok := tbl.Close(h)
	require.True(t, ok)
	require.True(t, hasReal2)
	require.EqualValues(t, 0xdeadbeef, real2)

	// Record remains addressable after close: concurrent lookups must not
	// crash.
	_, _, _, ok = tbl.Lookup(h)
	require.True(t, ok)

	// Double close reports failure but does not panic.
	_, _, ok = tbl.Close(h)
	require.False(t, ok)
}

func TestRealOSHandleNeverLooksVirtual(t *testing.T) {
	for _, real := range []uintptr{0, 1, 0x100, 0x7fffffff} {
		require.False(t, IsVirtual(Handle(real)), "real-looking handle %#x must not be tagged virtual", real)
	}
}

func TestLookupRejectsForeignHandle(t *testing.T) {
	tbl := New()
	foreign := Handle(tagBit | 999)
	_, _, _, ok := tbl.Lookup(foreign)
	require.False(t, ok)
}

func TestRealHandleMap(t *testing.T) {
	tbl := New()
	tbl.RegisterReal(0x1234, `HKLM\A`)
	path, ok := tbl.LookupReal(0x1234)
	require.True(t, ok)
	require.Equal(t, `HKLM\A`, path)

	tbl.ForgetReal(0x1234)
	_, ok = tbl.LookupReal(0x1234)
	require.False(t, ok)
}

func TestResetDiscardsHandles(t *testing.T) {
	tbl := New()
	h := tbl.Open(`HKLM\A`, 0, false)
	tbl.Reset()
	_, _, _, ok := tbl.Lookup(h)
	require.False(t, ok)
	require.Equal(t, 0, tbl.Len())
}
