package interceptors

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hklmshim/internal/handletable"
	"github.com/joshuapare/hklmshim/internal/keypath"
	"github.com/joshuapare/hklmshim/internal/merge"
	"github.com/joshuapare/hklmshim/internal/overlay"
	"github.com/joshuapare/hklmshim/internal/regtypes"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	s, err := overlay.Open(filepath.Join(t.TempDir(), "overlay.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	eng := merge.New(s, nil)
	return New(handletable.New(), s, eng)
}

func TestResolveStartWellKnownRoot(t *testing.T) {
	d := newTestDispatcher(t)
	path, real, hasReal, ok := d.ResolveStart(0, true)
	require.True(t, ok)
	require.Equal(t, keypath.Root, path)
	require.False(t, hasReal)
	require.Zero(t, real)
}

func TestResolveStartUnknownHandleIsNotOurs(t *testing.T) {
	d := newTestDispatcher(t)
	_, _, _, ok := d.ResolveStart(0xdeadbeef, false)
	require.False(t, ok)
}

func TestResolveStartVirtualHandleRoundTrips(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	res, err := d.OpenOrCreate(ctx, `HKLM\SOFTWARE\acme`, true, nil)
	require.NoError(t, err)
	require.True(t, res.CreatedNew)

	path, real, hasReal, ok := d.ResolveStart(uintptr(res.Handle), false)
	require.True(t, ok)
	require.Equal(t, `HKLM\SOFTWARE\acme`, path)
	require.False(t, hasReal)
	require.Zero(t, real)
}

func TestResolveStartRealHandleLookup(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	res, err := d.OpenOrCreate(ctx, `HKLM\SOFTWARE\acme`, true, func(path string, create bool) (uintptr, bool, error) {
		return 0x1234, false, nil
	})
	require.NoError(t, err)
	require.True(t, res.HasReal)

	path, real, hasReal, ok := d.ResolveStart(res.RealHandle, false)
	require.True(t, ok)
	require.True(t, hasReal)
	require.EqualValues(t, 0x1234, real)
	require.Equal(t, `HKLM\SOFTWARE\acme`, path)
}

func TestOpenOrCreateReportsNewOnlyWhenAbsentEverywhere(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	res, err := d.OpenOrCreate(ctx, `HKLM\SOFTWARE\acme`, true, nil)
	require.NoError(t, err)
	require.True(t, res.CreatedNew)

	res2, err := d.OpenOrCreate(ctx, `HKLM\SOFTWARE\acme`, true, nil)
	require.NoError(t, err)
	require.False(t, res2.CreatedNew, "reopening an already-live overlay key must not report new")
}

func TestOpenWithoutCreateFailsWhenAbsentEverywhere(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	_, err := d.OpenOrCreate(ctx, `HKLM\SOFTWARE\nope`, false, nil)
	require.ErrorIs(t, err, regtypes.ErrNotFound)
}

func TestOpenWithoutCreateSucceedsWhenRealExists(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	res, err := d.OpenOrCreate(ctx, `HKLM\SOFTWARE\acme`, false, func(path string, create bool) (uintptr, bool, error) {
		return 0x77, true, nil
	})
	require.NoError(t, err)
	require.False(t, res.CreatedNew)
	require.True(t, res.HasReal)
}

func TestCloseReleasesRealHandleAndForgetsMapping(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	res, err := d.OpenOrCreate(ctx, `HKLM\SOFTWARE\acme`, true, func(path string, create bool) (uintptr, bool, error) {
		return 0x55, false, nil
	})
	require.NoError(t, err)

	real, hasReal, ok := d.Close(res.Handle)
	require.True(t, ok)
	require.True(t, hasReal)
	require.EqualValues(t, 0x55, real)

	_, found := d.Handles.LookupReal(0x55)
	require.False(t, found, "closing a handle must forget its real-handle mapping")
}

func TestSetValueNarrowTranscodesToUTF16LE(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	const path = `HKLM\SOFTWARE\acme`

	require.NoError(t, d.SetValue(ctx, path, "Greeting", regtypes.SZ, []byte("hi\x00"), true))

	v, err := d.Engine.Value(ctx, path, "Greeting")
	require.NoError(t, err)
	require.NotNil(t, v)
	require.Equal(t, []byte{'h', 0, 'i', 0, 0, 0}, v.Data)
}

func TestSetValueWideLeavesPayloadUntouched(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	const path = `HKLM\SOFTWARE\acme`
	wide := []byte{'h', 0, 'i', 0, 0, 0}

	require.NoError(t, d.SetValue(ctx, path, "Greeting", regtypes.SZ, wide, false))

	v, err := d.Engine.Value(ctx, path, "Greeting")
	require.NoError(t, err)
	require.Equal(t, wide, v.Data)
}

func TestDeleteValueAndDeleteKeyTree(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()
	const path = `HKLM\SOFTWARE\acme`

	require.NoError(t, d.SetValue(ctx, path, "V", regtypes.DWORD, []byte{1, 0, 0, 0}, false))
	require.NoError(t, d.DeleteValue(ctx, path, "V"))
	v, err := d.Engine.Value(ctx, path, "V")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, d.SetValue(ctx, path+`\Child`, "W", regtypes.DWORD, []byte{2, 0, 0, 0}, false))
	require.NoError(t, d.DeleteKeyTree(ctx, path))
	exists, err := d.Engine.Exists(ctx, path+`\Child`)
	require.NoError(t, err)
	require.False(t, exists)
}
