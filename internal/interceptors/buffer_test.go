package interceptors

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hklmshim/internal/handletable"
	"github.com/joshuapare/hklmshim/internal/merge"
	"github.com/joshuapare/hklmshim/internal/overlay"
	"github.com/joshuapare/hklmshim/internal/regtypes"
)

func TestResolveBufferNullBufferReturnsRequiredSize(t *testing.T) {
	toWrite, n, err := ResolveBuffer(BufferRequest{HasBuffer: false}, []byte("hello"))
	require.NoError(t, err)
	require.Nil(t, toWrite)
	require.Equal(t, 5, n)
}

func TestResolveBufferShortBufferReportsMoreData(t *testing.T) {
	toWrite, n, err := ResolveBuffer(BufferRequest{HasBuffer: true, Capacity: 2}, []byte("hello"))
	require.ErrorIs(t, err, regtypes.ErrMoreData)
	require.Nil(t, toWrite)
	require.Equal(t, 5, n)
}

func TestResolveBufferAdequateBufferReturnsData(t *testing.T) {
	toWrite, n, err := ResolveBuffer(BufferRequest{HasBuffer: true, Capacity: 5}, []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), toWrite)
	require.Equal(t, 5, n)
}

func dispatcherWithStore(t *testing.T) *Dispatcher {
	t.Helper()
	s, err := overlay.Open(filepath.Join(t.TempDir(), "overlay.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(handletable.New(), s, merge.New(s, nil))
}

func TestQueryValueNotFoundWhenAbsent(t *testing.T) {
	d := dispatcherWithStore(t)
	_, _, _, err := d.QueryValue(context.Background(), `HKLM\A`, "X", BufferRequest{})
	require.ErrorIs(t, err, regtypes.ErrNotFound)
}

func TestQueryValueAppliesBufferContract(t *testing.T) {
	d := dispatcherWithStore(t)
	ctx := context.Background()
	require.NoError(t, d.Store.PutValue(ctx, `HKLM\A`, "X", regtypes.DWORD, []byte{1, 0, 0, 0}))

	typ, data, n, err := d.QueryValue(ctx, `HKLM\A`, "X", BufferRequest{HasBuffer: true, Capacity: 4})
	require.NoError(t, err)
	require.Equal(t, regtypes.DWORD, typ)
	require.Equal(t, []byte{1, 0, 0, 0}, data)
	require.Equal(t, 4, n)

	_, _, _, err = d.QueryValue(ctx, `HKLM\A`, "X", BufferRequest{HasBuffer: true, Capacity: 1})
	require.ErrorIs(t, err, regtypes.ErrMoreData)
}

func TestEnumValueNoMoreItemsPastEnd(t *testing.T) {
	d := dispatcherWithStore(t)
	ctx := context.Background()
	require.NoError(t, d.Store.PutValue(ctx, `HKLM\A`, "Only", regtypes.SZ, nil))

	name, _, _, err := d.EnumValue(ctx, `HKLM\A`, 0, BufferRequest{HasBuffer: true, Capacity: 16})
	require.NoError(t, err)
	require.Equal(t, "Only", name)

	_, _, _, err = d.EnumValue(ctx, `HKLM\A`, 1, BufferRequest{HasBuffer: true, Capacity: 16})
	require.ErrorIs(t, err, regtypes.ErrNoMoreItems)
}

func TestEnumKeyNoMoreItemsPastEnd(t *testing.T) {
	d := dispatcherWithStore(t)
	ctx := context.Background()
	require.NoError(t, d.Store.PutKey(ctx, `HKLM\A\Only`))

	name, err := d.EnumKey(ctx, `HKLM\A`, 0, BufferRequest{HasBuffer: true, Capacity: 16})
	require.NoError(t, err)
	require.Equal(t, "Only", name)

	_, err = d.EnumKey(ctx, `HKLM\A`, 1, BufferRequest{HasBuffer: true, Capacity: 16})
	require.ErrorIs(t, err, regtypes.ErrNoMoreItems)
}

func TestQueryInfoReflectsMergedCounts(t *testing.T) {
	d := dispatcherWithStore(t)
	ctx := context.Background()
	require.NoError(t, d.Store.PutValue(ctx, `HKLM\A`, "X", regtypes.SZ, nil))
	require.NoError(t, d.Store.PutKey(ctx, `HKLM\A\Child`))

	info, err := d.QueryInfo(ctx, `HKLM\A`)
	require.NoError(t, err)
	require.Equal(t, 1, info.ValueCount)
	require.Equal(t, 1, info.SubkeyCount)
}
