package merge

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hklmshim/internal/overlay"
	"github.com/joshuapare/hklmshim/internal/regtypes"
	"github.com/joshuapare/hklmshim/internal/winreg"
)

// fakeKey and fakeOpener simulate a populated real registry without
// touching the OS, so the merge rules can be tested on any platform.
type fakeKey struct {
	values  []regtypes.Value
	subkeys []string
}

func (k *fakeKey) Close() error { return nil }
func (k *fakeKey) ListValues() ([]regtypes.Value, error) { return k.values, nil }
func (k *fakeKey) ListSubkeys() ([]string, error)        { return k.subkeys, nil }
func (k *fakeKey) GetValue(name string) (regtypes.Type, []byte, bool, error) {
	for _, v := range k.values {
		if v.Name == name {
			return v.Type, v.Data, true, nil
		}
	}
	return 0, nil, false, nil
}

type fakeOpener struct {
	keys map[string]*fakeKey
}

func (o *fakeOpener) OpenReal(path string) (winreg.RealKey, bool, error) {
	k, ok := o.keys[path]
	if !ok {
		return nil, false, nil
	}
	return k, true, nil
}

func openTestStore(t *testing.T) *overlay.Store {
	t.Helper()
	s, err := overlay.Open(filepath.Join(t.TempDir(), "overlay.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestValuesUnionsOverlayAndReal(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	const path = `HKLM\SOFTWARE\acme`
	require.NoError(t, s.PutValue(ctx, path, "Overlay", regtypes.SZ, []byte("o")))

	real := &fakeOpener{keys: map[string]*fakeKey{
		path: {values: []regtypes.Value{
			{Name: "Real", Type: regtypes.SZ, Data: []byte("r")},
			{Name: "Overlay", Type: regtypes.SZ, Data: []byte("shadowed")},
		}},
	}}
	eng := New(s, real)
	values, err := eng.Values(ctx, path)
	require.NoError(t, err)
	require.Len(t, values, 2)
	require.Equal(t, "Overlay", values[0].Name)
	require.Equal(t, []byte("o"), values[0].Data, "overlay row must shadow the real row of the same name")
	require.Equal(t, "Real", values[1].Name)
}

func TestDeletedValueHiddenEvenWhenRealHasIt(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	const path = `HKLM\SOFTWARE\acme`
	require.NoError(t, s.PutValue(ctx, path, "Gone", regtypes.SZ, []byte("x")))
	require.NoError(t, s.DeleteValue(ctx, path, "Gone"))

	real := &fakeOpener{keys: map[string]*fakeKey{
		path: {values: []regtypes.Value{{Name: "Gone", Type: regtypes.SZ, Data: []byte("real")}}},
	}}
	eng := New(s, real)
	values, err := eng.Values(ctx, path)
	require.NoError(t, err)
	require.Empty(t, values)

	v, err := eng.Value(ctx, path, "Gone")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestTombstonedKeyHidesRealSubtree(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	const path = `HKLM\SOFTWARE\acme`
	require.NoError(t, s.DeleteKeyTree(ctx, path))

	real := &fakeOpener{keys: map[string]*fakeKey{
		path: {subkeys: []string{"Child"}, values: []regtypes.Value{{Name: "V", Type: regtypes.SZ}}},
	}}
	eng := New(s, real)

	exists, err := eng.Exists(ctx, path)
	require.NoError(t, err)
	require.False(t, exists)

	subkeys, err := eng.Subkeys(ctx, path)
	require.NoError(t, err)
	require.Empty(t, subkeys)
}

func TestSubkeysUnionSortedCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	const path = `HKLM\SOFTWARE\acme`
	require.NoError(t, s.PutKey(ctx, path+`\Zeta`))
	require.NoError(t, s.PutKey(ctx, path+`\alpha`))

	real := &fakeOpener{keys: map[string]*fakeKey{
		path: {subkeys: []string{"Middle", "Zeta"}},
	}}
	eng := New(s, real)
	subkeys, err := eng.Subkeys(ctx, path)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "Middle", "Zeta"}, subkeys)
}

func TestOrdinalEnumerationStopsAtEnd(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	const path = `HKLM\SOFTWARE\acme`
	require.NoError(t, s.PutValue(ctx, path, "Only", regtypes.SZ, nil))

	eng := New(s, nil)
	_, ok, err := eng.ValueAtOrdinal(ctx, path, 0)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = eng.ValueAtOrdinal(ctx, path, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNilReaderDegradesToOverlayOnly(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	const path = `HKLM\SOFTWARE\acme`
	require.NoError(t, s.PutKey(ctx, path))

	eng := New(s, nil)
	exists, err := eng.Exists(ctx, path)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = eng.Exists(ctx, path+`\NeverSeen`)
	require.NoError(t, err)
	require.False(t, exists)
}
