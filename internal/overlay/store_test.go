package overlay

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hklmshim/internal/regtypes"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.sqlite")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutValueThenListValues(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutValue(ctx, `HKLM\Software\acme`, "WorkflowValue", regtypes.SZ, []byte("hello\x00")))

	vals, err := s.ListValues(ctx, `HKLM\Software\acme`)
	require.NoError(t, err)
	require.Len(t, vals, 1)
	require.Equal(t, "WorkflowValue", vals[0].Name)
	require.False(t, vals[0].IsDeleted)
	require.Equal(t, []byte("hello\x00"), vals[0].Data)
}

func TestPutKeyUntombstonesAncestors(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutValue(ctx, `HKLM\A\B`, "x", regtypes.DWORD, []byte{1, 0, 0, 0}))
	require.NoError(t, s.DeleteKeyTree(ctx, `HKLM\A`))

	deleted, err := s.IsKeyDeleted(ctx, `HKLM\A`)
	require.NoError(t, err)
	require.True(t, deleted)

	deletedChild, err := s.IsKeyDeleted(ctx, `HKLM\A\B`)
	require.NoError(t, err)
	require.True(t, deletedChild)

	v, err := s.GetValue(ctx, `HKLM\A\B`, "x")
	require.NoError(t, err)
	require.NotNil(t, v)
	require.True(t, v.IsDeleted)

	require.NoError(t, s.PutKey(ctx, `HKLM\A\B\C`))

	deleted, err = s.IsKeyDeleted(ctx, `HKLM\A`)
	require.NoError(t, err)
	require.False(t, deleted)
	deletedChild, err = s.IsKeyDeleted(ctx, `HKLM\A\B`)
	require.NoError(t, err)
	require.False(t, deletedChild)

	subs, err := s.ListImmediateSubkeys(ctx, `HKLM\A`)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "B", subs[0].Name)
}

func TestDeleteValueShadowsWithoutTombstoningKey(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutValue(ctx, `HKLM\A`, "v1", regtypes.SZ, []byte("x\x00")))
	require.NoError(t, s.DeleteValue(ctx, `HKLM\A`, "v1"))

	exists, err := s.KeyExistsLocally(ctx, `HKLM\A`)
	require.NoError(t, err)
	require.True(t, exists, "key row should still exist locally after value delete")

	v, err := s.GetValue(ctx, `HKLM\A`, "v1")
	require.NoError(t, err)
	require.NotNil(t, v)
	require.True(t, v.IsDeleted)
}

func TestExportAllIncludesEmptyKeys(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutKey(ctx, `HKLM\SOFTWARE\V\App\EmptyA`))
	require.NoError(t, s.PutValue(ctx, `HKLM\SOFTWARE\V\App`, "", regtypes.SZ, []byte("Example Default\x00")))

	rows, err := s.ExportAll(ctx)
	require.NoError(t, err)

	var sawEmptyA, sawApp bool
	for _, r := range rows {
		if r.KeyPath == `HKLM\SOFTWARE\V\App\EmptyA` && r.KeyOnly {
			sawEmptyA = true
		}
		if r.KeyPath == `HKLM\SOFTWARE\V\App` && r.ValueName == "" {
			sawApp = true
		}
	}
	require.True(t, sawEmptyA, "empty key must round-trip as a key-only row")
	require.True(t, sawApp)
}

func TestGetValueAbsentVsTombstoned(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	v, err := s.GetValue(ctx, `HKLM\Nowhere`, "x")
	require.NoError(t, err)
	require.Nil(t, v, "row with no evidence at all must be absent, not tombstoned")
}

func TestLikeEscapingOnPercentAndUnderscoreSegments(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.PutValue(ctx, `HKLM\A_B\100%`, "v", regtypes.SZ, []byte("x\x00")))
	require.NoError(t, s.PutValue(ctx, `HKLM\AxB\100y`, "v", regtypes.SZ, []byte("y\x00")))

	require.NoError(t, s.DeleteKeyTree(ctx, `HKLM\A_B`))

	deleted, err := s.IsKeyDeleted(ctx, `HKLM\A_B\100%`)
	require.NoError(t, err)
	require.True(t, deleted)

	deletedOther, err := s.IsKeyDeleted(ctx, `HKLM\AxB\100y`)
	require.NoError(t, err)
	require.False(t, deletedOther, "LIKE wildcards in the deleted path must not shadow an unrelated key")
}
