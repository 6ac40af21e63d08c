package regfile

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/hklmshim/internal/overlay"
)

func openTestStore(t *testing.T) *overlay.Store {
	t.Helper()
	s, err := overlay.Open(filepath.Join(t.TempDir(), "overlay.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

const sampleReg = `Windows Registry Editor Version 5.00

[HKEY_LOCAL_MACHINE\SOFTWARE\V\App]
@="Example Default"
"Answer"=dword:0000002a

[HKEY_LOCAL_MACHINE\SOFTWARE\V\App\EmptyA]

[HKEY_LOCAL_MACHINE\SOFTWARE\V\App\EmptyB\Child]
`

func TestEmptyKeyRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, Import(ctx, s, []byte(sampleReg)))

	out, err := Export(ctx, s, ExportOptions{})
	require.NoError(t, err)
	text := string(out)

	wantLines := []string{
		`[HKLM\SOFTWARE\V\App]`,
		`@="Example Default"`,
		`"Answer"=dword:0000002a`,
		`[HKLM\SOFTWARE\V\App\EmptyA]`,
		`[HKLM\SOFTWARE\V\App\EmptyB\Child]`,
	}
	for _, want := range wantLines {
		count := strings.Count(text, want)
		require.Equal(t, 1, count, "expected %q exactly once in:\n%s", want, text)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s1 := openTestStore(t)
	s2 := openTestStore(t)

	require.NoError(t, Import(ctx, s1, []byte(sampleReg)))
	require.NoError(t, Import(ctx, s2, []byte(sampleReg)))
	require.NoError(t, Import(ctx, s2, []byte(sampleReg))) // parse+apply twice

	out1, err := Export(ctx, s1, ExportOptions{})
	require.NoError(t, err)
	out2, err := Export(ctx, s2, ExportOptions{})
	require.NoError(t, err)
	require.Equal(t, string(out1), string(out2))
}

func TestImportExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, Import(ctx, s, []byte(sampleReg)))

	exported, err := Export(ctx, s, ExportOptions{})
	require.NoError(t, err)

	s2 := openTestStore(t)
	require.NoError(t, Import(ctx, s2, exported))

	reExported, err := Export(ctx, s2, ExportOptions{})
	require.NoError(t, err)
	require.Equal(t, string(exported), string(reExported))
}

func TestMalformedLinesAreSkippedNotRejected(t *testing.T) {
	data := []byte("Windows Registry Editor Version 5.00\r\n\r\n" +
		"[HKEY_LOCAL_MACHINE\\SOFTWARE\\acme]\r\n" +
		"this is not a valid value line\r\n" +
		"\"Good\"=\"yes\"\r\n")
	ops, err := Parse(data)
	require.NoError(t, err)

	var sawGood bool
	for _, op := range ops {
		if sv, ok := op.(OpSetValue); ok && sv.Name == "Good" {
			sawGood = true
		}
	}
	require.True(t, sawGood)
}

func TestStringEscapesRoundTrip(t *testing.T) {
	data := []byte(`Windows Registry Editor Version 5.00

[HKEY_LOCAL_MACHINE\SOFTWARE\acme]
"Path"="C:\\Program Files\\acme \"app\""
`)
	ops, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	sv, ok := ops[1].(OpSetValue)
	require.True(t, ok)
	require.Equal(t, "Path", sv.Name)
	require.Equal(t, `C:\Program Files\acme "app"`, utf16LEStringToNarrow(sv.Data))
}

func TestDeleteKeyHeaderAndDeleteValueToken(t *testing.T) {
	data := []byte(`Windows Registry Editor Version 5.00

[-HKEY_LOCAL_MACHINE\SOFTWARE\acme]

[HKEY_LOCAL_MACHINE\SOFTWARE\other]
"Gone"=-
`)
	ops, err := Parse(data)
	require.NoError(t, err)
	require.IsType(t, OpDeleteKeyTree{}, ops[0])
	require.Equal(t, `HKLM\SOFTWARE\acme`, ops[0].(OpDeleteKeyTree).Path)

	var sawDeleteValue bool
	for _, op := range ops {
		if dv, ok := op.(OpDeleteValue); ok && dv.Name == "Gone" {
			sawDeleteValue = true
		}
	}
	require.True(t, sawDeleteValue)
}

func TestJSONPatchRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	require.NoError(t, Import(ctx, s, []byte(sampleReg)))

	rows, err := s.ExportAll(ctx)
	require.NoError(t, err)

	ops, err := Parse([]byte(sampleReg))
	require.NoError(t, err)
	_ = rows

	patch, err := EmitJSONPatch(ops)
	require.NoError(t, err)

	parsed, err := ParseJSONPatch(patch)
	require.NoError(t, err)
	require.Len(t, parsed, len(ops))
}
