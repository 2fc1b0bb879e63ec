package files

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func names(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

func TestDiscovery_FindFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.xlsx"), "x")
	touch(t, filepath.Join(dir, "a.CSV"), "x")
	touch(t, filepath.Join(dir, "notes.txt"), "x")
	touch(t, filepath.Join(dir, "~$b.xlsx"), "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.csv"), 0o755))

	d := NewDiscovery([]string{".csv", ".xlsx"})
	files, err := d.FindFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.CSV", "b.xlsx"}, names(files))
	assert.Equal(t, int64(1), files[0].Size)

	_, err = d.FindFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestDiscovery_Expand(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "in")
	require.NoError(t, os.Mkdir(sub, 0o755))
	touch(t, filepath.Join(sub, "one.csv"), "a")
	touch(t, filepath.Join(sub, "two.csv"), "a")
	notes := filepath.Join(dir, "notes.txt")
	touch(t, notes, "hello")

	d := NewDiscovery([]string{".csv"})
	files, err := d.Expand([]string{notes, sub})
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt", "one.csv", "two.csv"}, names(files))

	_, err = d.Expand([]string{filepath.Join(dir, "nope.csv")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestManager_WriteFile(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	input := filepath.Join(in, "a.csv")
	touch(t, input, "x\n1\n")

	m := NewManager(filepath.Join(out, "results"), []string{input}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, m.EnsureDirectory())

	path, err := m.WriteFile("a.csv", []byte("x\n1.0\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "results", "a.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "x\n1.0\n", string(data))

	entries, err := os.ReadDir(filepath.Join(out, "results"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file is gone")
}

func TestManager_RefusesToOverwriteInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "a.csv")
	touch(t, input, "x\n1\n")

	m := NewManager(dir, []string{input}, nil)
	_, err := m.WriteFile("a.csv", []byte("changed"))
	assert.ErrorIs(t, err, ErrWouldOverwriteInput)

	data, err := os.ReadFile(input)
	require.NoError(t, err)
	assert.Equal(t, "x\n1\n", string(data))
}

func TestManager_RefusesToReplaceOwnOutput(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, nil, nil)

	path, err := m.WriteFile("a.csv", []byte("first"))
	require.NoError(t, err)

	_, err = m.WriteFile("a.csv", []byte("second"))
	assert.ErrorIs(t, err, ErrAlreadyWritten)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	_, err = m.WriteFile("b.csv", []byte("other"))
	assert.NoError(t, err)
}

func TestSameFile(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	touch(t, a, "")

	assert.True(t, SameFile(a, filepath.Join(dir, ".", "a")))
	assert.False(t, SameFile(a, filepath.Join(dir, "b")))
}
