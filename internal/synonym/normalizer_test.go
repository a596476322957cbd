package synonym

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDirArrowMapping(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "roads.txt", "st, street, strasse => street, st\n")

	n := New()
	require.NoError(t, n.LoadDir(dir))

	assert.Equal(t, "Main street", n.Normalize("Main St"))
	assert.Equal(t, "Main street", n.Normalize("Main Strasse"))
}

func TestLoadDirEquivalentList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "abbr.txt", "saint, st, ste\n")

	n := New()
	require.NoError(t, n.LoadDir(dir))

	assert.Equal(t, "saint Moritz", n.Normalize("St Moritz"))
}

func TestLoadDirSkipsCustomNameAndPunctuationDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "custom_name.txt", "a, b\n")
	writeFile(t, dir, "punctuation/marks.txt", "c, d\n")
	writeFile(t, dir, "normal.txt", "e, f\n")

	n := New()
	require.NoError(t, n.LoadDir(dir))

	assert.Equal(t, 1, n.Len())
	assert.Equal(t, "e", n.Normalize("f"))
}

func TestLoadDirStripsCommentsAndBlankLines(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "c.txt", "# a comment\n\n   \na, b # trailing comment\n")

	n := New()
	require.NoError(t, n.LoadDir(dir))
	assert.Equal(t, "a", n.Normalize("b"))
}

func TestNormalizeIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "c.txt", "street, st\n")

	n := New()
	require.NoError(t, n.LoadDir(dir))

	once := n.Normalize("Main St.")
	twice := n.Normalize(once)
	assert.Equal(t, once, twice)
}

func TestLoadDirMissingIsNotAnError(t *testing.T) {
	n := New()
	assert.NoError(t, n.LoadDir(filepath.Join(t.TempDir(), "missing")))
}
