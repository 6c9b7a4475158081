package dedupe

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hldup/hldup/internal/scan"
)

func entryFor(t *testing.T, path string) scan.FileEntry {
	t.Helper()
	entry, err := scan.StatEntry(path)
	require.NoError(t, err)
	return entry
}

func TestCollapser_DistinctFiles(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("aaa"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("bbb"), 0644))

	c := NewCollapser()
	c.Add(entryFor(t, a))
	c.Add(entryFor(t, b))

	files := c.Files()
	require.Len(t, files, 2)
	assert.Equal(t, a, files[0].Path())
	assert.Equal(t, b, files[1].Path())
}

func TestCollapser_FoldsHardlinkedPaths(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("shared"), 0644))
	require.NoError(t, os.Link(a, b))

	c := NewCollapser()
	c.Add(entryFor(t, b))
	c.Add(entryFor(t, a))

	files := c.Files()
	require.Len(t, files, 1)

	lf := files[0]
	assert.Equal(t, []string{a, b}, lf.Paths)
	assert.Equal(t, a, lf.Path())
	assert.Equal(t, uint64(2), lf.Nlink)
}

func TestCollapser_RepresentativeIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	z := filepath.Join(dir, "z")
	a := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(z, []byte("x"), 0644))
	require.NoError(t, os.Link(z, a))

	// Insertion order must not affect the representative path.
	c := NewCollapser()
	c.Add(entryFor(t, z))
	c.Add(entryFor(t, a))

	files := c.Files()
	require.Len(t, files, 1)
	assert.Equal(t, a, files[0].Path())
}

func TestBucketBySize(t *testing.T) {
	mk := func(path string, size int64) *LogicalFile {
		return &LogicalFile{Paths: []string{path}, Size: size}
	}

	buckets := BucketBySize([]*LogicalFile{
		mk("/a", 5), mk("/b", 5), mk("/c", 7),
		mk("/d", 0), mk("/e", 0), mk("/f", 0),
	})

	require.Len(t, buckets, 2)
	assert.Len(t, buckets[5], 2)
	assert.Len(t, buckets[0], 3)
	assert.NotContains(t, buckets, int64(7))
}
