package link

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hldup/hldup/internal/dedupe"
	"github.com/hldup/hldup/internal/scan"
)

func logical(t *testing.T, path string) *dedupe.LogicalFile {
	t.Helper()
	entry, err := scan.StatEntry(path)
	require.NoError(t, err)
	return &dedupe.LogicalFile{
		Paths:  []string{path},
		Size:   entry.Size,
		DevIno: entry.DevIno,
		Nlink:  entry.Nlink,
	}
}

func groupOf(t *testing.T, canonical string, dups ...string) *dedupe.Group {
	t.Helper()
	g := &dedupe.Group{Canonical: logical(t, canonical)}
	g.Size = g.Canonical.Size
	for _, d := range dups {
		g.Dups = append(g.Dups, logical(t, d))
	}
	return g
}

func sameInode(t *testing.T, a, b string) bool {
	t.Helper()
	ea, err := scan.StatEntry(a)
	require.NoError(t, err)
	eb, err := scan.StatEntry(b)
	require.NoError(t, err)
	return ea.DevIno == eb.DevIno
}

func TestLinker_LinksDuplicates(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("hello"), 0644))
	require.False(t, sameInode(t, a, b))

	linker := &Linker{}
	results := linker.LinkGroup(groupOf(t, a, b))

	require.Len(t, results, 1)
	assert.Equal(t, Linked, results[0].Outcome)
	assert.True(t, sameInode(t, a, b))

	// Content is still visible through both paths.
	data, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestLinker_LinksAllPathsOfAMember(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b1 := filepath.Join(dir, "b1")
	b2 := filepath.Join(dir, "b2")
	require.NoError(t, os.WriteFile(a, []byte("xyz"), 0644))
	require.NoError(t, os.WriteFile(b1, []byte("xyz"), 0644))
	require.NoError(t, os.Link(b1, b2))

	g := groupOf(t, a)
	member := logical(t, b1)
	member.Paths = []string{b1, b2}
	g.Dups = append(g.Dups, member)

	linker := &Linker{}
	results := linker.LinkGroup(g)

	require.Len(t, results, 2)
	for _, res := range results {
		assert.Equal(t, Linked, res.Outcome, res.Path)
	}
	assert.True(t, sameInode(t, a, b1))
	assert.True(t, sameInode(t, a, b2))
}

func TestLinker_StaleTargetSkipped(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("hello"), 0644))

	g := groupOf(t, a, b)

	// Mutate the target between "scan" and linking.
	require.NoError(t, os.WriteFile(b, []byte("hello world"), 0644))

	linker := &Linker{}
	results := linker.LinkGroup(g)

	require.Len(t, results, 1)
	assert.Equal(t, SkippedStale, results[0].Outcome)
	assert.Error(t, results[0].Err)
	assert.False(t, sameInode(t, a, b))
}

func TestLinker_StaleTargetIdentityChangeSkipped(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("hello"), 0644))

	c := filepath.Join(dir, "c")
	require.NoError(t, os.WriteFile(c, []byte("hello"), 0644))

	g := groupOf(t, a, b)

	// Same size, different inode: rename another file over the target.
	require.NoError(t, os.Rename(c, b))

	linker := &Linker{}
	results := linker.LinkGroup(g)

	require.Len(t, results, 1)
	assert.Equal(t, SkippedStale, results[0].Outcome)
}

func TestLinker_StaleCanonicalSkipsGroup(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("hello"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("hello"), 0644))

	g := groupOf(t, a, b)
	require.NoError(t, os.Remove(a))

	linker := &Linker{}
	results := linker.LinkGroup(g)

	require.Len(t, results, 1)
	assert.Equal(t, SkippedStale, results[0].Outcome)
	_, err := os.Stat(b)
	assert.NoError(t, err, "target must be untouched")
}

func TestLinker_CrossDeviceSkipped(t *testing.T) {
	shm, err := os.MkdirTemp("/dev/shm", "hldup-test-")
	if err != nil {
		t.Skipf("no tmpfs available: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(shm) })

	a := filepath.Join(t.TempDir(), "a")
	b := filepath.Join(shm, "b")
	require.NoError(t, os.WriteFile(a, []byte("same"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("same"), 0644))
	if logical(t, a).DevIno.Dev == logical(t, b).DevIno.Dev {
		t.Skip("temp dirs share a device")
	}

	linker := &Linker{}
	results := linker.LinkGroup(groupOf(t, a, b))

	require.Len(t, results, 1)
	assert.Equal(t, SkippedCrossDevice, results[0].Outcome)
	assert.Error(t, results[0].Err)
	assert.False(t, sameInode(t, a, b), "target must be untouched")

	data, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, []byte("same"), data)
}

func TestLinker_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("data"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("data"), 0644))

	linker := &Linker{}
	linker.LinkGroup(groupOf(t, a, b))
	CleanupTmpLinks()

	dirents, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, dirents, 2)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "linked", Linked.String())
	assert.Equal(t, "stale-target", SkippedStale.String())
	assert.Equal(t, "cross-device", SkippedCrossDevice.String())
	assert.Equal(t, "failed", Failed.String())
}
