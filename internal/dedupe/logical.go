package dedupe

import (
	"sort"
	"sync"

	"github.com/hldup/hldup/internal/scan"
)

// LogicalFile is one on-disk file — a unique (device, inode) — together
// with every path it was seen under during the scan. Paths already
// hardlinked together collapse into a single LogicalFile, so they can
// never be rediscovered as a duplicate pair.
type LogicalFile struct {
	Paths  []string // sorted; Paths[0] is the representative path
	Size   int64
	DevIno scan.DevIno
	Nlink  uint64
}

// Path returns the representative (lowest-sorted) path.
func (f *LogicalFile) Path() string {
	return f.Paths[0]
}

// Collapser folds FileEntry records sharing (device, inode) into
// LogicalFiles. It is the single shared mutable structure of the
// collapsing phase; insertions are serialized by a mutex.
type Collapser struct {
	mu    sync.Mutex
	files map[scan.DevIno]*LogicalFile
}

// NewCollapser returns an empty Collapser.
func NewCollapser() *Collapser {
	return &Collapser{files: make(map[scan.DevIno]*LogicalFile)}
}

// Add folds an entry into its logical file. A second entry with an
// already-seen (device, inode) only records the extra path; it triggers
// no further comparison work.
func (c *Collapser) Add(e scan.FileEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if lf, ok := c.files[e.DevIno]; ok {
		lf.Paths = append(lf.Paths, e.Path)
		return
	}
	c.files[e.DevIno] = &LogicalFile{
		Paths:  []string{e.Path},
		Size:   e.Size,
		DevIno: e.DevIno,
		Nlink:  e.Nlink,
	}
}

// Files returns the collapsed logical files with their path lists
// sorted, so representative selection is deterministic across runs.
func (c *Collapser) Files() []*LogicalFile {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*LogicalFile, 0, len(c.files))
	for _, lf := range c.files {
		sort.Strings(lf.Paths)
		out = append(out, lf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })
	return out
}
