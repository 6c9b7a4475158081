package scan

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// DevIno uniquely identifies an inode within the filesystems visible to
// this process. Two paths with equal DevIno are the same on-disk file.
type DevIno struct {
	Dev uint64
	Ino uint64
}

// FileEntry describes one regular file found during traversal.
type FileEntry struct {
	Path    string
	Size    int64
	DevIno  DevIno
	Nlink   uint64
	ModTime time.Time
}

// StatEntry lstats path and returns its FileEntry. It fails if the path
// is not a regular file, so callers can use it both for scanning and for
// re-verifying a path before mutating it.
func StatEntry(path string) (FileEntry, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return FileEntry{}, fmt.Errorf("lstat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return FileEntry{}, fmt.Errorf("%s: not a regular file", path)
	}
	stat := info.Sys().(*syscall.Stat_t)
	return FileEntry{
		Path:    path,
		Size:    info.Size(),
		DevIno:  devInoFromStat(stat),
		Nlink:   nlinkFromStat(stat),
		ModTime: info.ModTime(),
	}, nil
}
