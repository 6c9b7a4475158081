package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// FailureKind categorizes a recorded failure for the final summary.
type FailureKind int

const (
	FailScan FailureKind = iota
	FailHash
	FailStaleTarget
	FailCrossDevice
	FailLink
)

var kindNames = [...]string{
	FailScan:        "scan",
	FailHash:        "hash",
	FailStaleTarget: "stale-target",
	FailCrossDevice: "cross-device",
	FailLink:        "link",
}

func (k FailureKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Failure is one path that could not be processed, with its cause.
type Failure struct {
	Path string
	Kind FailureKind
	Err  error
}

// Collector tracks run statistics using lock-free atomic counters, plus a
// mutex-guarded failure list. Safe for concurrent use by scanner and
// hash workers.
type Collector struct {
	filesScanned   atomic.Int64
	logicalFiles   atomic.Int64
	groupsFound    atomic.Int64
	pathsLinked    atomic.Int64
	pathsSkipped   atomic.Int64
	bytesReclaimed atomic.Int64
	startTime      time.Time

	mu       sync.Mutex
	failures []Failure
}

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

func (c *Collector) AddFilesScanned(n int64)   { c.filesScanned.Add(n) }
func (c *Collector) AddLogicalFiles(n int64)   { c.logicalFiles.Add(n) }
func (c *Collector) AddGroupsFound(n int64)    { c.groupsFound.Add(n) }
func (c *Collector) AddPathsLinked(n int64)    { c.pathsLinked.Add(n) }
func (c *Collector) AddPathsSkipped(n int64)   { c.pathsSkipped.Add(n) }
func (c *Collector) AddBytesReclaimed(n int64) { c.bytesReclaimed.Add(n) }

// RecordFailure appends a failure for the final summary.
func (c *Collector) RecordFailure(path string, kind FailureKind, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, Failure{Path: path, Kind: kind, Err: err})
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesScanned   int64
	LogicalFiles   int64
	GroupsFound    int64
	PathsLinked    int64
	PathsSkipped   int64
	BytesReclaimed int64
	Failures       []Failure
	Elapsed        time.Duration
}

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	failures := make([]Failure, len(c.failures))
	copy(failures, c.failures)
	c.mu.Unlock()

	return Snapshot{
		FilesScanned:   c.filesScanned.Load(),
		LogicalFiles:   c.logicalFiles.Load(),
		GroupsFound:    c.groupsFound.Load(),
		PathsLinked:    c.pathsLinked.Load(),
		PathsSkipped:   c.pathsSkipped.Load(),
		BytesReclaimed: c.bytesReclaimed.Load(),
		Failures:       failures,
		Elapsed:        time.Since(c.startTime),
	}
}

// Summary renders the end-of-run report.
func (s Snapshot) Summary() string {
	out := fmt.Sprintf(
		"scanned %d files (%d unique), %d duplicate groups, %d paths linked, %s reclaimed in %s",
		s.FilesScanned, s.LogicalFiles, s.GroupsFound, s.PathsLinked,
		FormatBytes(s.BytesReclaimed), s.Elapsed.Round(time.Millisecond),
	)
	for _, f := range s.Failures {
		if f.Path == "" {
			out += fmt.Sprintf("\n  %s: %v", f.Kind, f.Err)
			continue
		}
		out += fmt.Sprintf("\n  %s: %s: %v", f.Kind, f.Path, f.Err)
	}
	return out
}

// FormatBytes renders a byte count in human-readable IEC units.
func FormatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
