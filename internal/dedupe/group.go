package dedupe

import (
	"context"
	"runtime"
	"sort"

	"github.com/hldup/hldup/internal/logging"
)

// Group is a set of logical files proven to share identical size and
// content. Canonical is the member with the lowest-sorted path; Dups are
// the remaining members, ordered by path.
type Group struct {
	Canonical *LogicalFile
	Dups      []*LogicalFile
	Size      int64
	Digest    string
}

// Reclaimable returns the bytes freed if every duplicate member is
// replaced with a link to the canonical file.
func (g *Group) Reclaimable() int64 {
	return int64(len(g.Dups)) * g.Size
}

// HashFailure records a file dropped from duplicate detection because
// its content could not be read.
type HashFailure struct {
	Path string
	Err  error
}

// Comparator finds duplicate groups among logical files using staged
// hashing: a prefix digest eliminates same-size files that differ early,
// and a full-content digest proves the survivors equal. A 256-bit digest
// collision is treated as content equality.
type Comparator struct {
	Workers int
}

// NewComparator returns a comparator with a hash pool of the given size
// (default: min(NumCPU*2, 32)).
func NewComparator(workers int) *Comparator {
	if workers <= 0 {
		workers = min(runtime.NumCPU()*2, 32)
	}
	return &Comparator{Workers: workers}
}

// Groups partitions the files into duplicate groups. The result is
// sorted by canonical path, so repeated runs over an unchanged tree
// produce identical output. Files whose content could not be read are
// returned as failures and excluded from grouping.
func (c *Comparator) Groups(ctx context.Context, files []*LogicalFile) ([]Group, []HashFailure) {
	log := logging.GetLogger("dedupe")
	var failures []HashFailure
	onErr := func(path string, err error) {
		log.Warn().Err(err).Str("path", path).Msg("dropping unreadable file from comparison")
		failures = append(failures, HashFailure{Path: path, Err: err})
	}

	var groups []Group
	for size, bucket := range BucketBySize(files) {
		if size == 0 {
			// All zero-byte files are identical; no bytes to read.
			groups = append(groups, buildGroups(bucket, 0, "")...)
			continue
		}

		log.Debug().Int64("size", size).Int("members", len(bucket)).Msg("comparing size bucket")

		// Partial stage: hash a fixed prefix, keep only colliding files.
		prefixDigests := hashAll(ctx, bucket, c.Workers, HashPrefix, onErr)
		survivors := collide(bucket, prefixDigests)
		if len(survivors) == 0 {
			continue
		}

		// Full stage. A file no longer than the prefix is already fully
		// hashed; its prefix digest is its content digest.
		if size <= PrefixLen {
			for digest, members := range survivors {
				groups = append(groups, buildGroups(members, size, digest)...)
			}
			continue
		}
		for _, members := range survivors {
			fullDigests := hashAll(ctx, members, c.Workers, HashFull, onErr)
			for digest, identical := range collide(members, fullDigests) {
				groups = append(groups, buildGroups(identical, size, digest)...)
			}
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Canonical.Path() < groups[j].Canonical.Path()
	})
	return groups, failures
}

// collide re-buckets files by digest and drops singleton buckets, which
// cannot be duplicates of anything else in the size bucket.
func collide(files []*LogicalFile, digests map[*LogicalFile]string) map[string][]*LogicalFile {
	buckets := make(map[string][]*LogicalFile)
	for _, f := range files {
		digest, ok := digests[f]
		if !ok {
			continue // hash failed, file dropped
		}
		buckets[digest] = append(buckets[digest], f)
	}
	for digest, members := range buckets {
		if len(members) < 2 {
			delete(buckets, digest)
		}
	}
	return buckets
}

// buildGroups turns a set of content-identical files into at most one
// Group, choosing the lexicographically smallest path as canonical.
func buildGroups(members []*LogicalFile, size int64, digest string) []Group {
	if len(members) < 2 {
		return nil
	}
	sorted := make([]*LogicalFile, len(members))
	copy(sorted, members)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path() < sorted[j].Path() })

	return []Group{{
		Canonical: sorted[0],
		Dups:      sorted[1:],
		Size:      size,
		Digest:    digest,
	}}
}
