// Package link replaces duplicate paths with hardlinks to a canonical
// file, safely under partial failure and interruption.
package link

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hldup/hldup/internal/dedupe"
	"github.com/hldup/hldup/internal/logging"
	"github.com/hldup/hldup/internal/scan"
)

// Outcome classifies the result of one path's replacement.
type Outcome int

const (
	Linked Outcome = iota
	SkippedStale
	SkippedCrossDevice
	Failed
)

var outcomeNames = [...]string{
	Linked:             "linked",
	SkippedStale:       "stale-target",
	SkippedCrossDevice: "cross-device",
	Failed:             "failed",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// PathResult is the outcome for one target path in a group.
type PathResult struct {
	Path    string
	Outcome Outcome
	Err     error
}

// Linker executes accepted duplicate groups as hardlink operations.
// Paths within a group are processed sequentially: members may share a
// directory, and serializing avoids transient temporary-name collisions.
type Linker struct{}

// LinkGroup replaces every duplicate path in the group with a hardlink
// to the canonical file. A failure on one path never aborts the rest.
func (l *Linker) LinkGroup(g *dedupe.Group) []PathResult {
	log := logging.GetLogger("link")
	canonical := g.Canonical.Path()

	var results []PathResult
	for _, dup := range g.Dups {
		for _, target := range dup.Paths {
			res := l.linkPath(canonical, target, g)
			switch res.Outcome {
			case Linked:
				log.Info().Str("canonical", canonical).Str("target", target).Msg("linked")
			case SkippedCrossDevice:
				log.Warn().Str("canonical", canonical).Str("target", target).
					Msg("skipping cross-device pair")
			default:
				log.Warn().Err(res.Err).Str("target", target).
					Stringer("outcome", res.Outcome).Msg("could not link")
			}
			results = append(results, res)
		}
	}
	return results
}

func (l *Linker) linkPath(canonical, target string, g *dedupe.Group) PathResult {
	// Re-verify both ends immediately before acting: the tree may have
	// been mutated since the scan. Best-effort safety net, not a guard
	// against a hostile concurrent mutator.
	canonEntry, err := scan.StatEntry(canonical)
	if err != nil {
		return PathResult{Path: target, Outcome: SkippedStale,
			Err: fmt.Errorf("canonical changed since scan: %w", err)}
	}
	if canonEntry.DevIno != g.Canonical.DevIno || canonEntry.Size != g.Size {
		return PathResult{Path: target, Outcome: SkippedStale,
			Err: fmt.Errorf("canonical %s changed identity since scan", canonical)}
	}

	entry, err := scan.StatEntry(target)
	if err != nil {
		return PathResult{Path: target, Outcome: SkippedStale,
			Err: fmt.Errorf("target changed since scan: %w", err)}
	}
	if entry.Size != g.Size {
		return PathResult{Path: target, Outcome: SkippedStale,
			Err: fmt.Errorf("target %s changed size since scan", target)}
	}
	if !sameDevIno(entry.DevIno, g, target) {
		return PathResult{Path: target, Outcome: SkippedStale,
			Err: fmt.Errorf("target %s changed identity since scan", target)}
	}

	// Hardlinks cannot span devices. Never retried.
	if entry.DevIno.Dev != canonEntry.DevIno.Dev {
		return PathResult{Path: target, Outcome: SkippedCrossDevice,
			Err: fmt.Errorf("%s and %s are on different devices", canonical, target)}
	}

	if err := replacePath(canonical, target); err != nil {
		return PathResult{Path: target, Outcome: Failed, Err: err}
	}
	return PathResult{Path: target, Outcome: Linked}
}

// sameDevIno checks the restatted identity against the scan-time record
// for the duplicate member owning this path.
func sameDevIno(got scan.DevIno, g *dedupe.Group, target string) bool {
	for _, dup := range g.Dups {
		for _, path := range dup.Paths {
			if path == target {
				return got == dup.DevIno
			}
		}
	}
	return false
}

// replacePath links canonical under a temporary name in target's
// directory, then renames it over target. At no instant does the target
// path stop existing or point at partial content: interrupted before the
// rename, the original target is untouched; after it, the target already
// carries the canonical content.
func replacePath(canonical, target string) error {
	dir := filepath.Dir(target)
	base := filepath.Base(target)
	tmpName := fmt.Sprintf(".%s.%s.hldup-tmp", base, uuid.New().String()[:8])
	tmpPath := filepath.Join(dir, tmpName)

	registerTmp(tmpPath)
	defer func() {
		deregisterTmp(tmpPath)
		_ = os.Remove(tmpPath) // no-op if the rename succeeded
	}()

	if err := os.Link(canonical, tmpPath); err != nil {
		return fmt.Errorf("link %s -> %s: %w", tmpPath, canonical, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpPath, target, err)
	}
	return nil
}
