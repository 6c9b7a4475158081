// Package engine wires the scan → collapse → bucket → compare → decide →
// link pipeline and reports the outcome.
package engine

import (
	"context"
	"time"

	"github.com/hldup/hldup/internal/dedupe"
	"github.com/hldup/hldup/internal/event"
	"github.com/hldup/hldup/internal/link"
	"github.com/hldup/hldup/internal/logging"
	"github.com/hldup/hldup/internal/policy"
	"github.com/hldup/hldup/internal/scan"
	"github.com/hldup/hldup/internal/stats"
)

// Config describes one deduplication run.
type Config struct {
	Roots   []string
	Workers int   // hash pool size
	MinSize int64 // smallest file size considered
	Decider policy.Decider
	Stats   *stats.Collector
	Events  chan<- event.Event // optional; never blocks the pipeline
}

// Result is the outcome of a run. Err is set only for fatal conditions
// that prevented any scanning; individual path failures live in Stats.
type Result struct {
	Stats stats.Snapshot
	Err   error
}

// Run executes a deduplication run, blocking until every discovered
// group has received a decision.
func Run(ctx context.Context, cfg Config) Result {
	log := logging.GetLogger("engine")
	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}

	if err := scan.ValidateRoots(cfg.Roots); err != nil {
		return Result{Stats: collector.Snapshot(), Err: err}
	}

	// Scan and collapse. Entries are independent; the collapser's
	// (device, inode) map is the only shared mutable state and
	// serializes its own insertions.
	scanner := scan.NewScanner(scan.Config{
		Roots:   cfg.Roots,
		MinSize: cfg.MinSize,
	})
	entries, scanErrs := scanner.Scan(ctx)

	collapser := dedupe.NewCollapser()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			collector.AddFilesScanned(1)
			collapser.Add(entry)
		}
	}()
	for err := range scanErrs {
		collector.RecordFailure("", stats.FailScan, err)
	}
	<-done

	files := collapser.Files()
	collector.AddLogicalFiles(int64(len(files)))
	log.Info().Int("files", len(files)).Msg("scan complete")
	emit(cfg.Events, event.Event{Type: event.ScanComplete, Size: int64(len(files))})

	// Compare. All hashing for a bucket completes before its groups are
	// finalized; group membership is a function of the full digest set.
	comparator := dedupe.NewComparator(cfg.Workers)
	groups, hashFailures := comparator.Groups(ctx, files)
	for _, hf := range hashFailures {
		collector.RecordFailure(hf.Path, stats.FailHash, hf.Err)
	}
	collector.AddGroupsFound(int64(len(groups)))
	log.Info().Int("groups", len(groups)).Msg("duplicate detection complete")

	// Decide and link, strictly sequentially: the prompt reads one
	// shared input stream and groups must arrive one at a time in
	// canonical order. A "no" never halts the run; every group gets an
	// explicit decision.
	linker := &link.Linker{}
	for i := range groups {
		g := &groups[i]
		emit(cfg.Events, event.Event{
			Type:      event.GroupFound,
			Canonical: g.Canonical.Path(),
			Size:      g.Reclaimable(),
			Members:   len(g.Dups),
		})

		if !cfg.Decider.Decide(g) {
			emit(cfg.Events, event.Event{Type: event.GroupRejected, Canonical: g.Canonical.Path()})
			for _, dup := range g.Dups {
				collector.AddPathsSkipped(int64(len(dup.Paths)))
			}
			continue
		}
		emit(cfg.Events, event.Event{Type: event.GroupAccepted, Canonical: g.Canonical.Path()})

		var linked int64
		for _, res := range linker.LinkGroup(g) {
			switch res.Outcome {
			case link.Linked:
				linked++
				collector.AddPathsLinked(1)
				emit(cfg.Events, event.Event{
					Type:      event.PathLinked,
					Path:      res.Path,
					Canonical: g.Canonical.Path(),
					Size:      g.Size,
				})
			case link.SkippedCrossDevice:
				collector.AddPathsSkipped(1)
				collector.RecordFailure(res.Path, stats.FailCrossDevice, res.Err)
				emit(cfg.Events, event.Event{Type: event.PathSkipped, Path: res.Path, Error: res.Err})
			case link.SkippedStale:
				collector.AddPathsSkipped(1)
				collector.RecordFailure(res.Path, stats.FailStaleTarget, res.Err)
				emit(cfg.Events, event.Event{Type: event.PathSkipped, Path: res.Path, Error: res.Err})
			case link.Failed:
				collector.RecordFailure(res.Path, stats.FailLink, res.Err)
				emit(cfg.Events, event.Event{Type: event.PathFailed, Path: res.Path, Error: res.Err})
			}
		}
		// Each linked path no longer occupies distinct storage.
		collector.AddBytesReclaimed(linked * g.Size)
	}

	link.CleanupTmpLinks()
	emit(cfg.Events, event.Event{Type: event.Done})
	return Result{Stats: collector.Snapshot()}
}

func emit(events chan<- event.Event, ev event.Event) {
	if events == nil {
		return
	}
	ev.Timestamp = time.Now()
	select {
	case events <- ev:
	default:
	}
}
