package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/hldup/hldup/internal/logging"
)

// Config controls scanner behavior.
type Config struct {
	Roots   []string
	Workers int
	MinSize int64 // regular files smaller than this are not emitted
}

// Scanner traverses one or more directory trees in parallel and emits a
// FileEntry per regular file. Symlinks are never followed; symlinks and
// special files (devices, sockets, pipes) produce no entries. A directory
// that cannot be read is reported on the error channel and its subtree is
// abandoned; scanning continues elsewhere.
type Scanner struct {
	cfg     Config
	entries chan FileEntry
	errs    chan error
}

// ValidateRoots checks every root before any traversal starts. A root
// that does not exist or is not a directory is a fatal condition.
func ValidateRoots(roots []string) error {
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("root %s: %w", root, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("root %s: not a directory", root)
		}
	}
	return nil
}

// NewScanner creates a scanner with the given config.
func NewScanner(cfg Config) *Scanner {
	if cfg.Workers <= 0 {
		cfg.Workers = min(runtime.NumCPU(), 8)
	}
	return &Scanner{
		cfg:     cfg,
		entries: make(chan FileEntry, cfg.Workers*4),
		errs:    make(chan error, cfg.Workers*4),
	}
}

// Scan starts the scanner and returns channels for entries and errors.
// The caller must consume from both channels until they close.
func (s *Scanner) Scan(ctx context.Context) (<-chan FileEntry, <-chan error) {
	go func() {
		defer close(s.entries)
		defer close(s.errs)
		s.scanTrees(ctx)
	}()

	return s.entries, s.errs
}

func (s *Scanner) scanTrees(ctx context.Context) {
	workQueue := make(chan string)
	discovered := make(chan string)
	var outstanding sync.WaitGroup // directories pending but not yet processed

	// Feeder: an unbounded pending list between the workers and the
	// work queue. Workers hand discovered subdirectories to the feeder,
	// which is always ready to receive, so a worker can never block
	// mid-directory on a full queue with no worker left to drain it.
	outstanding.Add(len(s.cfg.Roots))
	go func() {
		pending := append([]string(nil), s.cfg.Roots...)
		in := discovered
		for {
			if len(pending) == 0 {
				dir, ok := <-in
				if !ok {
					close(workQueue)
					return
				}
				pending = append(pending, dir)
				continue
			}
			next := pending[len(pending)-1]
			select {
			case dir, ok := <-in:
				if !ok {
					in = nil // keep handing out the remaining pending dirs
					continue
				}
				pending = append(pending, dir)
			case workQueue <- next:
				pending = pending[:len(pending)-1]
			}
		}
	}()

	var workerWg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			for dirPath := range workQueue {
				s.scanDir(ctx, dirPath, discovered, &outstanding)
				outstanding.Done()
			}
		}()
	}

	// Once every pending directory has been processed no new discovery
	// can arrive; closing the channel lets the feeder close the queue
	// so workers exit their range loop.
	outstanding.Wait()
	close(discovered)
	workerWg.Wait()
}

func (s *Scanner) scanDir(ctx context.Context, dirPath string, discovered chan<- string, outstanding *sync.WaitGroup) {
	log := logging.GetLogger("scan")

	dirents, err := os.ReadDir(dirPath)
	if err != nil {
		log.Warn().Err(err).Str("dir", dirPath).Msg("skipping unreadable directory")
		s.errs <- fmt.Errorf("readdir %s: %w", dirPath, err)
		return
	}

	for _, dirent := range dirents {
		select {
		case <-ctx.Done():
			return
		default:
		}

		entryPath := filepath.Join(dirPath, dirent.Name())
		if err := s.processEntry(ctx, entryPath, discovered, outstanding); err != nil {
			s.errs <- err
		}
	}
}

func (s *Scanner) processEntry(ctx context.Context, path string, discovered chan<- string, outstanding *sync.WaitGroup) error {
	log := logging.GetLogger("scan")

	info, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("lstat %s: %w", path, err)
	}

	mode := info.Mode()
	switch {
	case mode.IsDir():
		outstanding.Add(1)
		select {
		case discovered <- path:
		case <-ctx.Done():
			outstanding.Done()
			return ctx.Err()
		}
		return nil

	case mode.IsRegular():
		if info.Size() < s.cfg.MinSize {
			return nil
		}
		entry, err := StatEntry(path)
		if err != nil {
			return err
		}
		log.Trace().
			Str("path", path).
			Int64("size", entry.Size).
			Uint64("ino", entry.DevIno.Ino).
			Msg("found file")
		s.entries <- entry
		return nil

	default:
		// Symlinks and special files are never candidates.
		return nil
	}
}
