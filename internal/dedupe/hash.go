package dedupe

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/zeebo/blake3"
)

// PrefixLen is the number of leading bytes hashed in the partial stage.
// Files that differ within the prefix are eliminated after reading this
// much, regardless of total size.
const PrefixLen = 4096

// HashPrefix computes the BLAKE3 digest of at most the first PrefixLen
// bytes of the file, returning the hex-encoded digest. For files of
// PrefixLen bytes or fewer this is a digest of the whole content.
func HashPrefix(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.CopyN(h, f, PrefixLen); err != nil && err != io.EOF {
		return "", fmt.Errorf("hash prefix %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashFull computes the BLAKE3 digest of the entire file content,
// returning the hex-encoded digest.
func HashFull(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	buf := make([]byte, 32*1024)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// hashResult pairs a logical file with its digest or failure.
type hashResult struct {
	file   *LogicalFile
	digest string
	err    error
}

// hashAll runs hashFn over the files on a bounded worker pool and
// returns digests keyed by logical file. Files whose hash failed are
// absent from the map and reported through onErr; they drop out of
// duplicate detection. hashAll returns only once every file has been
// hashed or failed, giving callers the stage barrier they need before
// re-bucketing.
func hashAll(ctx context.Context, files []*LogicalFile, workers int, hashFn func(string) (string, error), onErr func(path string, err error)) map[*LogicalFile]string {
	if workers <= 0 {
		workers = 1
	}

	jobs := make(chan *LogicalFile)
	results := make(chan hashResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range jobs {
				digest, err := hashFn(f.Path())
				results <- hashResult{file: f, digest: digest, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, f := range files {
			select {
			case jobs <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	digests := make(map[*LogicalFile]string, len(files))
	for res := range results {
		if res.err != nil {
			onErr(res.file.Path(), res.err)
			continue
		}
		digests[res.file] = res.digest
	}
	return digests
}
