package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mgpai22/subqc/internal/logging"
)

// settings for a batch run
type Options struct {
	// number of files processed at once, GOMAXPROCS when zero
	Concurrency int
	// stop at the first error instead of recording it on the outcome
	FailFast bool
	Logger   *logging.Logger
}

// result of one file
type Outcome[T any] struct {
	Index int
	Path  string
	Value T
	Err   error
}

// Run is a finished batch, outcomes in input order.
type Run[T any] struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Outcomes []Outcome[T]
}

// Failed counts outcomes that carry an error.
func (r *Run[T]) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Process calls fn for every path on a bounded pool of goroutines. Without
// FailFast every path is attempted and errors stay on their outcome; with
// it the first error stops new work and is returned. Cancelling ctx stops
// new work as well.
func Process[T any](
	ctx context.Context,
	paths []string,
	opts Options,
	fn func(ctx context.Context, path string) (T, error),
) (*Run[T], error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	run := &Run[T]{
		ID:      uuid.NewString(),
		Started: time.Now(),
	}
	logger := logging.OrNop(opts.Logger).With("run", run.ID)
	logger.Infow("Starting batch", "files", len(paths), "concurrency", concurrency)

	var (
		mu       sync.Mutex
		outcomes []Outcome[T]
		firstErr error
		wg       sync.WaitGroup
	)

	// Create a semaphore to limit concurrency
	sem := make(chan struct{}, concurrency)

	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}

		mu.Lock()
		hasErr := firstErr != nil
		mu.Unlock()
		if hasErr {
			break
		}

		wg.Add(1)
		go func(index int, path string) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			mu.Lock()
			hasErr := firstErr != nil
			mu.Unlock()
			if hasErr {
				return
			}

			start := time.Now()
			value, err := fn(ctx, path)
			if err != nil {
				logger.Warnw("File failed", "path", path, "error", err)
			} else {
				logger.Debugw("File done", "path", path, "duration", time.Since(start))
			}

			mu.Lock()
			defer mu.Unlock()

			if err != nil && opts.FailFast && firstErr == nil {
				firstErr = fmt.Errorf("failed to process %s: %w", path, err)
			}
			outcomes = append(outcomes, Outcome[T]{
				Index: index,
				Path:  path,
				Value: value,
				Err:   err,
			})
		}(i, path)
	}

	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Index < outcomes[j].Index
	})
	run.Outcomes = outcomes
	run.Duration = time.Since(run.Started)

	if firstErr != nil {
		return run, firstErr
	}
	if err := ctx.Err(); err != nil {
		return run, err
	}

	logger.Infow("Batch finished", "files", len(outcomes), "failed", run.Failed(), "duration", run.Duration)
	return run, nil
}

// FindSubtitles lists the .vtt and .srt files directly inside dir, sorted
// by name. ext restricts the listing to one extension, with or without the
// leading dot.
func FindSubtitles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fileExt := strings.ToLower(strings.TrimPrefix(filepath.Ext(e.Name()), "."))
		if fileExt != "vtt" && fileExt != "srt" {
			continue
		}
		if ext != "" && fileExt != ext {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
