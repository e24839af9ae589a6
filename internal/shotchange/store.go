package shotchange

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/mgpai22/subqc/internal/logging"
)

// ErrNotFound is returned when no list exists for a hash and there is
// nothing to generate one with.
var ErrNotFound = errors.New("shot changes not found")

const lockRetryDelay = 250 * time.Millisecond

// GenerateFunc produces the shot change list of a video.
type GenerateFunc func(ctx context.Context) ([]float64, error)

// Store looks shot change lists up in a directory of .scenechanges files,
// backed by an optional SQLite cache.
type Store struct {
	Dir    string
	Cache  *Cache
	Logger *logging.Logger
}

func (s *Store) Path(hash string) string {
	return filepath.Join(s.Dir, FileName(hash))
}

// Load returns the stored list for hash, preferring the cache.
func (s *Store) Load(ctx context.Context, hash string) ([]float64, error) {
	logger := logging.OrNop(s.Logger)

	if s.Cache != nil {
		times, ok, err := s.Cache.Get(ctx, hash)
		if err != nil {
			logger.Warnw("Shot change cache lookup failed", "hash", hash, "error", err)
		} else if ok {
			logger.Debugw("Shot changes loaded from cache", "hash", hash, "count", len(times))
			return times, nil
		}
	}

	if s.Dir == "" {
		return nil, ErrNotFound
	}
	times, err := ReadFile(s.Path(hash))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	logger.Debugw("Shot changes loaded from file", "path", s.Path(hash), "count", len(times))

	if s.Cache != nil {
		if err := s.Cache.Put(ctx, hash, s.Path(hash), times); err != nil {
			logger.Warnw("Failed to cache shot changes", "hash", hash, "error", err)
		}
	}
	return times, nil
}

// Save writes the list to the directory and the cache.
func (s *Store) Save(ctx context.Context, hash, source string, times []float64) error {
	if s.Dir != "" {
		if err := WriteFile(s.Path(hash), times); err != nil {
			return err
		}
	}
	if s.Cache != nil {
		if err := s.Cache.Put(ctx, hash, source, times); err != nil {
			return fmt.Errorf("failed to cache shot changes: %w", err)
		}
	}
	return nil
}

// LoadOrGenerate returns the stored list or runs generate and stores its
// result. Generation holds a lock file next to the list so concurrent
// runs over the same video wait for one another instead of running ffmpeg
// twice.
func (s *Store) LoadOrGenerate(ctx context.Context, hash, source string, generate GenerateFunc) ([]float64, error) {
	times, err := s.Load(ctx, hash)
	if err == nil || !errors.Is(err, ErrNotFound) || generate == nil {
		return times, err
	}

	dir := s.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create shot change directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, FileName(hash)+".lock"))
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock shot changes: %w", err)
	}
	if !ok {
		return nil, errors.New("shot change generation already in progress")
	}
	defer func() { _ = lock.Unlock() }()

	// another process may have finished while this one waited
	if times, err := s.Load(ctx, hash); err == nil {
		return times, nil
	}

	logger := logging.OrNop(s.Logger)
	logger.Infow("Detecting shot changes", "source", source)
	start := time.Now()

	times, err = generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to detect shot changes: %w", err)
	}
	logger.Infow("Shot changes detected", "count", len(times), "duration", time.Since(start))

	if err := s.Save(ctx, hash, source, times); err != nil {
		return nil, err
	}
	return times, nil
}
