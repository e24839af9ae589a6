package video

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const hashChunkSize = 64 * 1024

// ErrFileTooSmall is returned for files shorter than two hash chunks.
var ErrFileTooSmall = errors.New("file too small to hash")

// Hash computes the 64-bit OpenSubtitles hash of a file: its size plus
// the sum of the little-endian 64-bit words in the first and last 64 KiB,
// wrapping on overflow, printed as 16 hex digits.
func Hash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", err
	}
	return HashReader(f, fi.Size())
}

// HashReader hashes size bytes available through r.
func HashReader(r io.ReaderAt, size int64) (string, error) {
	if size < 2*hashChunkSize {
		return "", fmt.Errorf("%w: %d bytes", ErrFileTooSmall, size)
	}

	h := uint64(size)
	buf := make([]byte, hashChunkSize)
	for _, offset := range []int64{0, size - hashChunkSize} {
		if _, err := r.ReadAt(buf, offset); err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read file for hashing: %w", err)
		}
		for i := 0; i < hashChunkSize; i += 8 {
			h += binary.LittleEndian.Uint64(buf[i:])
		}
	}
	return fmt.Sprintf("%016x", h), nil
}
