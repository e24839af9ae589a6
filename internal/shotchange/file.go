package shotchange

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Extension of shot change list files, named after the video hash.
const Extension = ".scenechanges"

func FileName(hash string) string {
	return hash + Extension
}

// Read parses one timestamp in seconds per line. Blank lines and a
// leading byte order mark are ignored.
func Read(r io.Reader) ([]float64, error) {
	var times []float64
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse shot change at line %d: %w", lineNo, err)
		}
		times = append(times, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shot changes: %w", err)
	}
	return times, nil
}

func ReadFile(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

func Write(w io.Writer, times []float64) error {
	bw := bufio.NewWriter(w)
	for _, t := range times {
		if _, err := bw.WriteString(strconv.FormatFloat(t, 'f', -1, 64) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile replaces path through a temporary file in the same directory.
func WriteFile(path string, times []float64) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := Write(&buf, times); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write shot changes: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write shot changes: %w", err)
	}
	return nil
}
