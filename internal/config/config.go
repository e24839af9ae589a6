package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/mgpai22/subqc/internal/ffmpeg"
	"github.com/mgpai22/subqc/internal/fix"
	"github.com/mgpai22/subqc/internal/quality"
)

//go:embed sample_config.toml
var sampleConfig string

// Quality contains the rules run by the checker and their limits.
type Quality struct {
	CPS       bool    `toml:"cps"`
	CPSLimit  float64 `toml:"cps_limit"`
	CPSSpaces bool    `toml:"cps_spaces"`

	CPL      bool `toml:"cpl"`
	CPLLimit int  `toml:"cpl_limit"`

	MaxLines    int     `toml:"max_lines"`
	MinDuration float64 `toml:"min_duration"`
	MaxDuration float64 `toml:"max_duration"`

	TextFitsOneLine bool    `toml:"text_fits_one_line"`
	Ellipses        bool    `toml:"ellipses"`
	OST             bool    `toml:"ost"`
	OSTLine         float64 `toml:"ost_line"`
	Sort            bool    `toml:"sort"`
	AllowedGlyphs   string  `toml:"allowed_glyphs"`
}

// Gaps contains the gap check window and the gap fixes.
type Gaps struct {
	Check bool `toml:"check"`
	// gaps from invalid_min to invalid_max frames are reported
	InvalidMin int `toml:"invalid_min"`
	InvalidMax int `toml:"invalid_max"`

	Fix        bool `toml:"fix"`
	ExtendEnds bool `toml:"extend_ends"`

	MinGaps      bool `toml:"min_gaps"`
	MinGap       int  `toml:"min_gap"`
	MinGapFrames bool `toml:"min_gap_frames"`
}

// ShotChanges contains shot change detection and storage settings.
type ShotChanges struct {
	Check bool `toml:"check"`
	Snap  bool `toml:"snap"`
	// .scenechanges files live here, named by video hash
	Dir       string  `toml:"dir"`
	CachePath string  `toml:"cache_path"`
	Threshold float64 `toml:"threshold"`
	// run ffmpeg when no stored shot changes exist for a video
	Generate bool `toml:"generate"`
}

// Fix contains the text fixes and timing snaps applied by the fix command.
type Fix struct {
	Sort           bool              `toml:"sort"`
	Ellipses       bool              `toml:"ellipses"`
	JoinShortLines bool              `toml:"join_short_lines"`
	SnapToFrames   bool              `toml:"snap_to_frames"`
	Replacements   []fix.Replacement `toml:"replacements"`
}

// Video contains ffmpeg discovery and frame rate settings.
type Video struct {
	FFmpegPath    string `toml:"ffmpeg_path"`
	FFprobePath   string `toml:"ffprobe_path"`
	AllowDownload bool   `toml:"allow_download"`
	// used when no video is found; 0 means probe the video or fall back to 24
	FrameRate float64 `toml:"frame_rate"`
	DropFrame bool    `toml:"drop_frame"`
}

// Batch contains settings for checking whole directories.
type Batch struct {
	Concurrency int  `toml:"concurrency"`
	FailFast    bool `toml:"fail_fast"`
	// file written into the checked directory, empty disables it
	ReportFile string `toml:"report_file"`
}

// Report contains output settings.
type Report struct {
	Format string `toml:"format"`
}

// Config encapsulates all configuration values for subqc.
//
// Configuration sections by subsystem:
//   - Quality: checker rules and limits
//   - Gaps: gap check window and gap fixes
//   - ShotChanges: detection, storage and snapping
//   - Fix: text fixes and frame snapping
//   - Video: ffmpeg binaries and frame rate fallback
//   - Batch: directory checks
//   - Report: output format
type Config struct {
	Quality     Quality     `toml:"quality"`
	Gaps        Gaps        `toml:"gaps"`
	ShotChanges ShotChanges `toml:"shot_changes"`
	Fix         Fix         `toml:"fix"`
	Video       Video       `toml:"video"`
	Batch       Batch       `toml:"batch"`
	Report      Report      `toml:"report"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/subqc/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file
// yields the defaults. The resolved path and whether it existed are
// returned alongside the config.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("subqc.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Sample returns the commented sample configuration.
func Sample() string {
	return sampleConfig
}

// QualityConfig returns the checker settings.
func (c *Config) QualityConfig() quality.Config {
	q := c.Quality
	return quality.Config{
		CPS:             q.CPS,
		CPSLimit:        q.CPSLimit,
		CPSSpaces:       q.CPSSpaces,
		CPL:             q.CPL,
		CPLLimit:        q.CPLLimit,
		MaxLines:        q.MaxLines,
		MinDuration:     q.MinDuration,
		MaxDuration:     q.MaxDuration,
		TextFitsOneLine: q.TextFitsOneLine,
		Ellipses:        q.Ellipses,
		Gaps:            c.Gaps.Check,
		InvalidGapMin:   c.Gaps.InvalidMin,
		InvalidGapMax:   c.Gaps.InvalidMax,
		ShotChanges:     c.ShotChanges.Check,
		OST:             q.OST,
		OSTLine:         q.OSTLine,
		Sort:            q.Sort,
		AllowedGlyphs:   q.AllowedGlyphs,
		FrameRate:       c.Video.FrameRate,
	}
}

// FixConfig returns the fix pipeline settings.
func (c *Config) FixConfig() fix.Config {
	return fix.Config{
		Sort:              c.Fix.Sort,
		Ellipses:          c.Fix.Ellipses,
		Replacements:      append([]fix.Replacement(nil), c.Fix.Replacements...),
		JoinShortLines:    c.Fix.JoinShortLines,
		CPLLimit:          c.Quality.CPLLimit,
		SnapToFrames:      c.Fix.SnapToFrames,
		SnapToShotChanges: c.ShotChanges.Snap,
		FixGaps:           c.Gaps.Fix,
		ExtendEnds:        c.Gaps.ExtendEnds,
		MinGaps:           c.Gaps.MinGaps,
		MinGap:            c.Gaps.MinGap,
		MinGapFrames:      c.Gaps.MinGapFrames,
	}
}

// FFmpegSettings returns the binary lookup settings.
func (c *Config) FFmpegSettings() ffmpeg.Settings {
	return ffmpeg.Settings{
		FFmpeg:        c.Video.FFmpegPath,
		FFprobe:       c.Video.FFprobePath,
		AllowDownload: c.Video.AllowDownload,
	}
}
