package config

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateQuality(); err != nil {
		return err
	}
	if err := c.validateGaps(); err != nil {
		return err
	}
	if err := c.validateShotChanges(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if !slices.Contains(reportFormats, c.Report.Format) {
		return fmt.Errorf("report.format must be one of %s", strings.Join(reportFormats, ", "))
	}
	return nil
}

func (c *Config) validateQuality() error {
	q := c.Quality
	if q.CPSLimit <= 0 {
		return errors.New("quality.cps_limit must be positive")
	}
	if q.CPLLimit <= 0 {
		return errors.New("quality.cpl_limit must be positive")
	}
	if q.MaxLines < 1 {
		return errors.New("quality.max_lines must be at least 1")
	}
	if q.MinDuration < 0 || q.MaxDuration < 0 {
		return errors.New("quality.min_duration and quality.max_duration must not be negative")
	}
	if q.MaxDuration > 0 && q.MinDuration > q.MaxDuration {
		return errors.New("quality.min_duration must not exceed quality.max_duration")
	}
	if q.OSTLine < 0 || q.OSTLine > 100 {
		return errors.New("quality.ost_line must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateGaps() error {
	g := c.Gaps
	if g.InvalidMin < 0 || g.InvalidMax < 0 {
		return errors.New("gaps.invalid_min and gaps.invalid_max must not be negative")
	}
	if g.InvalidMin > g.InvalidMax {
		return errors.New("gaps.invalid_min must not exceed gaps.invalid_max")
	}
	if g.MinGap < 0 {
		return errors.New("gaps.min_gap must not be negative")
	}
	if g.Fix && g.ExtendEnds {
		return errors.New("gaps.fix and gaps.extend_ends are mutually exclusive")
	}
	return nil
}

func (c *Config) validateShotChanges() error {
	s := c.ShotChanges
	if s.Threshold <= 0 || s.Threshold > 1 {
		return errors.New("shot_changes.threshold must be between 0 and 1")
	}
	if filepath.Dir(s.CachePath) == s.CachePath {
		return fmt.Errorf("shot_changes.cache_path %q is not a file path", s.CachePath)
	}
	return nil
}

func (c *Config) validateVideo() error {
	rate := c.Video.FrameRate
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return errors.New("video.frame_rate must be 0 or a positive number")
	}
	if c.Video.DropFrame && rate != 0 && math.Abs(rate-29.97) > 0.01 && math.Abs(rate-59.94) > 0.01 {
		return errors.New("video.drop_frame requires a 29.97 or 59.94 frame rate")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.Concurrency < 0 {
		return errors.New("batch.concurrency must not be negative")
	}
	if strings.ContainsAny(c.Batch.ReportFile, `/\`) {
		return errors.New("batch.report_file must be a file name, not a path")
	}
	return nil
}
