package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mgpai22/subqc/internal/fix"
)

func (c *Config) normalize() error {
	if err := c.normalizeShotChanges(); err != nil {
		return err
	}
	if err := c.normalizeVideo(); err != nil {
		return err
	}
	c.normalizeFix()
	c.normalizeReport()
	return nil
}

func (c *Config) normalizeShotChanges() error {
	var err error
	if strings.TrimSpace(c.ShotChanges.Dir) == "" {
		c.ShotChanges.Dir = defaultShotChangeDir
	}
	if c.ShotChanges.Dir, err = expandPath(c.ShotChanges.Dir); err != nil {
		return fmt.Errorf("shot_changes.dir: %w", err)
	}
	if strings.TrimSpace(c.ShotChanges.CachePath) == "" {
		c.ShotChanges.CachePath = filepath.Join(c.ShotChanges.Dir, defaultShotChangeDB)
	}
	if c.ShotChanges.CachePath, err = expandPath(c.ShotChanges.CachePath); err != nil {
		return fmt.Errorf("shot_changes.cache_path: %w", err)
	}
	if c.ShotChanges.Threshold == 0 {
		c.ShotChanges.Threshold = defaultSceneThreshold
	}
	return nil
}

func (c *Config) normalizeVideo() error {
	var err error
	if c.Video.FFmpegPath, err = expandPath(strings.TrimSpace(c.Video.FFmpegPath)); err != nil {
		return fmt.Errorf("video.ffmpeg_path: %w", err)
	}
	if c.Video.FFprobePath, err = expandPath(strings.TrimSpace(c.Video.FFprobePath)); err != nil {
		return fmt.Errorf("video.ffprobe_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeFix() {
	if len(c.Fix.Replacements) == 0 {
		return
	}
	kept := make([]fix.Replacement, 0, len(c.Fix.Replacements))
	for _, r := range c.Fix.Replacements {
		if r.Old == "" {
			continue
		}
		kept = append(kept, r)
	}
	c.Fix.Replacements = kept
}

func (c *Config) normalizeReport() {
	c.Report.Format = strings.ToLower(strings.TrimSpace(c.Report.Format))
	if c.Report.Format == "" {
		c.Report.Format = defaultReportFormat
	}
	c.Batch.ReportFile = strings.TrimSpace(c.Batch.ReportFile)
}
