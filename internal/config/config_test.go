package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/mgpai22/subqc/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "subqc", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}

	wantDir := filepath.Join(tempHome, ".local", "share", "subqc", "shotchanges")
	if cfg.ShotChanges.Dir != wantDir {
		t.Fatalf("unexpected shot change dir: got %q want %q", cfg.ShotChanges.Dir, wantDir)
	}
	if cfg.ShotChanges.CachePath != filepath.Join(wantDir, "shotchanges.db") {
		t.Fatalf("unexpected cache path: %q", cfg.ShotChanges.CachePath)
	}
	if cfg.Report.Format != "auto" {
		t.Fatalf("unexpected report format: %q", cfg.Report.Format)
	}
	if !cfg.Video.AllowDownload {
		t.Fatal("expected downloads allowed by default")
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "subqc.toml")
	content := `
[quality]
cps_limit = 17.0
cpl_limit = 37

[gaps]
invalid_min = 4
invalid_max = 12

[shot_changes]
dir = "~/shots"

[fix]
[[fix.replacements]]
old = "--"
new = "-"
[[fix.replacements]]
old = ""
new = "ignored"

[video]
frame_rate = 23.976

[report]
format = " YAML "
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q, exists = %v", resolved, exists)
	}

	q := cfg.QualityConfig()
	if q.CPSLimit != 17 || q.CPLLimit != 37 || q.InvalidGapMin != 4 || q.InvalidGapMax != 12 {
		t.Fatalf("unexpected quality config: %+v", q)
	}
	if q.FrameRate != 23.976 {
		t.Fatalf("frame rate not carried: %v", q.FrameRate)
	}
	if !q.CPS || !q.Gaps || !q.ShotChanges {
		t.Fatal("defaults lost for keys missing from the file")
	}

	f := cfg.FixConfig()
	if len(f.Replacements) != 1 || f.Replacements[0].Old != "--" {
		t.Fatalf("unexpected replacements: %+v", f.Replacements)
	}
	if f.CPLLimit != 37 {
		t.Fatalf("fix cpl limit = %d, want 37", f.CPLLimit)
	}
	if cfg.Report.Format != "yaml" {
		t.Fatalf("report format = %q", cfg.Report.Format)
	}
	if !strings.HasSuffix(cfg.ShotChanges.Dir, "shots") || !filepath.IsAbs(cfg.ShotChanges.Dir) {
		t.Fatalf("shot change dir not expanded: %q", cfg.ShotChanges.Dir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"cps limit", func(c *config.Config) { c.Quality.CPSLimit = 0 }, "quality.cps_limit"},
		{"cpl limit", func(c *config.Config) { c.Quality.CPLLimit = -1 }, "quality.cpl_limit"},
		{"max lines", func(c *config.Config) { c.Quality.MaxLines = 0 }, "quality.max_lines"},
		{"durations", func(c *config.Config) { c.Quality.MinDuration = 8 }, "quality.min_duration"},
		{"gap window", func(c *config.Config) { c.Gaps.InvalidMin = 12 }, "gaps.invalid_min"},
		{"gap modes", func(c *config.Config) { c.Gaps.ExtendEnds = true }, "mutually exclusive"},
		{"threshold", func(c *config.Config) { c.ShotChanges.Threshold = 2 }, "shot_changes.threshold"},
		{"frame rate", func(c *config.Config) { c.Video.FrameRate = -1 }, "video.frame_rate"},
		{"drop frame", func(c *config.Config) { c.Video.FrameRate = 25; c.Video.DropFrame = true }, "video.drop_frame"},
		{"concurrency", func(c *config.Config) { c.Batch.Concurrency = -2 }, "batch.concurrency"},
		{"report file", func(c *config.Config) { c.Batch.ReportFile = "a/b.txt" }, "batch.report_file"},
		{"format", func(c *config.Config) { c.Report.Format = "html" }, "report.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.ShotChanges.CachePath = "/tmp/shotchanges.db"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestSampleConfigMatchesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	var raw map[string]any
	if err := toml.Unmarshal([]byte(config.Sample()), &raw); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}

	def := config.Default()
	if cfg.QualityConfig() != def.QualityConfig() {
		t.Fatalf("sample quality settings drift from defaults:\n%+v\n%+v", cfg.QualityConfig(), def.QualityConfig())
	}
	if cfg.Gaps != def.Gaps || cfg.Fix.SnapToFrames != def.Fix.SnapToFrames || cfg.Batch != def.Batch {
		t.Fatal("sample settings drift from defaults")
	}
}
