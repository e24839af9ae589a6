package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mgpai22/subqc/internal/video"
)

type fakeProcessor struct {
	rate   float64
	shots  []float64
	detect atomic.Int32
}

func (f *fakeProcessor) GetInfo(_ context.Context, path string) (*video.Info, error) {
	return &video.Info{
		Path:         path,
		Duration:     time.Minute,
		Width:        1920,
		Height:       1080,
		FrameRate:    f.rate,
		RawFrameRate: "25/1",
		Codec:        "h264",
	}, nil
}

func (f *fakeProcessor) DetectShotChanges(context.Context, string, float64) ([]float64, error) {
	f.detect.Add(1)
	return f.shots, nil
}

// isolates HOME and the working directory and swaps in a fake processor
func setupCLI(t *testing.T) (string, *fakeProcessor) {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "cache"))
	t.Setenv("SUBQC_FFMPEG_PATH", "")
	t.Setenv("SUBQC_FFPROBE_PATH", "")
	work := filepath.Join(base, "work")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatal(err)
	}
	t.Chdir(work)

	fake := &fakeProcessor{rate: 25}
	prev := newProcessor
	newProcessor = func() video.Processor { return fake }
	t.Cleanup(func() { newProcessor = prev })
	return work, fake
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const shortCueSRT = `1
00:00:01,000 --> 00:00:01,500
Hi there.
`

const cleanSRT = `1
00:00:01,000 --> 00:00:03,000
Hello.
`

func TestCheckFile(t *testing.T) {
	work, _ := setupCLI(t)
	path := writeFile(t, filepath.Join(work, "episode.srt"), shortCueSRT)

	out, err := execute(t, "check", path)
	if err != nil {
		t.Fatalf("check error = %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("output does not name the file:\n%s", out)
	}
	if !strings.Contains(out, "Subtitle lasts less than the minimum duration (0.5 seconds)") {
		t.Errorf("missing min duration issue:\n%s", out)
	}

	_, err = execute(t, "check", path, "--fail-on-issues")
	if !errors.Is(err, ErrIssuesFound) {
		t.Errorf("check --fail-on-issues error = %v, want ErrIssuesFound", err)
	}

	clean := writeFile(t, filepath.Join(work, "clean.srt"), cleanSRT)
	out, err = execute(t, "check", clean, "--fail-on-issues")
	if err != nil {
		t.Fatalf("clean check error = %v", err)
	}
	if !strings.Contains(out, "No issues found.") {
		t.Errorf("clean output:\n%s", out)
	}
}

func TestCheckFormats(t *testing.T) {
	work, _ := setupCLI(t)
	path := writeFile(t, filepath.Join(work, "episode.srt"), shortCueSRT)

	out, err := execute(t, "check", path, "--format", "yaml")
	if err != nil {
		t.Fatalf("check yaml error = %v", err)
	}
	for _, want := range []string{"path: " + path, "rule: min-duration", "severity: error"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml output missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, "check", path, "-f", "table")
	if err != nil {
		t.Fatalf("check table error = %v", err)
	}
	if !strings.Contains(strings.ToUpper(out), "SEVERITY") || !strings.Contains(out, "╭") {
		t.Errorf("table output:\n%s", out)
	}

	if _, err := execute(t, "check", path, "-f", "html"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestCheckDirectory(t *testing.T) {
	work, _ := setupCLI(t)
	dir := filepath.Join(work, "subs")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "a.srt"), shortCueSRT)
	writeFile(t, filepath.Join(dir, "b.srt"), cleanSRT)
	writeFile(t, filepath.Join(dir, "broken.vtt"), "not a webvtt file\n")

	out, err := execute(t, "check", dir, "--format", "yaml", "-j", "2")
	if err != nil {
		t.Fatalf("check dir error = %v", err)
	}
	if strings.Count(out, "- path: ") != 3 {
		t.Errorf("expected three reports:\n%s", out)
	}
	if !strings.Contains(out, "error: ") {
		t.Errorf("broken file should carry an error:\n%s", out)
	}

	report, err := os.ReadFile(filepath.Join(dir, "quality_report.txt"))
	if err != nil {
		t.Fatalf("batch report not written: %v", err)
	}
	for _, want := range []string{"Files checked", "a.srt", "b.srt", "Settings used:"} {
		if !strings.Contains(string(report), want) {
			t.Errorf("batch report missing %q", want)
		}
	}

	if _, err := execute(t, "check", dir, "--video", "x.mp4"); err == nil {
		t.Error("expected error for --video with a directory")
	}
}

func TestCheckUsesVideoShotChanges(t *testing.T) {
	work, fake := setupCLI(t)
	fake.shots = []float64{1.04}

	writeFile(t, filepath.Join(work, "episode.mp4"), strings.Repeat("x", 200000))
	path := writeFile(t, filepath.Join(work, "episode.srt"), cleanSRT)

	for i := 0; i < 2; i++ {
		out, err := execute(t, "check", path)
		if err != nil {
			t.Fatalf("check error = %v", err)
		}
		if !strings.Contains(out, "shot change") {
			t.Errorf("expected a shot change finding:\n%s", out)
		}
	}
	if got := fake.detect.Load(); got != 1 {
		t.Errorf("shot changes detected %d times, want 1", got)
	}

	out, err := execute(t, "check", path, "--no-shot-changes")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "shot change") {
		t.Errorf("shot change rules should be skipped:\n%s", out)
	}
}

func TestFixWritesFixedFile(t *testing.T) {
	work, _ := setupCLI(t)
	path := writeFile(t, filepath.Join(work, "episode.srt"), `1
00:00:01,000 --> 00:00:02,000
First...

2
00:00:02,042 --> 00:00:03,000
Second.
`)

	out, err := execute(t, "fix", path, "-r", "24")
	if err != nil {
		t.Fatalf("fix error = %v", err)
	}
	if !strings.Contains(out, "Subtitles fixed successfully") {
		t.Errorf("fix output:\n%s", out)
	}

	fixed, err := os.ReadFile(filepath.Join(work, "episode.fixed.srt"))
	if err != nil {
		t.Fatalf("fixed file not written: %v", err)
	}
	if !strings.Contains(string(fixed), "00:00:01,000 --> 00:00:01,958") {
		t.Errorf("gap not fixed:\n%s", fixed)
	}
	if !strings.Contains(string(fixed), "First…") {
		t.Errorf("ellipsis not replaced:\n%s", fixed)
	}

	original, _ := os.ReadFile(path)
	if strings.Contains(string(original), "01,958") {
		t.Error("input file was modified")
	}

	out, err = execute(t, "fix", path, "--dry-run", "-r", "24")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Would change 1 of 2 cues") {
		t.Errorf("dry run output:\n%s", out)
	}

	if _, err := execute(t, "fix", path, "--in-place", "--to", "vtt"); err == nil {
		t.Error("expected error changing format in place")
	}
}

func TestConvert(t *testing.T) {
	work, _ := setupCLI(t)
	path := writeFile(t, filepath.Join(work, "episode.srt"), cleanSRT)

	if _, err := execute(t, "convert", path, "--to", "vtt"); err != nil {
		t.Fatalf("convert error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(work, "episode.vtt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "WEBVTT") {
		t.Errorf("converted file:\n%s", data)
	}

	if _, err := execute(t, "convert", path, "--to", "srt"); err == nil {
		t.Error("expected error when output equals input")
	}
}

func TestShotsStoresDetection(t *testing.T) {
	work, fake := setupCLI(t)
	fake.shots = []float64{1.5, 3}
	videoPath := writeFile(t, filepath.Join(work, "movie.mp4"), strings.Repeat("y", 200000))

	out, err := execute(t, "shots", videoPath, "--list")
	if err != nil {
		t.Fatalf("shots error = %v", err)
	}
	for _, want := range []string{"Shot changes: 2", "Frame rate: 25", "00:00:01,500"} {
		if !strings.Contains(out, want) {
			t.Errorf("shots output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "shots", videoPath); err != nil {
		t.Fatal(err)
	}
	if got := fake.detect.Load(); got != 1 {
		t.Errorf("detected %d times, want 1", got)
	}

	if _, err := execute(t, "shots", videoPath, "--force"); err != nil {
		t.Fatal(err)
	}
	if got := fake.detect.Load(); got != 2 {
		t.Errorf("--force detected %d times in total, want 2", got)
	}

	out, err = execute(t, "probe", videoPath)
	if err != nil {
		t.Fatalf("probe error = %v", err)
	}
	for _, want := range []string{"1920x1080", "Shot changes stored", "h264"} {
		if !strings.Contains(out, want) {
			t.Errorf("probe output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCommands(t *testing.T) {
	work, _ := setupCLI(t)
	target := filepath.Join(work, "conf", "subqc.toml")

	out, err := execute(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if !strings.Contains(out, target) {
		t.Errorf("config init output:\n%s", out)
	}
	if _, err := execute(t, "config", "init", "--path", target); err == nil {
		t.Error("expected error when the config already exists")
	}

	out, err = execute(t, "config", "show", "-c", target)
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "[quality]") || !strings.Contains(out, "cpl_limit = 42") {
		t.Errorf("config show output:\n%s", out)
	}
}

func TestLicense(t *testing.T) {
	setupCLI(t)
	out, err := execute(t, "license")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "MIT License") || !strings.Contains(out, "FFmpeg") {
		t.Errorf("license output:\n%s", out)
	}
}

func TestReportFormat(t *testing.T) {
	setupCLI(t)
	if _, err := execute(t, "config", "show"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "text", false},
		{"auto", "text", false},
		{"TABLE", "table", false},
		{" yaml ", "yaml", false},
		{"json", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reportFormat(tt.name, &bytes.Buffer{})
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("reportFormat(%q) = %q, %v", tt.name, got, err)
			}
		})
	}
}
