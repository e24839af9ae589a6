package ffmpeg

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfigureExplicitPaths(t *testing.T) {
	t.Cleanup(func() { Configure(Settings{AllowDownload: true}) })

	Configure(Settings{FFmpeg: "/opt/ff/ffmpeg", FFprobe: "/opt/ff/ffprobe"})
	paths, err := Ensure()
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}
	if paths.FFmpeg != "/opt/ff/ffmpeg" || paths.FFprobe != "/opt/ff/ffprobe" {
		t.Errorf("Ensure() = %+v", paths)
	}
	if p, _ := FFprobePath(); p != "/opt/ff/ffprobe" {
		t.Errorf("FFprobePath() = %q", p)
	}
}

func TestEnsureWithoutDownload(t *testing.T) {
	t.Cleanup(func() { Configure(Settings{AllowDownload: true}) })
	t.Setenv("PATH", t.TempDir())
	t.Setenv(EnvFFmpegPath, "")
	t.Setenv(EnvFFprobePath, "")

	Configure(Settings{AllowDownload: false})
	if _, err := Ensure(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Ensure() error = %v, want ErrNotFound", err)
	}

	t.Setenv(EnvFFmpegPath, "/env/ffmpeg")
	t.Setenv(EnvFFprobePath, "/env/ffprobe")
	Configure(Settings{AllowDownload: false})
	paths, err := Ensure()
	if err != nil || paths.FFmpeg != "/env/ffmpeg" {
		t.Fatalf("Ensure() = %+v, %v", paths, err)
	}
}

func TestAssetForPlatform(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         string
		wantErr      bool
	}{
		{"linux", "amd64", "ffmpeg-6.1-linux-64.zip", false},
		{"linux", "arm64", "ffmpeg-6.1-linux-arm-64.zip", false},
		{"darwin", "amd64", "ffmpeg-6.1-macos-64.zip", false},
		{"windows", "amd64", "ffmpeg-6.1-win-64.zip", false},
		{"plan9", "386", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := assetForPlatform(tt.goos, tt.goarch)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("assetForPlatform() = %q, %v", got, err)
			}
		})
	}
}

func TestExtractArchive(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "bundle.zip")

	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, name := range []string{"bin/ffmpeg", "bin/ffprobe", "README"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte("binary " + name)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	install := filepath.Join(dir, "install")
	if err := extractArchive(archive, install); err != nil {
		t.Fatalf("extractArchive() error = %v", err)
	}
	suffix := executableSuffix()
	if !binariesExist(filepath.Join(install, "ffmpeg"+suffix), filepath.Join(install, "ffprobe"+suffix)) {
		t.Error("binaries not extracted")
	}
	if fileExists(filepath.Join(install, "README")) {
		t.Error("unrelated entries should be skipped")
	}
}

func TestBinaryName(t *testing.T) {
	for in, want := range map[string]string{
		"ffmpeg":      "ffmpeg",
		"FFPROBE.EXE": "ffprobe",
		"ffplay":      "",
	} {
		if got := binaryName(in); got != want {
			t.Errorf("binaryName(%q) = %q, want %q", in, got, want)
		}
	}
}
