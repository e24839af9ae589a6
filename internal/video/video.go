package video

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	ffmpegbin "github.com/mgpai22/subqc/internal/ffmpeg"
	"github.com/mgpai22/subqc/internal/timecode"
)

// DefaultSceneThreshold is the scene score above which a frame counts as
// a shot change.
const DefaultSceneThreshold = 0.05

// video file information
type Info struct {
	Path      string        `yaml:"path"`
	Duration  time.Duration `yaml:"duration"`
	Width     int           `yaml:"width"`
	Height    int           `yaml:"height"`
	FrameRate float64       `yaml:"frame_rate"`
	// as ffprobe reports it, e.g. 24000/1001
	RawFrameRate string `yaml:"raw_frame_rate"`
	Codec        string `yaml:"codec"`
	HasAudio     bool   `yaml:"has_audio"`
}

// defines interface for video probing operations
type Processor interface {
	// retrieves video file information
	GetInfo(ctx context.Context, videoPath string) (*Info, error)

	// lists shot change times in seconds
	DetectShotChanges(ctx context.Context, videoPath string, threshold float64) ([]float64, error)
}

// default implementation using ffprobe and ffmpeg
type DefaultProcessor struct{}

func NewProcessor() *DefaultProcessor {
	return &DefaultProcessor{}
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// retrieves video file information
func (p *DefaultProcessor) GetInfo(ctx context.Context, videoPath string) (*Info, error) {
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("video file not found: %s", videoPath)
	}

	ffprobePath, err := ffmpegbin.FFprobePath()
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		videoPath,
	)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseProbe(out.Bytes(), videoPath)
}

func parseProbe(data []byte, videoPath string) (*Info, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &Info{Path: videoPath}
	foundVideo := false
	for _, s := range probe.Streams {
		switch s.CodecType {
		case "video":
			if foundVideo {
				continue
			}
			foundVideo = true
			info.Codec = s.CodecName
			info.Width = s.Width
			info.Height = s.Height
			info.RawFrameRate = s.RFrameRate
			if rate, err := timecode.ParseRate(s.RFrameRate); err == nil {
				info.FrameRate = rate
			} else if rate, err := timecode.ParseRate(s.AvgFrameRate); err == nil {
				info.FrameRate = rate
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if !foundVideo {
		return nil, fmt.Errorf("no video stream in %s", videoPath)
	}

	if probe.Format.Duration != "" {
		seconds, err := strconv.ParseFloat(probe.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse duration: %w", err)
		}
		info.Duration = time.Duration(seconds * float64(time.Second))
	}

	return info, nil
}

// FrameRate probes the frame rate of the first video stream.
func (p *DefaultProcessor) FrameRate(ctx context.Context, videoPath string) (float64, error) {
	info, err := p.GetInfo(ctx, videoPath)
	if err != nil {
		return 0, err
	}
	if info.FrameRate <= 0 {
		return 0, fmt.Errorf("no frame rate reported for %s", videoPath)
	}
	return info.FrameRate, nil
}

// DetectShotChanges runs ffmpeg's scene filter over the video and returns
// the presentation time of every frame scoring above threshold.
func (p *DefaultProcessor) DetectShotChanges(ctx context.Context, videoPath string, threshold float64) ([]float64, error) {
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("video file not found: %s", videoPath)
	}
	if threshold <= 0 {
		threshold = DefaultSceneThreshold
	}

	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return nil, err
	}

	var stderr bytes.Buffer
	cmd := ffmpeg.Input(videoPath).
		Output("-", ffmpeg.KwArgs{
			"an": "",
			"vf": fmt.Sprintf("select='gt(scene,%s)',showinfo", strconv.FormatFloat(threshold, 'f', -1, 64)),
			"f":  "null",
		}).
		WithErrorOutput(&stderr).
		SetFfmpegPath(ffmpegPath).
		Compile()

	if err := runContext(ctx, cmd); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("ffmpeg scene detection failed: %w: %s", err, lastLine(stderr.String()))
	}

	return ParseShowInfo(&stderr)
}

// runs cmd, killing it when ctx is done
func runContext(ctx context.Context, cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}

var (
	showInfoFrame = regexp.MustCompile(`n:\s*\d+ `)
	showInfoPTS   = regexp.MustCompile(`pts_time:(\d+\.?\d*)`)
)

// ParseShowInfo reads the pts_time of every frame line printed by the
// showinfo filter.
func ParseShowInfo(r io.Reader) ([]float64, error) {
	var times []float64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !showInfoFrame.MatchString(line) {
			continue
		}
		m := showInfoPTS.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		times = append(times, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read showinfo output: %w", err)
	}
	return times, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// checks if the file is a video based on extension
func IsVideoFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	videoExts := map[string]bool{
		".mp4":  true,
		".mkv":  true,
		".avi":  true,
		".mov":  true,
		".wmv":  true,
		".flv":  true,
		".webm": true,
		".m4v":  true,
		".mpeg": true,
		".mpg":  true,
		".3gp":  true,
		".ts":   true,
	}
	return videoExts[ext]
}

// FindVideo looks in dir for a video with the same base name as the
// subtitle file, e.g. episode.mp4 for episode.en.vtt.
func FindVideo(dir, subtitlePath string) (string, bool) {
	base := filepath.Base(subtitlePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	for _, candidate := range []string{base, strings.TrimSuffix(base, filepath.Ext(base))} {
		if candidate == "" {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !IsVideoFile(name) {
				continue
			}
			if strings.TrimSuffix(name, filepath.Ext(name)) == candidate {
				return filepath.Join(dir, name), true
			}
		}
	}
	return "", false
}
