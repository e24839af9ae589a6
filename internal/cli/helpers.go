package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/mgpai22/subqc/internal/shotchange"
	"github.com/mgpai22/subqc/internal/subtitle"
	"github.com/mgpai22/subqc/internal/timecode"
	"github.com/mgpai22/subqc/internal/video"
)

// replaced in tests
var newProcessor = func() video.Processor { return video.NewProcessor() }

// subtitle file with everything needed to check or fix it
type workItem struct {
	Path  string
	Video string
	Rate  float64
	Doc   *subtitle.Document
	Shots *shotchange.Index
}

type loadOptions struct {
	// explicit video, otherwise one with the same name is looked up
	Video string
	// explicit .scenechanges file
	ShotFile string
	NoShots  bool
	Store    *shotchange.Store
}

func loadItem(ctx context.Context, path string, opts loadOptions) (*workItem, error) {
	item := &workItem{Path: path, Video: opts.Video}
	if item.Video == "" {
		if found, ok := video.FindVideo(filepath.Dir(path), path); ok {
			item.Video = found
		}
	}

	item.Rate = resolveFrameRate(ctx, item.Video)

	doc, err := subtitle.Open(path, subtitle.Options{
		FrameRate: item.Rate,
		DropFrame: cfg.Video.DropFrame,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	item.Doc = doc

	if !opts.NoShots {
		item.Shots, err = loadShotChanges(ctx, item.Video, opts.ShotFile, item.Rate, opts.Store)
		if err != nil {
			return nil, err
		}
	}

	logger.Debugw("Loaded subtitle",
		"path", path,
		"video", item.Video,
		"frame_rate", item.Rate,
		"cues", len(doc.Cues),
		"shot_changes", item.Shots.Len(),
	)
	return item, nil
}

// configured rate first, then the video's, then the default
func resolveFrameRate(ctx context.Context, videoPath string) float64 {
	if cfg.Video.FrameRate > 0 {
		return cfg.Video.FrameRate
	}
	if videoPath != "" {
		info, err := newProcessor().GetInfo(ctx, videoPath)
		if err != nil {
			logger.Warnw("Could not probe frame rate", "video", videoPath, "error", err)
		} else if info.FrameRate > 0 {
			return info.FrameRate
		}
	}
	return timecode.DefaultFrameRate
}

func loadShotChanges(ctx context.Context, videoPath, shotFile string, rate float64, store *shotchange.Store) (*shotchange.Index, error) {
	if shotFile != "" {
		times, err := shotchange.ReadFile(shotFile)
		if err != nil {
			return nil, err
		}
		return shotchange.New(times, rate), nil
	}
	if videoPath == "" || store == nil {
		return nil, nil
	}

	hash, err := video.Hash(videoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to hash video: %w", err)
	}

	var generate shotchange.GenerateFunc
	if cfg.ShotChanges.Generate {
		generate = func(ctx context.Context) ([]float64, error) {
			return newProcessor().DetectShotChanges(ctx, videoPath, cfg.ShotChanges.Threshold)
		}
	}

	times, err := store.LoadOrGenerate(ctx, hash, videoPath, generate)
	if errors.Is(err, shotchange.ErrNotFound) {
		logger.Infow("No shot changes stored for video", "video", videoPath, "hash", hash)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return shotchange.New(times, rate), nil
}

func openStore() (*shotchange.Store, error) {
	cache, err := shotchange.OpenCache(cfg.ShotChanges.CachePath)
	if err != nil {
		return nil, err
	}
	return &shotchange.Store{
		Dir:    cfg.ShotChanges.Dir,
		Cache:  cache,
		Logger: logger,
	}, nil
}

func closeStore(store *shotchange.Store) {
	if store == nil || store.Cache == nil {
		return
	}
	if err := store.Cache.Close(); err != nil {
		logger.Warnw("Failed to close shot change cache", "error", err)
	}
}

// writes through fn to --output when set, the command's stdout otherwise
func withOutput(cmd *cobra.Command, fn func(io.Writer) error) error {
	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return fn(cmd.OutOrStdout())
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := fn(file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// resolves "auto" to a table on a terminal and plain text elsewhere
func reportFormat(name string, w io.Writer) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = cfg.Report.Format
	}
	switch name {
	case "auto":
		if shouldColorize(w) {
			return "table", nil
		}
		return "text", nil
	case "text", "table", "yaml":
		return name, nil
	default:
		return "", fmt.Errorf("unsupported report format %q: use text, table, or yaml", name)
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
