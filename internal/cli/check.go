package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subqc/internal/batch"
	"github.com/mgpai22/subqc/internal/quality"
)

var checkCmd = &cobra.Command{
	Use:   "check [subtitle_file_or_directory]",
	Short: "Check subtitles against timing and readability rules",
	Long: `Check a WebVTT or SRT file, or every subtitle file in a directory,
against the configured quality rules.

Findings are split into issues (rule violations) and warnings. Shot change
rules use a video with the same name as the subtitle file, or the one given
with --video; shot changes are detected once per video and stored.

Examples:
  subqc check episode.vtt
  subqc check episode.srt --video episode.mp4 --format table
  subqc check ./subs --format yaml -o report.yaml
  subqc check ./subs --fail-on-issues`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().
		StringP("video", "V", "", "Video file for shot changes and frame rate (single file only)")
	checkCmd.Flags().
		StringP("shot-changes", "s", "", "Read shot changes from a .scenechanges file instead of the video")
	checkCmd.Flags().
		Bool("no-shot-changes", false, "Skip shot change rules")
	checkCmd.Flags().
		StringP("format", "f", "", "Report format (text, table, yaml); defaults to report.format")
	checkCmd.Flags().
		Bool("fail-on-issues", false, "Exit with status 2 when any issue is found")
	checkCmd.Flags().
		IntP("concurrency", "j", 0, "Files checked at once in a directory (default batch.concurrency)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	target := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("file not found: %s", target)
	}

	videoPath, _ := cmd.Flags().GetString("video")
	shotFile, _ := cmd.Flags().GetString("shot-changes")
	noShots, _ := cmd.Flags().GetBool("no-shot-changes")
	formatName, _ := cmd.Flags().GetString("format")
	failOnIssues, _ := cmd.Flags().GetBool("fail-on-issues")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	if info.IsDir() && (videoPath != "" || shotFile != "") {
		return fmt.Errorf("--video and --shot-changes apply to a single file, not a directory")
	}

	opts := loadOptions{
		Video:    videoPath,
		ShotFile: shotFile,
		NoShots:  noShots || !cfg.ShotChanges.Check,
	}
	if !opts.NoShots && shotFile == "" {
		store, err := openStore()
		if err != nil {
			return fmt.Errorf("failed to open shot change store: %w", err)
		}
		defer closeStore(store)
		opts.Store = store
	}

	var reports []quality.FileReport
	if info.IsDir() {
		reports, err = checkDirectory(ctx, target, opts, concurrency)
	} else {
		var report quality.FileReport
		report, err = checkFile(ctx, target, opts)
		reports = []quality.FileReport{report}
	}
	if err != nil {
		return err
	}

	err = withOutput(cmd, func(w io.Writer) error {
		format, err := reportFormat(formatName, w)
		if err != nil {
			return err
		}
		if info.IsDir() {
			return writeDirectoryReport(w, format, target, reports)
		}
		return writeFileReport(w, format, reports[0])
	})
	if err != nil {
		return err
	}

	if failOnIssues && hasIssues(reports) {
		return ErrIssuesFound
	}
	return nil
}

func checkFile(ctx context.Context, path string, opts loadOptions) (quality.FileReport, error) {
	item, err := loadItem(ctx, path, opts)
	if err != nil {
		return quality.FileReport{Path: path}, err
	}

	result := quality.Check(item.Doc.Cues, item.Shots, cfg.QualityConfig())
	logger.Infow("Checked subtitle",
		"path", path,
		"issues", len(result.Issues()),
		"warnings", len(result.Warnings()),
	)

	return quality.FileReport{
		Path:        path,
		Video:       item.Video,
		FrameRate:   item.Rate,
		Diagnostics: item.Doc.Diagnostics,
		Result:      result,
	}, nil
}

func checkDirectory(ctx context.Context, dir string, opts loadOptions, concurrency int) ([]quality.FileReport, error) {
	files, err := batch.FindSubtitles(dir, "")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .vtt or .srt files in %s", dir)
	}

	if concurrency <= 0 {
		concurrency = cfg.Batch.Concurrency
	}

	run, err := batch.Process(ctx, files, batch.Options{
		Concurrency: concurrency,
		FailFast:    cfg.Batch.FailFast,
		Logger:      logger,
	}, func(ctx context.Context, path string) (quality.FileReport, error) {
		return checkFile(ctx, path, opts)
	})
	if err != nil {
		return nil, err
	}

	reports := make([]quality.FileReport, 0, len(run.Outcomes))
	for _, o := range run.Outcomes {
		report := o.Value
		report.Path = o.Path
		if o.Err != nil {
			report.Error = o.Err.Error()
		}
		reports = append(reports, report)
	}

	if cfg.Batch.ReportFile != "" {
		path := filepath.Join(dir, cfg.Batch.ReportFile)
		if err := writeBatchReportFile(path, dir, reports); err != nil {
			return nil, err
		}
		logger.Infow("Wrote quality report", "path", path, "files", len(reports))
	}
	return reports, nil
}

func writeBatchReportFile(path, dir string, reports []quality.FileReport) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := quality.WriteBatchText(file, dir, reports, cfg.QualityConfig()); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write report file: %w", err)
	}
	return file.Close()
}

func writeFileReport(w io.Writer, format string, report quality.FileReport) error {
	switch format {
	case "yaml":
		return quality.WriteYAML(w, []quality.FileReport{report})
	case "table":
		fmt.Fprintln(w, report.Path)
		writeDiagnostics(w, report)
		_, err := fmt.Fprintln(w, quality.Table(report.Result))
		return err
	default:
		fmt.Fprint(w, report.Path)
		fmt.Fprintln(w, quality.Text(report.Result))
		writeDiagnostics(w, report)
		return nil
	}
}

func writeDirectoryReport(w io.Writer, format, dir string, reports []quality.FileReport) error {
	switch format {
	case "yaml":
		return quality.WriteYAML(w, reports)
	case "table":
		for _, r := range reports {
			fmt.Fprintf(w, "== %s ==\n", filepath.Base(r.Path))
			if r.Error != "" {
				fmt.Fprintf(w, "Could not be checked: %s\n\n", r.Error)
				continue
			}
			writeDiagnostics(w, r)
			fmt.Fprintln(w, quality.Table(r.Result))
			fmt.Fprintln(w)
		}
		return nil
	default:
		return quality.WriteBatchText(w, dir, reports, cfg.QualityConfig())
	}
}

func writeDiagnostics(w io.Writer, report quality.FileReport) {
	for _, d := range report.Diagnostics {
		fmt.Fprintf(w, "\t%s\n", d.String())
	}
}

func hasIssues(reports []quality.FileReport) bool {
	for _, r := range reports {
		if r.Error != "" || len(r.Result.Issues()) > 0 {
			return true
		}
	}
	return false
}
