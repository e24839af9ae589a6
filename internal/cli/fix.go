package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subqc/internal/fix"
	"github.com/mgpai22/subqc/internal/quality"
	"github.com/mgpai22/subqc/internal/subtitle"
)

var fixCmd = &cobra.Command{
	Use:   "fix [subtitle_file]",
	Short: "Fix timing and text problems in a subtitle file",
	Long: `Apply the configured fixes to a WebVTT or SRT file: sorting and
renumbering, text replacements, joining short lines, snapping times to
frames and shot changes, and closing gaps.

The fixed file is written next to the input as <name>.fixed.<ext> unless
--output or --in-place is given.

Examples:
  subqc fix episode.vtt
  subqc fix episode.srt --video episode.mp4 --in-place
  subqc fix episode.vtt --to srt -o episode.srt
  subqc fix episode.vtt --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runFix,
}

func init() {
	rootCmd.AddCommand(fixCmd)

	fixCmd.Flags().
		StringP("video", "V", "", "Video file for shot changes and frame rate")
	fixCmd.Flags().
		StringP("shot-changes", "s", "", "Read shot changes from a .scenechanges file instead of the video")
	fixCmd.Flags().
		Bool("no-shot-changes", false, "Fix without shot changes")
	fixCmd.Flags().
		StringP("to", "t", "", "Output subtitle format (srt, vtt, ass); defaults to the input format")
	fixCmd.Flags().
		Bool("in-place", false, "Overwrite the input file")
	fixCmd.Flags().
		Bool("dry-run", false, "Report what would change without writing")
}

func runFix(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}

	videoPath, _ := cmd.Flags().GetString("video")
	shotFile, _ := cmd.Flags().GetString("shot-changes")
	noShots, _ := cmd.Flags().GetBool("no-shot-changes")
	toName, _ := cmd.Flags().GetString("to")
	inPlace, _ := cmd.Flags().GetBool("in-place")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	outputPath, _ := cmd.Flags().GetString("output")

	opts := loadOptions{
		Video:    videoPath,
		ShotFile: shotFile,
		NoShots:  noShots,
	}
	if !noShots && shotFile == "" {
		store, err := openStore()
		if err != nil {
			return fmt.Errorf("failed to open shot change store: %w", err)
		}
		defer closeStore(store)
		opts.Store = store
	}

	item, err := loadItem(ctx, inputPath, opts)
	if err != nil {
		return err
	}

	format := item.Doc.Format
	if toName != "" {
		if format, err = subtitle.ParseFormat(toName); err != nil {
			return err
		}
	}

	fixed, changed := applyFixes(item)

	before := quality.Check(item.Doc.Cues, item.Shots, cfg.QualityConfig())
	after := quality.Check(fixed.Cues, item.Shots, cfg.QualityConfig())

	logger.Infow("Applied fixes",
		"input", inputPath,
		"changed", changed,
		"issues_before", len(before.Issues()),
		"issues_after", len(after.Issues()),
	)

	out := cmd.OutOrStdout()
	if dryRun {
		fmt.Fprintf(out, "Would change %d of %d cues in %s\n", changed, len(fixed.Cues), inputPath)
		fmt.Fprintf(out, "  Issues: %d -> %d\n", len(before.Issues()), len(after.Issues()))
		return nil
	}

	if format != fixed.Format {
		if fixed, err = subtitle.Convert(fixed, format); err != nil {
			return err
		}
	}

	switch {
	case outputPath != "":
	case inPlace:
		if format != item.Doc.Format {
			return fmt.Errorf("--in-place cannot change the format; use --output")
		}
		outputPath = inputPath
	default:
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		outputPath = base + ".fixed" + format.Extension()
	}

	if err := fixed.Write(outputPath, format); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Fprintf(out, "Subtitles fixed successfully: %s\n", absOutput)
	fmt.Fprintf(out, "  Changed: %d of %d cues\n", changed, len(fixed.Cues))
	fmt.Fprintf(out, "  Issues: %d -> %d\n", len(before.Issues()), len(after.Issues()))
	return nil
}

// runs the fix pipeline over a copy of the item's document
func applyFixes(item *workItem) (*subtitle.Document, int) {
	pipeline := fix.NewPipeline(cfg.FixConfig(), item.Shots, item.Rate, logger)
	cues := pipeline.Run(item.Doc.Cues)

	fixed := item.Doc.Clone()
	fixed.Cues = cues
	return fixed, fix.Changed(item.Doc.Cues, cues)
}
