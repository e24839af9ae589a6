package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subqc/internal/subtitle"
)

var convertCmd = &cobra.Command{
	Use:   "convert [subtitle_file]",
	Short: "Convert a subtitle file between SRT, WebVTT and ASS",
	Long: `Convert a WebVTT or SRT file to another format. Markup the target
format cannot hold is dropped; WebVTT cue settings and regions do not
survive a conversion to SRT.

Examples:
  subqc convert episode.vtt --to srt
  subqc convert episode.srt -t vtt -o web/episode.vtt`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().
		StringP("to", "t", "", "Output subtitle format (srt, vtt, ass)")
	_ = convertCmd.MarkFlagRequired("to")
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}

	toName, _ := cmd.Flags().GetString("to")
	outputPath, _ := cmd.Flags().GetString("output")

	format, err := subtitle.ParseFormat(toName)
	if err != nil {
		return err
	}

	doc, err := subtitle.Open(inputPath, subtitle.Options{
		FrameRate: cfg.Video.FrameRate,
		DropFrame: cfg.Video.DropFrame,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	converted, err := subtitle.Convert(doc, format)
	if err != nil {
		return err
	}

	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + format.Extension()
	}
	if abs, _ := filepath.Abs(outputPath); abs != "" {
		if in, _ := filepath.Abs(inputPath); in == abs {
			return fmt.Errorf("output would overwrite the input file: %s", inputPath)
		}
	}

	logger.Infow("Converting subtitles",
		"input", inputPath,
		"output", outputPath,
		"from", doc.Format.String(),
		"to", format.String(),
		"cues", len(doc.Cues),
	)

	if err := converted.Write(outputPath, format); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Fprintf(cmd.OutOrStdout(), "Subtitles converted successfully: %s\n", absOutput)
	fmt.Fprintf(cmd.OutOrStdout(), "  Entries: %d\n", len(converted.Cues))
	return nil
}
