package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subqc/internal/config"
	"github.com/mgpai22/subqc/internal/ffmpeg"
	"github.com/mgpai22/subqc/internal/logging"
	"github.com/mgpai22/subqc/internal/timecode"
)

// ErrIssuesFound is returned by check with --fail-on-issues when any
// error-level finding was reported.
var ErrIssuesFound = errors.New("quality issues found")

const skipConfigLoad = "skipConfigLoad"

var (
	verbose    bool
	configPath string
	frameRate  string
	logger     *logging.Logger
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "subqc",
	Short: "Quality checks and timing fixes for WebVTT and SRT subtitles",
	Long: `subqc checks WebVTT and SRT subtitle files against timing and
readability rules and fixes the problems it can.

Shot changes are detected with ffmpeg from the matching video and stored
by video hash, so later runs over the same video reuse them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.NewLogger(verbose)
		if cmd.Annotations[skipConfigLoad] == "true" {
			return nil
		}

		loaded, path, exists, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if frameRate != "" {
			rate, err := timecode.ParseRate(frameRate)
			if err != nil {
				return fmt.Errorf("invalid --frame-rate: %w", err)
			}
			loaded.Video.FrameRate = rate
		}
		logger.Debugw("Loaded configuration", "path", path, "exists", exists)

		ffmpeg.Configure(loaded.FFmpegSettings())
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	},
}

// Execute runs the root command, printing any error except ErrIssuesFound.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, ErrIssuesFound) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "Configuration file (default ~/.config/subqc/config.toml or ./subqc.toml)")
	rootCmd.PersistentFlags().
		StringVarP(&frameRate, "frame-rate", "r", "", "Frame rate, e.g. 25 or 24000/1001 (overrides the video and config)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output file path")
}
