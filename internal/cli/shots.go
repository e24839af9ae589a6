package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subqc/internal/shotchange"
	"github.com/mgpai22/subqc/internal/timecode"
	"github.com/mgpai22/subqc/internal/video"
)

var shotsCmd = &cobra.Command{
	Use:   "shots [video_file]",
	Short: "Detect and store the shot changes of a video",
	Long: `Detect shot changes in a video with ffmpeg's scene filter and store
them as <hash>.scenechanges in the shot change directory, keyed by the
video's OpenSubtitles hash. Stored shot changes are reused unless --force
is given.

Examples:
  subqc shots episode.mp4
  subqc shots episode.mp4 --threshold 0.1 --force
  subqc shots episode.mp4 --list`,
	Args: cobra.ExactArgs(1),
	RunE: runShots,
}

func init() {
	rootCmd.AddCommand(shotsCmd)

	shotsCmd.Flags().
		Float64("threshold", 0, "Scene score above which a frame is a shot change (default shot_changes.threshold)")
	shotsCmd.Flags().
		Bool("force", false, "Detect again even when shot changes are stored")
	shotsCmd.Flags().
		Bool("list", false, "Print every shot change")
}

func runShots(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", videoPath)
	}
	if !video.IsVideoFile(videoPath) {
		return fmt.Errorf("unsupported file type: %s (expected a video file)", videoPath)
	}

	threshold, _ := cmd.Flags().GetFloat64("threshold")
	force, _ := cmd.Flags().GetBool("force")
	list, _ := cmd.Flags().GetBool("list")
	if threshold <= 0 {
		threshold = cfg.ShotChanges.Threshold
	}

	hash, err := video.Hash(videoPath)
	if err != nil {
		return fmt.Errorf("failed to hash video: %w", err)
	}

	store, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open shot change store: %w", err)
	}
	defer closeStore(store)

	if force {
		if err := forgetShotChanges(ctx, store, hash); err != nil {
			return err
		}
	}

	times, err := store.LoadOrGenerate(ctx, hash, videoPath, func(ctx context.Context) ([]float64, error) {
		return newProcessor().DetectShotChanges(ctx, videoPath, threshold)
	})
	if err != nil {
		return err
	}

	rate := resolveFrameRate(ctx, videoPath)
	index := shotchange.New(times, rate)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Video: %s\n", videoPath)
	fmt.Fprintf(out, "  Hash: %s\n", hash)
	fmt.Fprintf(out, "  Frame rate: %s\n", strconv.FormatFloat(rate, 'f', -1, 64))
	fmt.Fprintf(out, "  Shot changes: %d\n", index.Len())
	fmt.Fprintf(out, "  Stored: %s\n", store.Path(hash))

	if list && index.Len() > 0 {
		rows := make([][]string, 0, index.Len())
		for i := 0; i < index.Len(); i++ {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				strconv.FormatFloat(index.Time(i), 'f', 3, 64),
				index.Timecode(i).Format(timecode.FormatSRT),
				strconv.Itoa(index.Frame(i, timecode.Snapped)),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Seconds", "Timecode", "Frame"},
			rows,
			[]columnAlignment{alignRight, alignRight, alignLeft, alignRight},
		))
	}
	return nil
}

func forgetShotChanges(ctx context.Context, store *shotchange.Store, hash string) error {
	if store.Cache != nil {
		if err := store.Cache.Delete(ctx, hash); err != nil {
			return fmt.Errorf("failed to clear cached shot changes: %w", err)
		}
	}
	if err := os.Remove(store.Path(hash)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stored shot changes: %w", err)
	}
	return nil
}
