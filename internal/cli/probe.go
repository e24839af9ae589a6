package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mgpai22/subqc/internal/shotchange"
	"github.com/mgpai22/subqc/internal/video"
)

var probeCmd = &cobra.Command{
	Use:   "probe [video_file]",
	Short: "Show video details used for checks",
	Long: `Show the frame rate, duration and hash of a video, and whether shot
changes are already stored for it.

Examples:
  subqc probe episode.mp4`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", videoPath)
	}

	info, err := newProcessor().GetInfo(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("failed to probe video: %w", err)
	}

	hash, err := video.Hash(videoPath)
	switch {
	case errors.Is(err, video.ErrFileTooSmall):
		hash = "n/a (file too small)"
	case err != nil:
		return fmt.Errorf("failed to hash video: %w", err)
	}

	stored := "none"
	if err == nil {
		store, err := openStore()
		if err != nil {
			return fmt.Errorf("failed to open shot change store: %w", err)
		}
		defer closeStore(store)

		times, err := store.Load(ctx, hash)
		switch {
		case err == nil:
			stored = strconv.Itoa(len(times))
		case !errors.Is(err, shotchange.ErrNotFound):
			return err
		}
	}

	audio := "no"
	if info.HasAudio {
		audio = "yes"
	}

	rows := [][]string{
		{"Path", info.Path},
		{"Codec", info.Codec},
		{"Resolution", fmt.Sprintf("%dx%d", info.Width, info.Height)},
		{"Frame rate", fmt.Sprintf("%s (%s)", strconv.FormatFloat(info.FrameRate, 'f', 3, 64), info.RawFrameRate)},
		{"Duration", info.Duration.String()},
		{"Audio", audio},
		{"Hash", hash},
		{"Shot changes stored", stored},
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Property", "Value"}, rows, nil))
	return nil
}
