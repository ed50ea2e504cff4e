package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"bili-archive/domain/media"
	"bili-archive/infrastructure/ffmpeg"

	"github.com/spf13/cobra"
)

var (
	muxVideoPath  string
	muxAudioPath  string
	muxOutputPath string
)

var muxCmd = &cobra.Command{
	Use:   "mux",
	Short: "Mux a video stream and an audio stream into one mp4",
	Long: `Mux a downloaded video-only stream and audio-only stream into a
single mp4 file without re-encoding. Useful when the two m4s segments
are already on disk.

Example:
  bili-archive mux --video video.m4s --audio audio.m4s --output BV1xz421B7ku.mp4`,
	RunE: runMux,
}

func init() {
	rootCmd.AddCommand(muxCmd)
	muxCmd.Flags().StringVar(&muxVideoPath, "video", "", "Path to the video-only stream file (required)")
	muxCmd.Flags().StringVar(&muxAudioPath, "audio", "", "Path to the audio-only stream file (required)")
	muxCmd.Flags().StringVar(&muxOutputPath, "output", "", "Path for the muxed mp4 (required)")
	muxCmd.MarkFlagRequired("video")
	muxCmd.MarkFlagRequired("audio")
	muxCmd.MarkFlagRequired("output")
}

func runMux(cmd *cobra.Command, args []string) error {
	// Muxing needs no config, just ffmpeg on PATH
	return RunMuxWithDependencies(
		cmd.Context(),
		ffmpeg.NewMuxer(),
		muxVideoPath,
		muxAudioPath,
		muxOutputPath,
		os.Stdout,
	)
}

// RunMuxWithDependencies runs the mux command with injected dependencies (for testing)
func RunMuxWithDependencies(
	ctx context.Context,
	muxer media.Muxer,
	videoPath string,
	audioPath string,
	outputPath string,
	output OutputWriter,
) error {
	// Verify ffmpeg is available if the muxer supports it
	if verifiable, ok := muxer.(interface{ VerifyInstalled(context.Context) error }); ok {
		verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := verifiable.VerifyInstalled(verifyCtx); err != nil {
			return fmt.Errorf("ffmpeg verification failed: %w", err)
		}
	}

	for _, path := range []string{videoPath, audioPath} {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("input file not found: %s", path)
		}
	}

	fmt.Fprintf(output, "Muxing %s + %s...\n", videoPath, audioPath)

	if err := muxer.Mux(ctx, videoPath, audioPath, outputPath); err != nil {
		return err
	}

	fmt.Fprintf(output, "Successfully created: %s\n", outputPath)
	return nil
}
