package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"bili-archive/domain/media"
)

// ErrNilRequest is returned when Fetch is called without a request
var ErrNilRequest = errors.New("nil fetch request")

// NativeFetcher retrieves both streams in-process and muxes them, instead
// of delegating to the helper script. It implements the same dispatcher
// port, so callers cannot tell the two modes apart.
type NativeFetcher struct {
	downloader  media.StreamDownloader
	muxer       media.Muxer
	fileChecker media.FileChecker
	mediaDir    string
	workDir     string
	output      io.Writer
}

// NewNativeFetcher creates a fetcher that downloads stream segments into
// per-job directories under workDir and writes finished files into
// mediaDir
func NewNativeFetcher(downloader media.StreamDownloader, muxer media.Muxer, fileChecker media.FileChecker, mediaDir, workDir string, output io.Writer) *NativeFetcher {
	if output == nil {
		output = io.Discard
	}
	return &NativeFetcher{
		downloader:  downloader,
		muxer:       muxer,
		fileChecker: fileChecker,
		mediaDir:    mediaDir,
		workDir:     workDir,
		output:      output,
	}
}

var _ media.Dispatcher = (*NativeFetcher)(nil)

// Fetch downloads the requested streams and muxes them into a single mp4,
// returning its path. A file that already exists for the identifier is
// reused without downloading anything.
func (f *NativeFetcher) Fetch(ctx context.Context, req *media.FetchRequest) (string, error) {
	if req == nil {
		return "", ErrNilRequest
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	outputPath := filepath.Join(f.mediaDir, req.OutputFilename())
	if f.fileChecker.Exists(outputPath) {
		fmt.Fprintf(f.output, "      Reusing existing %s\n", outputPath)
		return outputPath, nil
	}

	if err := os.MkdirAll(f.mediaDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	// Segments land in a throwaway per-job directory so concurrent
	// fetches and leftover partials never collide
	jobDir := filepath.Join(f.workDir, uuid.NewString())
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create work directory: %w", err)
	}
	defer os.RemoveAll(jobDir)

	videoPath := filepath.Join(jobDir, "video.m4s")
	audioPath := filepath.Join(jobDir, "audio.m4s")

	videoBytes, err := f.downloader.Download(ctx, mirrors(req.VideoMirrors, req.VideoURL), videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to download video stream: %w", err)
	}
	fmt.Fprintf(f.output, "      Video stream: %.1f MB\n", float64(videoBytes)/1024/1024)

	audioBytes, err := f.downloader.Download(ctx, mirrors(req.AudioMirrors, req.AudioURL), audioPath)
	if err != nil {
		return "", fmt.Errorf("failed to download audio stream: %w", err)
	}
	fmt.Fprintf(f.output, "      Audio stream: %.1f MB\n", float64(audioBytes)/1024/1024)

	if err := f.muxer.Mux(ctx, videoPath, audioPath, outputPath); err != nil {
		os.Remove(outputPath)
		return "", fmt.Errorf("failed to mux streams: %w", err)
	}

	return outputPath, nil
}

// mirrors returns the candidate list when present, otherwise just the
// primary URL
func mirrors(candidates []string, primary string) []string {
	if len(candidates) > 0 {
		return candidates
	}
	return []string{primary}
}
