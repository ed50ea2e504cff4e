package fetch

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bili-archive/domain/media"
)

// mockDownloader implements media.StreamDownloader for testing
type mockDownloader struct {
	size  int64
	err   error
	calls []downloadCall
}

type downloadCall struct {
	urls []string
	dest string
}

func (m *mockDownloader) Download(ctx context.Context, urls []string, destPath string) (int64, error) {
	m.calls = append(m.calls, downloadCall{urls: urls, dest: destPath})
	if m.err != nil {
		return 0, m.err
	}
	return m.size, nil
}

// mockMuxer implements media.Muxer for testing
type mockMuxer struct {
	err   error
	calls []muxCall
}

type muxCall struct {
	video  string
	audio  string
	output string
}

func (m *mockMuxer) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	m.calls = append(m.calls, muxCall{video: videoPath, audio: audioPath, output: outputPath})
	return m.err
}

// mockFileChecker implements media.FileChecker for testing
type mockFileChecker struct {
	existing map[string]bool
}

func (m *mockFileChecker) Exists(path string) bool {
	return m.existing[path]
}

func nativeRequest() *media.FetchRequest {
	return &media.FetchRequest{
		VideoURL:   "https://a/v.m4s",
		AudioURL:   "https://a/a.m4s",
		Identifier: "BV1xz421B7ku",
	}
}

func TestNativeFetcher_Fetch(t *testing.T) {
	mediaDir := t.TempDir()
	workDir := t.TempDir()
	downloader := &mockDownloader{size: 42_000_000}
	muxer := &mockMuxer{}
	fetcher := NewNativeFetcher(downloader, muxer, &mockFileChecker{}, mediaDir, workDir, io.Discard)

	got, err := fetcher.Fetch(context.Background(), nativeRequest())
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}

	want := filepath.Join(mediaDir, "BV1xz421B7ku.mp4")
	if got != want {
		t.Errorf("Fetch() = %q, want %q", got, want)
	}

	if len(downloader.calls) != 2 {
		t.Fatalf("downloader called %d times, want 2", len(downloader.calls))
	}
	video, audio := downloader.calls[0], downloader.calls[1]
	if len(video.urls) != 1 || video.urls[0] != "https://a/v.m4s" {
		t.Errorf("first download urls = %v, want the video URL", video.urls)
	}
	if len(audio.urls) != 1 || audio.urls[0] != "https://a/a.m4s" {
		t.Errorf("second download urls = %v, want the audio URL", audio.urls)
	}
	if filepath.Base(video.dest) != "video.m4s" || filepath.Base(audio.dest) != "audio.m4s" {
		t.Errorf("download dests = %q, %q, want video.m4s and audio.m4s", video.dest, audio.dest)
	}
	if filepath.Dir(video.dest) != filepath.Dir(audio.dest) {
		t.Errorf("streams downloaded into different job dirs: %q vs %q", video.dest, audio.dest)
	}
	if !strings.HasPrefix(video.dest, workDir) {
		t.Errorf("download dest %q not under work directory %q", video.dest, workDir)
	}

	if len(muxer.calls) != 1 {
		t.Fatalf("muxer called %d times, want 1", len(muxer.calls))
	}
	mux := muxer.calls[0]
	if mux.video != video.dest || mux.audio != audio.dest {
		t.Errorf("muxed %q + %q, want the downloaded segment paths", mux.video, mux.audio)
	}
	if mux.output != want {
		t.Errorf("mux output = %q, want %q", mux.output, want)
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("reading work directory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("work directory still holds %d entries after fetch, want 0", len(entries))
	}
}

func TestNativeFetcher_Fetch_ReusesExisting(t *testing.T) {
	mediaDir := t.TempDir()
	existing := filepath.Join(mediaDir, "BV1xz421B7ku.mp4")
	downloader := &mockDownloader{size: 1}
	muxer := &mockMuxer{}
	checker := &mockFileChecker{existing: map[string]bool{existing: true}}
	fetcher := NewNativeFetcher(downloader, muxer, checker, mediaDir, t.TempDir(), io.Discard)

	got, err := fetcher.Fetch(context.Background(), nativeRequest())
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}

	if got != existing {
		t.Errorf("Fetch() = %q, want existing file path %q", got, existing)
	}
	if len(downloader.calls) != 0 {
		t.Errorf("downloader called %d times for existing file, want 0", len(downloader.calls))
	}
	if len(muxer.calls) != 0 {
		t.Errorf("muxer called %d times for existing file, want 0", len(muxer.calls))
	}
}

func TestNativeFetcher_Fetch_NilRequest(t *testing.T) {
	downloader := &mockDownloader{}
	fetcher := NewNativeFetcher(downloader, &mockMuxer{}, &mockFileChecker{}, t.TempDir(), t.TempDir(), io.Discard)

	_, err := fetcher.Fetch(context.Background(), nil)

	if !errors.Is(err, ErrNilRequest) {
		t.Errorf("Fetch() error = %v, want ErrNilRequest", err)
	}
	if len(downloader.calls) != 0 {
		t.Errorf("downloader called %d times for nil request, want 0", len(downloader.calls))
	}
}

func TestNativeFetcher_Fetch_InvalidRequest(t *testing.T) {
	downloader := &mockDownloader{}
	fetcher := NewNativeFetcher(downloader, &mockMuxer{}, &mockFileChecker{}, t.TempDir(), t.TempDir(), io.Discard)

	req := nativeRequest()
	req.AudioURL = ""
	_, err := fetcher.Fetch(context.Background(), req)

	if !errors.Is(err, media.ErrMissingStreamURL) {
		t.Errorf("Fetch() error = %v, want ErrMissingStreamURL", err)
	}
	if len(downloader.calls) != 0 {
		t.Errorf("downloader called %d times for invalid request, want 0", len(downloader.calls))
	}
}

func TestNativeFetcher_Fetch_UsesMirrors(t *testing.T) {
	downloader := &mockDownloader{size: 1}
	fetcher := NewNativeFetcher(downloader, &mockMuxer{}, &mockFileChecker{}, t.TempDir(), t.TempDir(), io.Discard)

	req := nativeRequest()
	req.VideoMirrors = []string{"https://a/v.m4s", "https://mirror/v.m4s"}
	req.AudioMirrors = []string{"https://a/a.m4s", "https://mirror/a.m4s"}

	if _, err := fetcher.Fetch(context.Background(), req); err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}

	if len(downloader.calls) != 2 {
		t.Fatalf("downloader called %d times, want 2", len(downloader.calls))
	}
	if len(downloader.calls[0].urls) != 2 || downloader.calls[0].urls[1] != "https://mirror/v.m4s" {
		t.Errorf("video download urls = %v, want primary plus mirror", downloader.calls[0].urls)
	}
	if len(downloader.calls[1].urls) != 2 || downloader.calls[1].urls[1] != "https://mirror/a.m4s" {
		t.Errorf("audio download urls = %v, want primary plus mirror", downloader.calls[1].urls)
	}
}

func TestNativeFetcher_Fetch_DownloadError(t *testing.T) {
	workDir := t.TempDir()
	downloader := &mockDownloader{err: errors.New("all 1 stream sources failed")}
	muxer := &mockMuxer{}
	fetcher := NewNativeFetcher(downloader, muxer, &mockFileChecker{}, t.TempDir(), workDir, io.Discard)

	_, err := fetcher.Fetch(context.Background(), nativeRequest())

	if err == nil || !strings.Contains(err.Error(), "failed to download video stream") {
		t.Errorf("Fetch() error = %v, want download failure", err)
	}
	if len(muxer.calls) != 0 {
		t.Errorf("muxer called %d times after download failure, want 0", len(muxer.calls))
	}

	entries, readErr := os.ReadDir(workDir)
	if readErr != nil {
		t.Fatalf("reading work directory: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("work directory still holds %d entries after failure, want 0", len(entries))
	}
}

func TestNativeFetcher_Fetch_MuxError(t *testing.T) {
	downloader := &mockDownloader{size: 1}
	muxer := &mockMuxer{err: errors.New("exit status 1")}
	fetcher := NewNativeFetcher(downloader, muxer, &mockFileChecker{}, t.TempDir(), t.TempDir(), io.Discard)

	_, err := fetcher.Fetch(context.Background(), nativeRequest())

	if err == nil || !strings.Contains(err.Error(), "failed to mux streams") {
		t.Errorf("Fetch() error = %v, want mux failure", err)
	}
}
