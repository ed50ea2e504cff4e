package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"bili-archive/domain/media"
)

// CommandRunner defines the interface for running external commands
// This allows mocking exec.Command in tests
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) error
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecCommandRunner is the production implementation using os/exec
type ExecCommandRunner struct{}

// Run executes a command and returns any error
func (r *ExecCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Output executes a command and returns its output
func (r *ExecCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

// Muxer implements media.Muxer using ffmpeg
type Muxer struct {
	ffmpegPath string
	runner     CommandRunner
}

// MuxerOption is a functional option for configuring Muxer
type MuxerOption func(*Muxer)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) MuxerOption {
	return func(m *Muxer) {
		m.ffmpegPath = path
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) MuxerOption {
	return func(m *Muxer) {
		m.runner = runner
	}
}

// NewMuxer creates a new FFmpeg-based muxer
func NewMuxer(opts ...MuxerOption) *Muxer {
	m := &Muxer{
		ffmpegPath: "ffmpeg",
		runner:     &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Mux implements media.Muxer. The streams are copied into the output
// container without re-encoding.
func (m *Muxer) Mux(ctx context.Context, videoPath, audioPath, outputPath string) error {
	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-c", "copy",
		"-y", // Overwrite output file if it exists
		outputPath,
	}

	if err := m.runner.Run(ctx, m.ffmpegPath, args...); err != nil {
		return fmt.Errorf("ffmpeg mux failed: %w", err)
	}

	return nil
}

// VerifyInstalled checks that ffmpeg is available
func (m *Muxer) VerifyInstalled(ctx context.Context) error {
	_, err := m.runner.Output(ctx, m.ffmpegPath, "-version")
	if err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

// Ensure Muxer implements media.Muxer
var _ media.Muxer = (*Muxer)(nil)
