package spider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

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

var (
	// ErrNilRequest is returned when Fetch is called without a request
	ErrNilRequest = errors.New("fetch request is required")

	// ErrNoOutputPath is returned when the helper exits cleanly without
	// reporting where it saved the file
	ErrNoOutputPath = errors.New("helper process reported no output path")
)

// Dispatcher implements media.Dispatcher by delegating the download and
// mux to the spider.py helper script
type Dispatcher struct {
	pythonPath string
	scriptPath string
	runner     CommandRunner
}

// DispatcherOption is a functional option for configuring Dispatcher
type DispatcherOption func(*Dispatcher)

// WithPythonPath sets a custom python interpreter
func WithPythonPath(path string) DispatcherOption {
	return func(d *Dispatcher) {
		d.pythonPath = path
	}
}

// WithScriptPath sets a custom path to the spider.py helper
func WithScriptPath(path string) DispatcherOption {
	return func(d *Dispatcher) {
		d.scriptPath = path
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) DispatcherOption {
	return func(d *Dispatcher) {
		d.runner = runner
	}
}

// NewDispatcher creates a new helper-process dispatcher
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		pythonPath: "python3",
		scriptPath: "scripts/spider.py",
		runner:     &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Fetch implements media.Dispatcher. It validates the request, runs the
// helper to completion, and returns the saved file path the helper reports
// on stdout.
func (d *Dispatcher) Fetch(ctx context.Context, req *media.FetchRequest) (string, error) {
	if req == nil {
		return "", ErrNilRequest
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	// Helper contract: spider.py <videoUrl> <audioUrl> <identifier>
	output, err := d.runner.Output(ctx, d.pythonPath,
		d.scriptPath,
		req.VideoURL,
		req.AudioURL,
		req.Identifier,
	)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("helper process failed: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("helper process failed: %w", err)
	}

	path := firstLine(string(output))
	if path == "" {
		return "", ErrNoOutputPath
	}

	return path, nil
}

// VerifyInstalled checks that the python runtime and the helper script are
// both available
func (d *Dispatcher) VerifyInstalled(ctx context.Context) error {
	if _, err := d.runner.Output(ctx, d.pythonPath, "--version"); err != nil {
		return fmt.Errorf("python runtime %q not found or not executable: %w", d.pythonPath, err)
	}
	if _, err := os.Stat(d.scriptPath); err != nil {
		return fmt.Errorf("helper script %q not found: %w", d.scriptPath, err)
	}
	return nil
}

// firstLine returns the first non-empty line of s with surrounding
// whitespace removed. The helper reports the saved path first; status
// lines printed after it are ignored.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// Ensure Dispatcher implements media.Dispatcher
var _ media.Dispatcher = (*Dispatcher)(nil)
