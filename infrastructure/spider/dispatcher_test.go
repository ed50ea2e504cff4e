package spider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bili-archive/domain/media"
)

// mockCommandRunner records invocations and returns scripted results
type mockCommandRunner struct {
	calls     []commandCall
	output    []byte
	outputErr error
}

type commandCall struct {
	name string
	args []string
}

func (m *mockCommandRunner) Run(ctx context.Context, name string, args ...string) error {
	m.calls = append(m.calls, commandCall{name: name, args: args})
	return m.outputErr
}

func (m *mockCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.calls = append(m.calls, commandCall{name: name, args: args})
	return m.output, m.outputErr
}

func validRequest() *media.FetchRequest {
	return &media.FetchRequest{
		VideoURL:   "https://a/v.m4s",
		AudioURL:   "https://a/a.m4s",
		Identifier: "BV1xz421B7ku",
	}
}

func TestDispatcher_Fetch_SpawnsHelperWithArgumentsInOrder(t *testing.T) {
	runner := &mockCommandRunner{output: []byte("public/BV1xz421B7ku.mp4\n")}
	d := NewDispatcher(WithCommandRunner(runner))

	_, err := d.Fetch(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("Fetch() spawned %d processes, want exactly 1", len(runner.calls))
	}

	call := runner.calls[0]
	if call.name != "python3" {
		t.Errorf("Fetch() ran %q, want python3", call.name)
	}

	wantArgs := []string{"scripts/spider.py", "https://a/v.m4s", "https://a/a.m4s", "BV1xz421B7ku"}
	if len(call.args) != len(wantArgs) {
		t.Fatalf("Fetch() passed %d args, want %d: %v", len(call.args), len(wantArgs), call.args)
	}
	for i := range wantArgs {
		if call.args[i] != wantArgs[i] {
			t.Errorf("Fetch() args[%d] = %q, want %q", i, call.args[i], wantArgs[i])
		}
	}
}

func TestDispatcher_Fetch_ReturnsReportedPath(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "bare path",
			output: "/tmp/out.mp4",
			want:   "/tmp/out.mp4",
		},
		{
			name:   "path with trailing newline",
			output: "/tmp/out.mp4\n",
			want:   "/tmp/out.mp4",
		},
		{
			name:   "path followed by status lines",
			output: "public/BV1xz421B7ku.mp4\nSucceeded!!!\n",
			want:   "public/BV1xz421B7ku.mp4",
		},
		{
			name:   "leading blank lines are skipped",
			output: "\n\n  /tmp/out.mp4  \n",
			want:   "/tmp/out.mp4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockCommandRunner{output: []byte(tt.output)}
			d := NewDispatcher(WithCommandRunner(runner))

			got, err := d.Fetch(context.Background(), validRequest())
			if err != nil {
				t.Fatalf("Fetch() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Fetch() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDispatcher_Fetch_ValidatesBeforeSpawning(t *testing.T) {
	tests := []struct {
		name string
		req  *media.FetchRequest
	}{
		{
			name: "nil request",
			req:  nil,
		},
		{
			name: "missing video URL",
			req: &media.FetchRequest{
				AudioURL:   "https://a/a.m4s",
				Identifier: "BV1xz421B7ku",
			},
		},
		{
			name: "missing audio URL",
			req: &media.FetchRequest{
				VideoURL:   "https://a/v.m4s",
				Identifier: "BV1xz421B7ku",
			},
		},
		{
			name: "missing identifier",
			req: &media.FetchRequest{
				VideoURL: "https://a/v.m4s",
				AudioURL: "https://a/a.m4s",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockCommandRunner{output: []byte("/tmp/out.mp4")}
			d := NewDispatcher(WithCommandRunner(runner))

			_, err := d.Fetch(context.Background(), tt.req)
			if err == nil {
				t.Errorf("Fetch() expected error, got nil")
			}
			if len(runner.calls) != 0 {
				t.Errorf("Fetch() spawned %d processes before validation, want 0", len(runner.calls))
			}
		})
	}
}

func TestDispatcher_Fetch_HelperFailure(t *testing.T) {
	runner := &mockCommandRunner{outputErr: errors.New("exit status 1")}
	d := NewDispatcher(WithCommandRunner(runner))

	_, err := d.Fetch(context.Background(), validRequest())
	if err == nil {
		t.Fatal("Fetch() expected error for failed helper, got nil")
	}
	if !contains(err.Error(), "helper process failed") {
		t.Errorf("Fetch() error = %v, want error containing %q", err, "helper process failed")
	}
}

func TestDispatcher_Fetch_EmptyOutput(t *testing.T) {
	runner := &mockCommandRunner{output: []byte("\n  \n")}
	d := NewDispatcher(WithCommandRunner(runner))

	_, err := d.Fetch(context.Background(), validRequest())
	if !errors.Is(err, ErrNoOutputPath) {
		t.Errorf("Fetch() error = %v, want %v", err, ErrNoOutputPath)
	}
}

func TestDispatcher_CustomPaths(t *testing.T) {
	runner := &mockCommandRunner{output: []byte("/tmp/out.mp4")}
	d := NewDispatcher(
		WithPythonPath("/usr/local/bin/python3.11"),
		WithScriptPath("/opt/helpers/spider.py"),
		WithCommandRunner(runner),
	)

	if _, err := d.Fetch(context.Background(), validRequest()); err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}

	call := runner.calls[0]
	if call.name != "/usr/local/bin/python3.11" {
		t.Errorf("Fetch() ran %q, want custom python path", call.name)
	}
	if call.args[0] != "/opt/helpers/spider.py" {
		t.Errorf("Fetch() args[0] = %q, want custom script path", call.args[0])
	}
}

func TestDispatcher_VerifyInstalled(t *testing.T) {
	scriptPath := filepath.Join(t.TempDir(), "spider.py")
	if err := os.WriteFile(scriptPath, []byte("print()\n"), 0o644); err != nil {
		t.Fatalf("failed to write helper script: %v", err)
	}

	tests := []struct {
		name        string
		scriptPath  string
		runnerErr   error
		wantErr     bool
		errContains string
	}{
		{
			name:       "runtime and script available",
			scriptPath: scriptPath,
		},
		{
			name:        "python missing",
			scriptPath:  scriptPath,
			runnerErr:   errors.New("executable file not found"),
			wantErr:     true,
			errContains: "not found or not executable",
		},
		{
			name:        "script missing",
			scriptPath:  filepath.Join(t.TempDir(), "missing.py"),
			wantErr:     true,
			errContains: "helper script",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockCommandRunner{output: []byte("Python 3.11.0"), outputErr: tt.runnerErr}
			d := NewDispatcher(WithScriptPath(tt.scriptPath), WithCommandRunner(runner))

			err := d.VerifyInstalled(context.Background())

			if tt.wantErr {
				if err == nil {
					t.Errorf("VerifyInstalled() expected error, got nil")
					return
				}
				if tt.errContains != "" && !contains(err.Error(), tt.errContains) {
					t.Errorf("VerifyInstalled() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}

			if err != nil {
				t.Errorf("VerifyInstalled() unexpected error: %v", err)
			}
		})
	}
}

// contains checks if a string contains a substring
func contains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
