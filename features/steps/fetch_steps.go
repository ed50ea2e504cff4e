//go:build integration

package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"bili-archive/cmd"
	"bili-archive/domain/media"
	"bili-archive/infrastructure/spider"

	"github.com/cucumber/godog"
)

// fetchMockResolver serves canned VideoInfo per BV id and counts lookups so
// scenarios can assert that descriptor-driven fetches skip resolution.
// It is shared by the fetch, batch, and archive step sets, each holding its
// own instance.
type fetchMockResolver struct {
	infos    map[string]*media.VideoInfo
	failures map[string]string
	calls    int
}

func newFetchMockResolver() *fetchMockResolver {
	return &fetchMockResolver{
		infos:    make(map[string]*media.VideoInfo),
		failures: make(map[string]string),
	}
}

func (m *fetchMockResolver) Resolve(ctx context.Context, bvid string) (*media.VideoInfo, error) {
	m.calls++
	if msg, ok := m.failures[bvid]; ok {
		return nil, fmt.Errorf("%s", msg)
	}
	info, ok := m.infos[bvid]
	if !ok {
		return nil, fmt.Errorf("no such video: %s", bvid)
	}
	return info, nil
}

// fetchMockRunner stands in for the exec-backed CommandRunner. It answers
// the dispatcher's --version probe without recording it, and records every
// helper invocation as the full argv.
type fetchMockRunner struct {
	helperCalls [][]string
	stdout      string
	failMessage string
}

func (r *fetchMockRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := r.Output(ctx, name, args...)
	return err
}

func (r *fetchMockRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if len(args) == 1 && args[0] == "--version" {
		return []byte("Python 3.11.6\n"), nil
	}
	call := append([]string{name}, args...)
	r.helperCalls = append(r.helperCalls, call)
	if r.failMessage != "" {
		return nil, fmt.Errorf("%s", r.failMessage)
	}
	if r.stdout != "" {
		return []byte(r.stdout), nil
	}
	identifier := args[len(args)-1]
	return []byte("/tmp/" + identifier + ".mp4\n"), nil
}

type fetchContext struct {
	tempDir        string
	scriptPath     string
	resolver       *fetchMockResolver
	runner         *fetchMockRunner
	descriptorPath string
	output         *bytes.Buffer
	err            error
}

// SharedFetchContext is the context shared between fetch steps
var SharedFetchContext = &fetchContext{}

// InitializeFetchScenario registers fetch steps with the godog suite
func InitializeFetchScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedFetchContext

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "fetch-test-*")
		if err != nil {
			return ctx, err
		}
		testCtx.tempDir = tempDir
		testCtx.scriptPath = ""
		testCtx.resolver = newFetchMockResolver()
		testCtx.runner = &fetchMockRunner{}
		testCtx.descriptorPath = ""
		testCtx.output = &bytes.Buffer{}
		testCtx.err = nil
		return ctx, nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		SharedFetchContext = &fetchContext{}
		return ctx, nil
	})

	ctx.Step(`^the helper script is installed$`, testCtx.theHelperScriptIsInstalled)
	ctx.Step(`^video "([^"]*)" resolves with video stream "([^"]*)" and audio stream "([^"]*)"$`, testCtx.videoResolvesWithStreams)
	ctx.Step(`^video "([^"]*)" resolves with a listing that has no audio streams$`, testCtx.videoResolvesWithoutAudio)
	ctx.Step(`^video "([^"]*)" resolves with streams:$`, testCtx.videoResolvesWithStreamTable)
	ctx.Step(`^the helper reports the saved path "([^"]*)" padded with blank lines$`, testCtx.theHelperReportsPaddedPath)
	ctx.Step(`^the helper process fails with "([^"]*)"$`, testCtx.theHelperProcessFailsWith)
	ctx.Step(`^a descriptor file listing video stream "([^"]*)" and audio stream "([^"]*)"$`, testCtx.aDescriptorFileListing)
	ctx.Step(`^I run fetch with id "([^"]*)"$`, testCtx.iRunFetchWithID)
	ctx.Step(`^I run fetch with id "([^"]*)" and selection "([^"]*)"$`, testCtx.iRunFetchWithIDAndSelection)
	ctx.Step(`^I run fetch with id "([^"]*)" using the descriptor file$`, testCtx.iRunFetchWithIDUsingDescriptor)
	ctx.Step(`^the fetch should succeed$`, testCtx.theFetchShouldSucceed)
	ctx.Step(`^the fetch should fail with "([^"]*)"$`, testCtx.theFetchShouldFailWith)
	ctx.Step(`^the fetch output should contain "([^"]*)"$`, testCtx.theFetchOutputShouldContain)
	ctx.Step(`^the helper should have been invoked (\d+) times?$`, testCtx.theHelperShouldHaveBeenInvoked)
	ctx.Step(`^the helper should have received arguments "([^"]*)" "([^"]*)" "([^"]*)"$`, testCtx.theHelperShouldHaveReceivedArguments)
	ctx.Step(`^the helper should not have been invoked$`, testCtx.theHelperShouldNotHaveBeenInvoked)
	ctx.Step(`^nothing was resolved$`, testCtx.nothingWasResolved)
}

func (c *fetchContext) theHelperScriptIsInstalled() error {
	c.scriptPath = filepath.Join(c.tempDir, "spider.py")
	return os.WriteFile(c.scriptPath, []byte("# stream downloader stub\n"), 0755)
}

func (c *fetchContext) videoResolvesWithStreams(bvid, videoURL, audioURL string) error {
	c.resolver.infos[bvid] = &media.VideoInfo{
		BVID:     bvid,
		Title:    "Test Video",
		Owner:    "Test Uploader",
		Duration: 634,
		Streams: &media.Descriptor{
			Video: []media.Representation{{BaseURL: videoURL, Bandwidth: 1200000}},
			Audio: []media.Representation{{BaseURL: audioURL, Bandwidth: 190000}},
		},
	}
	return nil
}

func (c *fetchContext) videoResolvesWithoutAudio(bvid string) error {
	c.resolver.infos[bvid] = &media.VideoInfo{
		BVID:  bvid,
		Title: "Silent Video",
		Streams: &media.Descriptor{
			Video: []media.Representation{{BaseURL: "https://a/v.m4s", Bandwidth: 1200000}},
		},
	}
	return nil
}

func (c *fetchContext) videoResolvesWithStreamTable(bvid string, table *godog.Table) error {
	descriptor := &media.Descriptor{}
	for _, row := range table.Rows {
		if row.Cells[0].Value == "type" {
			continue
		}
		bandwidth, err := strconv.Atoi(row.Cells[2].Value)
		if err != nil {
			return fmt.Errorf("bad bandwidth %q: %w", row.Cells[2].Value, err)
		}
		rep := media.Representation{BaseURL: row.Cells[1].Value, Bandwidth: bandwidth}
		switch row.Cells[0].Value {
		case "video":
			descriptor.Video = append(descriptor.Video, rep)
		case "audio":
			descriptor.Audio = append(descriptor.Audio, rep)
		default:
			return fmt.Errorf("unknown stream type %q", row.Cells[0].Value)
		}
	}
	c.resolver.infos[bvid] = &media.VideoInfo{
		BVID:    bvid,
		Title:   "Test Video",
		Streams: descriptor,
	}
	return nil
}

func (c *fetchContext) theHelperReportsPaddedPath(path string) error {
	c.runner.stdout = "\n\n   " + path + "   \n\n"
	return nil
}

func (c *fetchContext) theHelperProcessFailsWith(message string) error {
	c.runner.failMessage = message
	return nil
}

func (c *fetchContext) aDescriptorFileListing(videoURL, audioURL string) error {
	descriptor := media.Descriptor{
		Video: []media.Representation{{BaseURL: videoURL, Bandwidth: 1200000}},
		Audio: []media.Representation{{BaseURL: audioURL, Bandwidth: 190000}},
	}
	data, err := json.Marshal(descriptor)
	if err != nil {
		return err
	}
	c.descriptorPath = filepath.Join(c.tempDir, "descriptor.json")
	return os.WriteFile(c.descriptorPath, data, 0644)
}

func (c *fetchContext) runFetch(id, selection, descriptorPath string) error {
	dispatcher := spider.NewDispatcher(
		spider.WithScriptPath(c.scriptPath),
		spider.WithCommandRunner(c.runner),
	)
	c.output.Reset()
	c.err = cmd.RunFetchWithDependencies(
		context.Background(),
		c.resolver,
		dispatcher,
		nil,
		selection,
		id,
		descriptorPath,
		false,
		c.output,
	)
	return nil
}

func (c *fetchContext) iRunFetchWithID(id string) error {
	return c.runFetch(id, "", "")
}

func (c *fetchContext) iRunFetchWithIDAndSelection(id, selection string) error {
	return c.runFetch(id, selection, "")
}

func (c *fetchContext) iRunFetchWithIDUsingDescriptor(id string) error {
	if c.descriptorPath == "" {
		return fmt.Errorf("no descriptor file was prepared")
	}
	return c.runFetch(id, "", c.descriptorPath)
}

func (c *fetchContext) theFetchShouldSucceed() error {
	if c.err != nil {
		return fmt.Errorf("expected fetch to succeed but got error: %v\noutput:\n%s", c.err, c.output.String())
	}
	return nil
}

func (c *fetchContext) theFetchShouldFailWith(expectedError string) error {
	if c.err == nil {
		return fmt.Errorf("expected fetch to fail with %q but it succeeded\noutput:\n%s", expectedError, c.output.String())
	}
	if !strings.Contains(strings.ToLower(c.err.Error()), strings.ToLower(expectedError)) {
		return fmt.Errorf("expected error to contain %q but got: %v", expectedError, c.err)
	}
	return nil
}

func (c *fetchContext) theFetchOutputShouldContain(expected string) error {
	if !strings.Contains(c.output.String(), expected) {
		return fmt.Errorf("expected output to contain %q but got:\n%s", expected, c.output.String())
	}
	return nil
}

func (c *fetchContext) theHelperShouldHaveBeenInvoked(count int) error {
	if len(c.runner.helperCalls) != count {
		return fmt.Errorf("expected %d helper invocation(s) but got %d: %v", count, len(c.runner.helperCalls), c.runner.helperCalls)
	}
	return nil
}

func (c *fetchContext) theHelperShouldHaveReceivedArguments(videoURL, audioURL, identifier string) error {
	if len(c.runner.helperCalls) == 0 {
		return fmt.Errorf("expected the helper to have been invoked but it was not")
	}
	call := c.runner.helperCalls[len(c.runner.helperCalls)-1]
	if len(call) != 5 {
		return fmt.Errorf("expected helper argv of 5 elements but got %d: %v", len(call), call)
	}
	got := call[2:]
	want := []string{videoURL, audioURL, identifier}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("expected helper arguments %v but got %v", want, got)
		}
	}
	return nil
}

func (c *fetchContext) theHelperShouldNotHaveBeenInvoked() error {
	if len(c.runner.helperCalls) != 0 {
		return fmt.Errorf("expected no helper invocations but got %d: %v", len(c.runner.helperCalls), c.runner.helperCalls)
	}
	return nil
}

func (c *fetchContext) nothingWasResolved() error {
	if c.resolver.calls != 0 {
		return fmt.Errorf("expected no resolver calls but got %d", c.resolver.calls)
	}
	return nil
}
