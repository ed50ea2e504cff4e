//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	appbatch "bili-archive/application/batch"
	"bili-archive/cmd"
	"bili-archive/domain/media"

	"github.com/cucumber/godog"
)

// batchMockDispatcher records every fetch request and reports the path the
// real helper would have produced, without touching disk.
type batchMockDispatcher struct {
	requests []*media.FetchRequest
	mediaDir string
}

func (d *batchMockDispatcher) Fetch(ctx context.Context, req *media.FetchRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	d.requests = append(d.requests, req)
	return filepath.Join(d.mediaDir, req.OutputFilename()), nil
}

type batchMockFileChecker struct {
	existing map[string]bool
}

func (f *batchMockFileChecker) Exists(path string) bool {
	return f.existing[filepath.Base(path)]
}

type batchContext struct {
	tempDir     string
	mediaDir    string
	listPath    string
	resolver    *fetchMockResolver
	dispatcher  *batchMockDispatcher
	fileChecker *batchMockFileChecker
	output      *bytes.Buffer
	err         error
}

// SharedBatchContext is the context shared between batch steps
var SharedBatchContext = &batchContext{}

// InitializeBatchScenario registers batch steps with the godog suite
func InitializeBatchScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedBatchContext

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "batch-test-*")
		if err != nil {
			return ctx, err
		}
		testCtx.tempDir = tempDir
		testCtx.mediaDir = filepath.Join(tempDir, "media")
		testCtx.listPath = ""
		testCtx.resolver = newFetchMockResolver()
		testCtx.dispatcher = &batchMockDispatcher{mediaDir: testCtx.mediaDir}
		testCtx.fileChecker = &batchMockFileChecker{existing: make(map[string]bool)}
		testCtx.output = &bytes.Buffer{}
		testCtx.err = nil
		return ctx, nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		SharedBatchContext = &batchContext{}
		return ctx, nil
	})

	ctx.Step(`^a batch list file containing:$`, testCtx.aBatchListFileContaining)
	ctx.Step(`^list entry "([^"]*)" resolves with video stream "([^"]*)" and audio stream "([^"]*)"$`, testCtx.listEntryResolvesWithStreams)
	ctx.Step(`^"([^"]*)" has already been fetched$`, testCtx.hasAlreadyBeenFetched)
	ctx.Step(`^I run the batch list$`, testCtx.iRunTheBatchList)
	ctx.Step(`^the batch should succeed$`, testCtx.theBatchShouldSucceed)
	ctx.Step(`^the batch should fail with "([^"]*)"$`, testCtx.theBatchShouldFailWith)
	ctx.Step(`^(\d+) downloads? should have been dispatched$`, testCtx.downloadsShouldHaveBeenDispatched)
	ctx.Step(`^no download should have been dispatched for "([^"]*)"$`, testCtx.noDownloadShouldHaveBeenDispatchedFor)
	ctx.Step(`^the batch output should contain "([^"]*)"$`, testCtx.theBatchOutputShouldContain)
}

func (c *batchContext) aBatchListFileContaining(list *godog.DocString) error {
	c.listPath = filepath.Join(c.tempDir, "list.csv")
	return os.WriteFile(c.listPath, []byte(list.Content+"\n"), 0644)
}

func (c *batchContext) listEntryResolvesWithStreams(bvid, videoURL, audioURL string) error {
	c.resolver.infos[bvid] = &media.VideoInfo{
		BVID:  bvid,
		Title: "Listed Video",
		Streams: &media.Descriptor{
			Video: []media.Representation{{BaseURL: videoURL, Bandwidth: 1200000}},
			Audio: []media.Representation{{BaseURL: audioURL, Bandwidth: 190000}},
		},
	}
	return nil
}

func (c *batchContext) hasAlreadyBeenFetched(bvid string) error {
	c.fileChecker.existing[bvid+".mp4"] = true
	return nil
}

func (c *batchContext) iRunTheBatchList() error {
	if c.listPath == "" {
		return fmt.Errorf("no batch list file was prepared")
	}
	entries, err := appbatch.LoadList(c.listPath)
	if err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunBatchWithDependencies(
		context.Background(),
		c.resolver,
		c.dispatcher,
		nil,
		c.fileChecker,
		c.mediaDir,
		"",
		entries,
		false,
		c.output,
	)
	return nil
}

func (c *batchContext) theBatchShouldSucceed() error {
	if c.err != nil {
		return fmt.Errorf("expected batch to succeed but got error: %v\noutput:\n%s", c.err, c.output.String())
	}
	return nil
}

func (c *batchContext) theBatchShouldFailWith(expectedError string) error {
	if c.err == nil {
		return fmt.Errorf("expected batch to fail with %q but it succeeded\noutput:\n%s", expectedError, c.output.String())
	}
	if !strings.Contains(strings.ToLower(c.err.Error()), strings.ToLower(expectedError)) {
		return fmt.Errorf("expected error to contain %q but got: %v", expectedError, c.err)
	}
	return nil
}

func (c *batchContext) downloadsShouldHaveBeenDispatched(count int) error {
	if len(c.dispatcher.requests) != count {
		return fmt.Errorf("expected %d dispatched download(s) but got %d", count, len(c.dispatcher.requests))
	}
	return nil
}

func (c *batchContext) noDownloadShouldHaveBeenDispatchedFor(bvid string) error {
	for _, req := range c.dispatcher.requests {
		if req.Identifier == bvid {
			return fmt.Errorf("expected no download for %s but one was dispatched", bvid)
		}
	}
	return nil
}

func (c *batchContext) theBatchOutputShouldContain(expected string) error {
	if !strings.Contains(c.output.String(), expected) {
		return fmt.Errorf("expected output to contain %q but got:\n%s", expected, c.output.String())
	}
	return nil
}
