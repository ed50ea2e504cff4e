// Package batch runs fetches for a whole list of videos, one after
// another. A failed entry is recorded and the run moves on to the next
// line.
package batch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"bili-archive/application/fetch"
	"bili-archive/domain/media"
)

// Fetcher is the slice of the fetch service a batch run needs
type Fetcher interface {
	Fetch(ctx context.Context, input fetch.Input) (*fetch.Result, error)
}

// Service drives sequential fetches over a parsed batch list
type Service struct {
	fetcher     Fetcher
	fileChecker media.FileChecker
	mediaDir    string
	output      io.Writer
}

// NewService creates a batch service. When fileChecker and mediaDir are
// set, entries whose output file already exists are skipped without
// dispatching anything.
func NewService(fetcher Fetcher, fileChecker media.FileChecker, mediaDir string, output io.Writer) *Service {
	if output == nil {
		output = io.Discard
	}
	return &Service{
		fetcher:     fetcher,
		fileChecker: fileChecker,
		mediaDir:    mediaDir,
		output:      output,
	}
}

// RunInput describes a batch run
type RunInput struct {
	Entries   []Entry
	Selection string
	Verify    bool
}

// ItemResult records the outcome for one list entry
type ItemResult struct {
	Entry Entry
	Path  string
	Err   error
}

// Summary tallies a finished batch run
type Summary struct {
	Saved   []ItemResult
	Skipped []ItemResult
	Failed  []ItemResult
}

// Total returns the number of entries processed
func (s *Summary) Total() int {
	return len(s.Saved) + len(s.Skipped) + len(s.Failed)
}

// Run fetches every entry in order. Entries that fail are recorded in the
// summary and do not stop the run; only context cancellation aborts it.
func (s *Service) Run(ctx context.Context, input RunInput) (*Summary, error) {
	summary := &Summary{}
	total := len(input.Entries)
	start := time.Now()

	for i, entry := range input.Entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		fmt.Fprintf(s.output, "[%d/%d] %s\n", i+1, total, entryLabel(entry))

		bvid, err := media.ParseBVID(entry.ID)
		if err != nil {
			summary.Failed = append(summary.Failed, ItemResult{Entry: entry, Err: err})
			fmt.Fprintf(s.output, "      Failed: %v\n\n", err)
			continue
		}

		if s.alreadyFetched(bvid) {
			path := filepath.Join(s.mediaDir, bvid+".mp4")
			summary.Skipped = append(summary.Skipped, ItemResult{Entry: entry, Path: path})
			fmt.Fprintf(s.output, "      Skipped: already fetched\n\n")
			continue
		}

		result, err := s.fetcher.Fetch(ctx, fetch.Input{
			ID:        bvid,
			Selection: input.Selection,
			Verify:    input.Verify,
		})
		if err != nil {
			summary.Failed = append(summary.Failed, ItemResult{Entry: entry, Err: err})
			fmt.Fprintf(s.output, "      Failed: %v\n\n", err)
			continue
		}

		summary.Saved = append(summary.Saved, ItemResult{Entry: entry, Path: result.OutputPath})
		fmt.Fprintf(s.output, "      Saved: %s\n\n", result.OutputPath)
	}

	fmt.Fprintf(s.output, "Done! %d saved, %d skipped, %d failed in %s\n",
		len(summary.Saved), len(summary.Skipped), len(summary.Failed), formatDuration(time.Since(start)))

	return summary, nil
}

func (s *Service) alreadyFetched(bvid string) bool {
	if s.fileChecker == nil || s.mediaDir == "" {
		return false
	}
	return s.fileChecker.Exists(filepath.Join(s.mediaDir, bvid+".mp4"))
}

func entryLabel(e Entry) string {
	if e.Title != "" {
		return fmt.Sprintf("%s (%s)", e.ID, e.Title)
	}
	return e.ID
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := d / time.Minute
	s := (d % time.Minute) / time.Second
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
