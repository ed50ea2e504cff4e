// Package fetch turns a video identifier into a saved mp4 file. It
// resolves the stream descriptor, selects a video/audio pair, and hands
// the pair to a dispatcher for retrieval.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"bili-archive/domain/inspect"
	"bili-archive/domain/media"
	"bili-archive/infrastructure/config"
)

var (
	// ErrNoInspector is returned when verification is requested but the
	// service was built without an inspector
	ErrNoInspector = errors.New("no inspector configured")

	// ErrNotPlayable is returned when the finished file fails frame
	// decoding during verification
	ErrNotPlayable = errors.New("output file is not playable")
)

// Service coordinates resolving a video and dispatching its streams for
// retrieval
type Service struct {
	resolver   media.Resolver
	dispatcher media.Dispatcher
	inspector  inspect.Inspector
	selection  string
}

// NewService creates a fetch service. The selection mode decides which
// streams are picked from a descriptor; empty means first-listed.
// The inspector may be nil when verification is never requested.
func NewService(resolver media.Resolver, dispatcher media.Dispatcher, inspector inspect.Inspector, selection string) *Service {
	if selection == "" {
		selection = config.SelectionFirst
	}
	return &Service{
		resolver:   resolver,
		dispatcher: dispatcher,
		inspector:  inspector,
		selection:  selection,
	}
}

// Input describes a single fetch
type Input struct {
	// ID is the video identifier as the user provided it. Anything
	// containing a BV id is accepted, including full watch-page URLs.
	ID string

	// Selection overrides the service-wide stream selection mode for
	// this fetch
	Selection string

	// Verify decodes sample frames from the finished file afterwards
	Verify bool
}

// Result describes a finished fetch
type Result struct {
	BVID       string
	Title      string
	Owner      string
	OutputPath string
	Request    *media.FetchRequest

	// Report is only set when verification ran
	Report *inspect.Report
}

// Fetch resolves the video, builds a stream request, and dispatches it.
// Anything wrong with the input surfaces before the dispatcher is invoked.
func (s *Service) Fetch(ctx context.Context, input Input) (*Result, error) {
	info, err := s.Resolve(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return s.FetchResolved(ctx, info, input)
}

// FetchResolved dispatches streams for a video that has already been
// resolved, skipping the lookup. The input's ID field is ignored.
func (s *Service) FetchResolved(ctx context.Context, info *media.VideoInfo, input Input) (*Result, error) {
	req, err := s.buildRequest(info.Streams, info.BVID, input.Selection)
	if err != nil {
		return nil, err
	}

	path, err := s.dispatcher.Fetch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("fetch of %s failed: %w", info.BVID, err)
	}

	result := &Result{
		BVID:       info.BVID,
		Title:      info.Title,
		Owner:      info.Owner,
		OutputPath: path,
		Request:    req,
	}

	if input.Verify {
		report, err := s.verify(ctx, path)
		if err != nil {
			return nil, err
		}
		result.Report = report
	}

	return result, nil
}

// Resolve looks up a video's metadata and stream listing without fetching
// anything
func (s *Service) Resolve(ctx context.Context, id string) (*media.VideoInfo, error) {
	bvid, err := media.ParseBVID(id)
	if err != nil {
		return nil, err
	}

	info, err := s.resolver.Resolve(ctx, bvid)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", bvid, err)
	}
	if info.BVID == "" {
		info.BVID = bvid
	}
	return info, nil
}

func (s *Service) buildRequest(d *media.Descriptor, bvid, selection string) (*media.FetchRequest, error) {
	if selection == "" {
		selection = s.selection
	}

	if selection == config.SelectionBest {
		return media.NewBestFetchRequest(d, bvid)
	}
	return media.NewFetchRequest(d, bvid)
}

func (s *Service) verify(ctx context.Context, path string) (*inspect.Report, error) {
	if s.inspector == nil {
		return nil, ErrNoInspector
	}

	report, err := s.inspector.Inspect(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("verification of %s failed: %w", path, err)
	}
	if !report.Playable() {
		return nil, fmt.Errorf("%w: %s decoded %d of %d sampled frames",
			ErrNotPlayable, path, report.DecodedFrames, report.SampledFrames)
	}
	return &report, nil
}
