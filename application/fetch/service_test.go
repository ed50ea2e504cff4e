package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bili-archive/domain/inspect"
	"bili-archive/domain/media"
	"bili-archive/infrastructure/config"
)

// mockResolver implements media.Resolver for testing
type mockResolver struct {
	info  *media.VideoInfo
	err   error
	calls []string
}

func (m *mockResolver) Resolve(ctx context.Context, bvid string) (*media.VideoInfo, error) {
	m.calls = append(m.calls, bvid)
	if m.err != nil {
		return nil, m.err
	}
	return m.info, nil
}

// mockDispatcher implements media.Dispatcher for testing
type mockDispatcher struct {
	path  string
	err   error
	calls []*media.FetchRequest
}

func (m *mockDispatcher) Fetch(ctx context.Context, req *media.FetchRequest) (string, error) {
	m.calls = append(m.calls, req)
	if m.err != nil {
		return "", m.err
	}
	return m.path, nil
}

// mockInspector implements inspect.Inspector for testing
type mockInspector struct {
	report inspect.Report
	err    error
	calls  []string
}

func (m *mockInspector) Inspect(ctx context.Context, path string) (inspect.Report, error) {
	m.calls = append(m.calls, path)
	if m.err != nil {
		return inspect.Report{}, m.err
	}
	return m.report, nil
}

func (m *mockInspector) Close() {}

func testInfo() *media.VideoInfo {
	return &media.VideoInfo{
		BVID:     "BV1xz421B7ku",
		CID:      1403519086,
		Title:    "【4K】Relaxing Scenery",
		Owner:    "某某UP主",
		Duration: 213,
		Streams: &media.Descriptor{
			Video: []media.Representation{
				{ID: 80, BaseURL: "https://a/v.m4s", Bandwidth: 2_000_000},
				{ID: 116, BaseURL: "https://a/v-hi.m4s", Bandwidth: 3_500_000},
			},
			Audio: []media.Representation{
				{ID: 30232, BaseURL: "https://a/a.m4s", Bandwidth: 132_000},
				{ID: 30280, BaseURL: "https://a/a-hi.m4s", Bandwidth: 192_000},
			},
		},
	}
}

func TestService_Fetch(t *testing.T) {
	resolver := &mockResolver{info: testInfo()}
	dispatcher := &mockDispatcher{path: "/media/BV1xz421B7ku.mp4"}
	service := NewService(resolver, dispatcher, nil, "")

	result, err := service.Fetch(context.Background(), Input{ID: "BV1xz421B7ku"})
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}

	if len(resolver.calls) != 1 || resolver.calls[0] != "BV1xz421B7ku" {
		t.Errorf("resolver calls = %v, want one call with BV1xz421B7ku", resolver.calls)
	}
	if len(dispatcher.calls) != 1 {
		t.Fatalf("dispatcher called %d times, want exactly 1", len(dispatcher.calls))
	}

	req := dispatcher.calls[0]
	if req.VideoURL != "https://a/v.m4s" {
		t.Errorf("dispatched VideoURL = %q, want first listed video stream", req.VideoURL)
	}
	if req.AudioURL != "https://a/a.m4s" {
		t.Errorf("dispatched AudioURL = %q, want first listed audio stream", req.AudioURL)
	}
	if req.Identifier != "BV1xz421B7ku" {
		t.Errorf("dispatched Identifier = %q, want BV1xz421B7ku", req.Identifier)
	}

	if result.OutputPath != "/media/BV1xz421B7ku.mp4" {
		t.Errorf("OutputPath = %q, want dispatcher's path", result.OutputPath)
	}
	if result.BVID != "BV1xz421B7ku" {
		t.Errorf("BVID = %q, want BV1xz421B7ku", result.BVID)
	}
	if result.Title != "【4K】Relaxing Scenery" {
		t.Errorf("Title = %q, want resolved title", result.Title)
	}
	if result.Owner != "某某UP主" {
		t.Errorf("Owner = %q, want resolved owner", result.Owner)
	}
	if result.Report != nil {
		t.Error("Report should be nil when verification was not requested")
	}
}

func TestService_Fetch_ReportsDispatcherPathUnchanged(t *testing.T) {
	dispatcher := &mockDispatcher{path: "/tmp/out.mp4"}
	service := NewService(&mockResolver{info: testInfo()}, dispatcher, nil, "")

	result, err := service.Fetch(context.Background(), Input{ID: "BV1xz421B7ku"})
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}

	if result.OutputPath != "/tmp/out.mp4" {
		t.Errorf("OutputPath = %q, want /tmp/out.mp4 passed through verbatim", result.OutputPath)
	}
}

func TestService_Fetch_AcceptsWatchPageURL(t *testing.T) {
	resolver := &mockResolver{info: testInfo()}
	service := NewService(resolver, &mockDispatcher{path: "/media/out.mp4"}, nil, "")

	_, err := service.Fetch(context.Background(), Input{
		ID: "https://www.bilibili.com/video/BV1xz421B7ku?p=1",
	})
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}

	if len(resolver.calls) != 1 || resolver.calls[0] != "BV1xz421B7ku" {
		t.Errorf("resolver calls = %v, want the id extracted from the URL", resolver.calls)
	}
}

func TestService_Fetch_BestSelection(t *testing.T) {
	dispatcher := &mockDispatcher{path: "/media/out.mp4"}
	service := NewService(&mockResolver{info: testInfo()}, dispatcher, nil, "")

	_, err := service.Fetch(context.Background(), Input{
		ID:        "BV1xz421B7ku",
		Selection: config.SelectionBest,
	})
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}

	req := dispatcher.calls[0]
	if req.VideoURL != "https://a/v-hi.m4s" {
		t.Errorf("dispatched VideoURL = %q, want highest bandwidth video", req.VideoURL)
	}
	if req.AudioURL != "https://a/a-hi.m4s" {
		t.Errorf("dispatched AudioURL = %q, want highest bandwidth audio", req.AudioURL)
	}
}

func TestService_Fetch_ServiceDefaultSelection(t *testing.T) {
	dispatcher := &mockDispatcher{path: "/media/out.mp4"}
	service := NewService(&mockResolver{info: testInfo()}, dispatcher, nil, config.SelectionBest)

	_, err := service.Fetch(context.Background(), Input{ID: "BV1xz421B7ku"})
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}

	if got := dispatcher.calls[0].VideoURL; got != "https://a/v-hi.m4s" {
		t.Errorf("dispatched VideoURL = %q, want service-wide best selection applied", got)
	}
}

func TestService_Fetch_InvalidID(t *testing.T) {
	resolver := &mockResolver{info: testInfo()}
	dispatcher := &mockDispatcher{path: "/media/out.mp4"}
	service := NewService(resolver, dispatcher, nil, "")

	_, err := service.Fetch(context.Background(), Input{ID: "not-a-video"})

	if !errors.Is(err, media.ErrBadBVID) {
		t.Errorf("Fetch() error = %v, want ErrBadBVID", err)
	}
	if len(resolver.calls) != 0 {
		t.Errorf("resolver called %d times for invalid id, want 0", len(resolver.calls))
	}
	if len(dispatcher.calls) != 0 {
		t.Errorf("dispatcher called %d times for invalid id, want 0", len(dispatcher.calls))
	}
}

func TestService_Fetch_EmptyID(t *testing.T) {
	dispatcher := &mockDispatcher{path: "/media/out.mp4"}
	service := NewService(&mockResolver{info: testInfo()}, dispatcher, nil, "")

	_, err := service.Fetch(context.Background(), Input{ID: "  "})

	if !errors.Is(err, media.ErrNoIdentifier) {
		t.Errorf("Fetch() error = %v, want ErrNoIdentifier", err)
	}
	if len(dispatcher.calls) != 0 {
		t.Errorf("dispatcher called %d times for empty id, want 0", len(dispatcher.calls))
	}
}

func TestService_Fetch_ResolveError(t *testing.T) {
	resolveErr := errors.New("api returned code -404")
	dispatcher := &mockDispatcher{path: "/media/out.mp4"}
	service := NewService(&mockResolver{err: resolveErr}, dispatcher, nil, "")

	_, err := service.Fetch(context.Background(), Input{ID: "BV1xz421B7ku"})

	if !errors.Is(err, resolveErr) {
		t.Errorf("Fetch() error = %v, want wrapped resolve error", err)
	}
	if !strings.Contains(err.Error(), "failed to resolve BV1xz421B7ku") {
		t.Errorf("Fetch() error = %v, want it to name the video", err)
	}
	if len(dispatcher.calls) != 0 {
		t.Errorf("dispatcher called %d times after resolve failure, want 0", len(dispatcher.calls))
	}
}

func TestService_Fetch_DescriptorWithoutAudio(t *testing.T) {
	info := testInfo()
	info.Streams.Audio = nil
	dispatcher := &mockDispatcher{path: "/media/out.mp4"}
	service := NewService(&mockResolver{info: info}, dispatcher, nil, "")

	_, err := service.Fetch(context.Background(), Input{ID: "BV1xz421B7ku"})

	if !errors.Is(err, media.ErrNoAudioStream) {
		t.Errorf("Fetch() error = %v, want ErrNoAudioStream", err)
	}
	if len(dispatcher.calls) != 0 {
		t.Errorf("dispatcher called %d times for incomplete descriptor, want 0", len(dispatcher.calls))
	}
}

func TestService_Fetch_DispatcherError(t *testing.T) {
	dispatchErr := errors.New("helper process failed: exit status 1")
	service := NewService(&mockResolver{info: testInfo()}, &mockDispatcher{err: dispatchErr}, nil, "")

	_, err := service.Fetch(context.Background(), Input{ID: "BV1xz421B7ku"})

	if !errors.Is(err, dispatchErr) {
		t.Errorf("Fetch() error = %v, want wrapped dispatch error", err)
	}
	if !strings.Contains(err.Error(), "fetch of BV1xz421B7ku failed") {
		t.Errorf("Fetch() error = %v, want it to name the video", err)
	}
}

func TestService_Fetch_Verify(t *testing.T) {
	inspector := &mockInspector{
		report: inspect.Report{
			Width:         1920,
			Height:        1080,
			FPS:           29.97,
			SampledFrames: 5,
			DecodedFrames: 5,
		},
	}
	dispatcher := &mockDispatcher{path: "/media/BV1xz421B7ku.mp4"}
	service := NewService(&mockResolver{info: testInfo()}, dispatcher, inspector, "")

	result, err := service.Fetch(context.Background(), Input{ID: "BV1xz421B7ku", Verify: true})
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}

	if len(inspector.calls) != 1 || inspector.calls[0] != "/media/BV1xz421B7ku.mp4" {
		t.Errorf("inspector calls = %v, want one call with the output path", inspector.calls)
	}
	if result.Report == nil {
		t.Fatal("Report should be set when verification ran")
	}
	if result.Report.Width != 1920 || result.Report.Height != 1080 {
		t.Errorf("Report dimensions = %dx%d, want 1920x1080", result.Report.Width, result.Report.Height)
	}
}

func TestService_Fetch_VerifyUnplayable(t *testing.T) {
	inspector := &mockInspector{
		report: inspect.Report{Width: 1920, Height: 1080, SampledFrames: 5, DecodedFrames: 0},
	}
	service := NewService(&mockResolver{info: testInfo()}, &mockDispatcher{path: "/media/out.mp4"}, inspector, "")

	_, err := service.Fetch(context.Background(), Input{ID: "BV1xz421B7ku", Verify: true})

	if !errors.Is(err, ErrNotPlayable) {
		t.Errorf("Fetch() error = %v, want ErrNotPlayable", err)
	}
}

func TestService_Fetch_VerifyWithoutInspector(t *testing.T) {
	service := NewService(&mockResolver{info: testInfo()}, &mockDispatcher{path: "/media/out.mp4"}, nil, "")

	_, err := service.Fetch(context.Background(), Input{ID: "BV1xz421B7ku", Verify: true})

	if !errors.Is(err, ErrNoInspector) {
		t.Errorf("Fetch() error = %v, want ErrNoInspector", err)
	}
}

func TestService_Fetch_NoVerifySkipsInspector(t *testing.T) {
	inspector := &mockInspector{report: inspect.Report{Width: 1920, Height: 1080, DecodedFrames: 5}}
	service := NewService(&mockResolver{info: testInfo()}, &mockDispatcher{path: "/media/out.mp4"}, inspector, "")

	result, err := service.Fetch(context.Background(), Input{ID: "BV1xz421B7ku"})
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}

	if len(inspector.calls) != 0 {
		t.Errorf("inspector called %d times without verify, want 0", len(inspector.calls))
	}
	if result.Report != nil {
		t.Error("Report should be nil without verify")
	}
}

func TestService_Resolve(t *testing.T) {
	resolver := &mockResolver{info: testInfo()}
	service := NewService(resolver, &mockDispatcher{}, nil, "")

	info, err := service.Resolve(context.Background(), "https://www.bilibili.com/video/BV1xz421B7ku")
	if err != nil {
		t.Fatalf("Resolve() unexpected error: %v", err)
	}

	if info.Title != "【4K】Relaxing Scenery" {
		t.Errorf("Resolve() Title = %q, want resolved title", info.Title)
	}
	if len(resolver.calls) != 1 || resolver.calls[0] != "BV1xz421B7ku" {
		t.Errorf("resolver calls = %v, want one call with BV1xz421B7ku", resolver.calls)
	}
}

func TestService_Resolve_InvalidID(t *testing.T) {
	resolver := &mockResolver{info: testInfo()}
	service := NewService(resolver, &mockDispatcher{}, nil, "")

	_, err := service.Resolve(context.Background(), "BV123")

	if !errors.Is(err, media.ErrBadBVID) {
		t.Errorf("Resolve() error = %v, want ErrBadBVID", err)
	}
	if len(resolver.calls) != 0 {
		t.Errorf("resolver called %d times for invalid id, want 0", len(resolver.calls))
	}
}
