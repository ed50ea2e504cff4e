package bilibili

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"bili-archive/domain/media"
	"bili-archive/infrastructure/httpdl"
)

// DefaultPageBaseURL is the public watch page host
const DefaultPageBaseURL = "https://www.bilibili.com"

// playinfoPrefix starts the inline script that embeds the playurl payload
// in every watch page
const playinfoPrefix = "window.__playinfo__="

// titleSuffix is appended to every watch page <title>
const titleSuffix = "_哔哩哔哩_bilibili"

// ErrPlayinfoNotFound is returned when the watch page carries no embedded
// stream listing
var ErrPlayinfoNotFound = errors.New("watch page has no __playinfo__ script")

// PageResolver implements media.Resolver by scraping the watch page.
// The page embeds the same playurl payload the API serves, which works for
// some videos the API refuses without a session cookie.
type PageResolver struct {
	baseURL   string
	client    *http.Client
	referer   string
	userAgent string
	sessData  string
}

// PageResolverOption is a functional option for configuring PageResolver
type PageResolverOption func(*PageResolver)

// WithPageBaseURL sets a custom watch page base URL (for testing)
func WithPageBaseURL(baseURL string) PageResolverOption {
	return func(p *PageResolver) {
		p.baseURL = baseURL
	}
}

// WithPageHTTPClient sets a custom HTTP client
func WithPageHTTPClient(client *http.Client) PageResolverOption {
	return func(p *PageResolver) {
		p.client = client
	}
}

// WithPageSessData sets the SESSDATA session cookie
func WithPageSessData(sessData string) PageResolverOption {
	return func(p *PageResolver) {
		p.sessData = sessData
	}
}

// NewPageResolver creates a new watch page resolver
func NewPageResolver(opts ...PageResolverOption) *PageResolver {
	p := &PageResolver{
		baseURL:   DefaultPageBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		referer:   httpdl.DefaultReferer,
		userAgent: httpdl.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Resolve implements media.Resolver. It fetches the watch page and decodes
// the embedded stream listing.
func (p *PageResolver) Resolve(ctx context.Context, bvid string) (*media.VideoInfo, error) {
	pageURL := p.baseURL + "/video/" + bvid + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Referer", p.referer)
	req.Header.Set("User-Agent", p.userAgent)
	if p.sessData != "" {
		req.AddCookie(&http.Cookie{Name: "SESSDATA", Value: p.sessData})
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch watch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, pageURL)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse watch page: %w", err)
	}

	payload := findPlayinfo(doc)
	if payload == "" {
		return nil, fmt.Errorf("%w: %s", ErrPlayinfoNotFound, pageURL)
	}

	streams, err := media.ParseDescriptor([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode embedded stream listing: %w", err)
	}

	return &media.VideoInfo{
		BVID:     bvid,
		Title:    pageTitle(doc),
		Owner:    doc.Find(`meta[name="author"]`).AttrOr("content", ""),
		Duration: streams.Duration,
		Streams:  streams,
	}, nil
}

// findPlayinfo returns the JSON payload of the __playinfo__ script, or an
// empty string when the page has none
func findPlayinfo(doc *goquery.Document) string {
	var payload string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if strings.HasPrefix(text, playinfoPrefix) {
			payload = strings.TrimPrefix(text, playinfoPrefix)
			return false
		}
		return true
	})
	return payload
}

func pageTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	return strings.TrimSuffix(title, titleSuffix)
}

// Ensure PageResolver implements media.Resolver
var _ media.Resolver = (*PageResolver)(nil)
