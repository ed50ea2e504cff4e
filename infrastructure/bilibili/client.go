package bilibili

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bili-archive/domain/media"
	"bili-archive/infrastructure/httpdl"
)

// DefaultAPIBaseURL is the public web API host
const DefaultAPIBaseURL = "https://api.bilibili.com"

// fnvalDASH asks playurl for the DASH stream listing instead of a single
// muxed file
const fnvalDASH = 16

// APIError is returned when the API answers with a non-zero code
type APIError struct {
	Code     int
	Message  string
	Endpoint string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d from %s: %s", e.Code, e.Endpoint, e.Message)
}

// apiEnvelope is the response wrapper every web API endpoint uses
type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// viewData is the subset of x/web-interface/view consumed here
type viewData struct {
	BVID  string `json:"bvid"`
	CID   int64  `json:"cid"`
	Title string `json:"title"`
	Owner struct {
		Name string `json:"name"`
	} `json:"owner"`
	Duration int `json:"duration"`
}

// playData is the subset of x/player/playurl consumed here
type playData struct {
	Dash *media.Descriptor `json:"dash"`
}

// Client implements media.Resolver against the public web API
type Client struct {
	baseURL   string
	client    *http.Client
	referer   string
	userAgent string
	sessData  string
}

// ClientOption is a functional option for configuring Client
type ClientOption func(*Client)

// WithBaseURL sets a custom API base URL (for testing)
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithSessData sets the SESSDATA session cookie, which unlocks stream
// qualities above 480P
func WithSessData(sessData string) ClientOption {
	return func(c *Client) {
		c.sessData = sessData
	}
}

// WithUserAgent sets a custom User-Agent header
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient creates a new web API client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   DefaultAPIBaseURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		referer:   httpdl.DefaultReferer,
		userAgent: httpdl.DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Resolve implements media.Resolver. It looks up the video's first page
// and fetches its DASH stream listing.
func (c *Client) Resolve(ctx context.Context, bvid string) (*media.VideoInfo, error) {
	view, err := c.view(ctx, bvid)
	if err != nil {
		return nil, err
	}

	streams, err := c.playURL(ctx, bvid, view.CID)
	if err != nil {
		return nil, err
	}

	return &media.VideoInfo{
		BVID:     view.BVID,
		CID:      view.CID,
		Title:    view.Title,
		Owner:    view.Owner.Name,
		Duration: view.Duration,
		Streams:  streams,
	}, nil
}

func (c *Client) view(ctx context.Context, bvid string) (*viewData, error) {
	query := url.Values{}
	query.Set("bvid", bvid)

	var view viewData
	if err := c.get(ctx, "/x/web-interface/view", query, &view); err != nil {
		return nil, fmt.Errorf("failed to look up video %s: %w", bvid, err)
	}
	if view.CID == 0 {
		return nil, fmt.Errorf("video %s has no playable page", bvid)
	}

	return &view, nil
}

func (c *Client) playURL(ctx context.Context, bvid string, cid int64) (*media.Descriptor, error) {
	query := url.Values{}
	query.Set("bvid", bvid)
	query.Set("cid", strconv.FormatInt(cid, 10))
	query.Set("fnval", strconv.Itoa(fnvalDASH))
	query.Set("fourk", "1")

	var play playData
	if err := c.get(ctx, "/x/player/playurl", query, &play); err != nil {
		return nil, fmt.Errorf("failed to fetch streams for %s: %w", bvid, err)
	}
	if play.Dash == nil {
		return nil, fmt.Errorf("no DASH streams for %s: the video may be members-only", bvid)
	}

	return play.Dash, nil
}

// get performs a GET against the API and decodes the envelope's data field
// into out
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Referer", c.referer)
	req.Header.Set("User-Agent", c.userAgent)
	if c.sessData != "" {
		req.AddCookie(&http.Cookie{Name: "SESSDATA", Value: c.sessData})
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	if envelope.Code != 0 {
		return &APIError{Code: envelope.Code, Message: envelope.Message, Endpoint: path}
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode data from %s: %w", path, err)
	}

	return nil
}

// Ensure Client implements media.Resolver
var _ media.Resolver = (*Client)(nil)
