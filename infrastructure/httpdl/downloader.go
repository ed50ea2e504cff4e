package httpdl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"bili-archive/domain/media"
)

// The CDN rejects requests that do not look like they come from the web
// player, so every request carries the player's Referer and User-Agent.
const (
	DefaultReferer   = "https://www.bilibili.com"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/99.0.4844.51 Safari/537.36"
)

// ErrNoURLs is returned when Download is called with an empty URL list
var ErrNoURLs = errors.New("no stream URLs to download")

// Downloader implements media.StreamDownloader over plain HTTP
type Downloader struct {
	client    *http.Client
	referer   string
	userAgent string
}

// DownloaderOption is a functional option for configuring Downloader
type DownloaderOption func(*Downloader)

// WithHTTPClient sets a custom HTTP client (for testing)
func WithHTTPClient(client *http.Client) DownloaderOption {
	return func(d *Downloader) {
		d.client = client
	}
}

// WithReferer sets a custom Referer header
func WithReferer(referer string) DownloaderOption {
	return func(d *Downloader) {
		d.referer = referer
	}
}

// WithUserAgent sets a custom User-Agent header
func WithUserAgent(userAgent string) DownloaderOption {
	return func(d *Downloader) {
		d.userAgent = userAgent
	}
}

// NewDownloader creates a new HTTP stream downloader
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client: &http.Client{
			Timeout: 30 * time.Minute, // Streams can be large
		},
		referer:   DefaultReferer,
		userAgent: DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Download implements media.StreamDownloader. Mirrors are tried in order
// until one succeeds; a cancelled context stops the mirror chain.
func (d *Downloader) Download(ctx context.Context, urls []string, destPath string) (int64, error) {
	if len(urls) == 0 {
		return 0, ErrNoURLs
	}

	var lastErr error
	for _, url := range urls {
		written, err := d.fetchOne(ctx, url, destPath)
		if err == nil {
			return written, nil
		}
		if ctx.Err() != nil {
			return 0, fmt.Errorf("download cancelled: %w", ctx.Err())
		}
		lastErr = err
	}

	return 0, fmt.Errorf("all %d stream URLs failed, last error: %w", len(urls), lastErr)
}

func (d *Downloader) fetchOne(ctx context.Context, url, destPath string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Referer", d.referer)
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", destPath, err)
	}

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		out.Close()
		os.Remove(destPath) // Drop the partial file so mirrors start clean
		return 0, fmt.Errorf("failed to save stream: %w", err)
	}

	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("failed to close %s: %w", destPath, err)
	}

	return written, nil
}

// Ensure Downloader implements media.StreamDownloader
var _ media.StreamDownloader = (*Downloader)(nil)
