// SPDX-License-Identifier: MPL-2.0

package rootfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// DownloadTimeout bounds a whole rootfs download.
const DownloadTimeout = 10 * time.Minute

type (
	// Downloader streams the resource at rawURL into w.
	Downloader interface {
		Download(ctx context.Context, rawURL string, w io.Writer) error
	}

	// HTTPDownloader fetches http, https and file URLs.
	HTTPDownloader struct {
		client    *http.Client
		userAgent string
	}

	// DownloaderOption configures an HTTPDownloader.
	DownloaderOption func(*HTTPDownloader)

	// StatusError is returned for non-200 responses.
	StatusError struct {
		StatusCode int
		Status     string
	}
)

// compile-time interface check
var _ Downloader = (*HTTPDownloader)(nil)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.userAgent = ua
	}
}

// NewHTTPDownloader creates a downloader whose client gives up after
// DownloadTimeout.
func NewHTTPDownloader(opts ...DownloaderOption) *HTTPDownloader {
	d := &HTTPDownloader{
		client:    &http.Client{Timeout: DownloadTimeout},
		userAgent: "thresh",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download implements Downloader.
func (d *HTTPDownloader) Download(ctx context.Context, rawURL string, w io.Writer) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}

	switch u.Scheme {
	case "file":
		return copyLocal(u.Path, w)
	case "http", "https":
	default:
		return fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only HTTP response body

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return nil
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s", e.Status)
}

func copyLocal(path string, w io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }() // read-only file handle

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy %s: %w", path, err)
	}
	return nil
}
