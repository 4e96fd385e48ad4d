// Package fetcher downloads sustainability report PDFs over HTTP and FTP
// and reads the XLSX manifests that drive batch downloads.
package fetcher

import (
	"context"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Fetcher downloads one remote report to a local file.
type Fetcher interface {
	// Fetch downloads url to dest. Returns bytes written.
	Fetch(ctx context.Context, url string, dest string) (int64, error)
}

// Options configures the fetch client.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	RatePerSec float64
}

// Client routes fetches to the HTTP or FTP fetcher by URL scheme.
type Client struct {
	http *HTTPFetcher
	ftp  *FTPFetcher
}

// NewClient creates a Client with shared rate limiting for HTTP hosts.
func NewClient(opts Options) *Client {
	return &Client{
		http: NewHTTPFetcher(HTTPOptions{
			UserAgent:  opts.UserAgent,
			Timeout:    opts.Timeout,
			RatePerSec: opts.RatePerSec,
		}),
		ftp: NewFTPFetcher(FTPOptions{Timeout: opts.Timeout}),
	}
}

// Fetch downloads rawURL to dest.
func (c *Client) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: parse url %s", rawURL)
	}
	switch u.Scheme {
	case "http", "https":
		return c.http.Fetch(ctx, rawURL, dest)
	case "ftp":
		return c.ftp.Fetch(ctx, rawURL, dest)
	default:
		return 0, eris.Errorf("fetcher: unsupported scheme %q", u.Scheme)
	}
}
