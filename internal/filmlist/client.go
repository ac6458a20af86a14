package filmlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// DefaultURL is the published address of the current full film list.
const DefaultURL = "https://liste.mediathekview.de/Filmliste-akt.xz"

// ErrNotModified signals that the server still serves the list version
// identified by the ETag passed to Fetch.
var ErrNotModified = errors.New("film list not modified")

// Client downloads and decompresses film lists over HTTP.
type Client struct {
	httpClient *http.Client
	url        string
}

// NewClient creates a film list client for url. The timeout bounds the
// whole download, so size it for the full list, not a single request.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
	}
}

// Fetch downloads the film list and returns the decompressed bytes plus
// the ETag the server reported. A non-empty etag turns the download into
// a conditional GET; ErrNotModified is returned when the list is unchanged.
func (c *Client) Fetch(ctx context.Context, etag string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download film list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, etag, ErrNotModified
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download film list: unexpected status %s", resp.Status)
	}

	data, err := readDecompressed(resp.Body, c.url)
	if err != nil {
		return nil, "", err
	}
	return data, resp.Header.Get("ETag"), nil
}

// maxListBytes caps a decompressed film list. Full lists run to a few
// hundred MB; anything past this is a corrupt or hostile payload.
const maxListBytes int64 = 2 << 30

// readDecompressed picks a decoder from the URL suffix (.xz, .gz, .zst
// or plain JSON) and reads the whole list, capped at maxListBytes.
func readDecompressed(r io.Reader, url string) ([]byte, error) {
	dec := r
	switch {
	case strings.HasSuffix(url, ".xz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		dec = xr
	case strings.HasSuffix(url, ".gz"):
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gr.Close()
		dec = gr
	case strings.HasSuffix(url, ".zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		dec = zr
	}

	data, err := io.ReadAll(io.LimitReader(dec, maxListBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read film list: %w", err)
	}
	if int64(len(data)) > maxListBytes {
		return nil, fmt.Errorf("film list larger than %d bytes", maxListBytes)
	}
	return data, nil
}
