// Package fetch retrieves remote dataset archives.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// DownloadError reports a non-success retrieval status. It is fatal:
// the pipeline makes a single attempt per run.
type DownloadError struct {
	URL    string
	Status int
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: HTTP %d", e.URL, e.Status)
}

// Fetcher returns a byte stream for a URL. The caller closes it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// HTTPFetcher fetches over plain HTTP. The zero value uses
// http.DefaultClient; no timeout is imposed, large series archives can
// take minutes on slow links.
type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, &DownloadError{URL: url, Status: resp.StatusCode}
	}
	return resp.Body, nil
}
