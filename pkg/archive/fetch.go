// Package archive downloads postal code archives and extracts a single entry
// from them.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// MaxArchiveBytes caps the size of a downloaded archive.
const MaxArchiveBytes = 512 << 20

// ErrTooLarge is returned when a response body exceeds the fetcher's limit.
var ErrTooLarge = errors.New("archive exceeds size limit")

// Fetcher performs single-attempt archive downloads. Retries are left to the
// caller.
type Fetcher struct {
	client   *http.Client
	logger   *slog.Logger
	maxBytes int64
}

// NewFetcher returns a Fetcher. A nil client uses http.DefaultClient and a nil
// logger uses slog.Default().
func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, logger: logger, maxBytes: MaxArchiveBytes}
}

// WithLimit returns a copy of f that rejects bodies larger than n bytes.
func (f *Fetcher) WithLimit(n int64) *Fetcher {
	c := *f
	c.maxBytes = n
	return &c
}

// Fetch GETs url and returns the full response body. A positive timeout bounds
// the whole exchange; zero or negative means no timeout beyond ctx.
func (f *Fetcher) Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: HTTP %d %s", url, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("GET %s: %w (%d bytes)", url, ErrTooLarge, f.maxBytes)
	}

	f.logger.Debug("archive downloaded", "url", url, "bytes", len(data), "elapsed", time.Since(start))
	return data, nil
}
