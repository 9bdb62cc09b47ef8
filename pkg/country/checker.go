package country

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
)

// Checker sends HEAD to every stored source URL and records availability.
type Checker struct {
	sources  *SourceDB
	logger   *slog.Logger
	interval time.Duration
	client   *http.Client
	clock    clockwork.Clock
}

// NewChecker creates a Checker that verifies source URLs every interval.
func NewChecker(sources *SourceDB, logger *slog.Logger, interval time.Duration) *Checker {
	return &Checker{
		sources:  sources,
		logger:   logger,
		interval: interval,
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		clock: clockwork.NewRealClock(),
	}
}

// WithClock swaps the ticker's time source.
func (c *Checker) WithClock(clk clockwork.Clock) *Checker {
	c.clock = clk
	return c
}

// Start runs an immediate check then repeats every interval until ctx is done.
func (c *Checker) Start(ctx context.Context) {
	c.CheckAll(ctx)

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.CheckAll(ctx)
		}
	}
}

// CheckResult is the outcome of one pass.
type CheckResult struct {
	OK     int
	Failed int
}

// CheckAll checks every source and persists the result.
func (c *Checker) CheckAll(ctx context.Context) CheckResult {
	var res CheckResult
	sources, err := c.sources.ListSources()
	if err != nil {
		c.logger.Error("source check: cannot list sources", "error", err)
		return res
	}

	for _, src := range sources {
		if ctx.Err() != nil {
			return res
		}

		status, checkErr := c.checkOne(ctx, src.Params.SourceURL)
		errMsg := ""
		if checkErr != nil {
			errMsg = checkErr.Error()
		}

		if err := c.sources.UpdateCheck(src.Country, status, errMsg); err != nil {
			c.logger.Error("source check: update failed", "country", src.Country, "error", err)
		}

		if status >= 200 && status < 400 {
			res.OK++
		} else {
			res.Failed++
			c.logger.Warn("source unreachable",
				"country", src.Country,
				"url", src.Params.SourceURL,
				"status", status,
				"error", errMsg,
			)
		}
	}

	c.logger.Info("source check complete", "total", res.OK+res.Failed, "ok", res.OK, "failed", res.Failed)
	return res
}

// checkOne returns the HEAD status code, or 0 on a network error.
func (c *Checker) checkOne(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: %w", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}
