package loader

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/postal-codes/pkg/observability"
	"github.com/jonboulle/clockwork"
)

// Fetcher downloads an archive. *archive.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) ([]byte, error)
}

// Option configures a Loader.
type Option func(*Loader)

// WithFetcher replaces the archive downloader.
func WithFetcher(f Fetcher) Option {
	return func(l *Loader) { l.fetcher = f }
}

// WithClock sets the time source used for staleness and file times.
func WithClock(c clockwork.Clock) Option {
	return func(l *Loader) { l.clock = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithMetrics records pipeline metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// WithCache shares a cache between loaders.
func WithCache(c *Cache) Option {
	return func(l *Loader) { l.cache = c }
}

// LoadOption adjusts a single Load call.
type LoadOption func(*loadOptions)

type loadOptions struct {
	force        bool
	maxAge       time.Duration
	fetchTimeout time.Duration
	loadTimeout  time.Duration
}

// ForceReload discards the cached snapshot before loading.
func ForceReload() LoadOption {
	return func(o *loadOptions) { o.force = true }
}

// MaxAge overrides how old the local file may be. Zero or less always refreshes.
func MaxAge(d time.Duration) LoadOption {
	return func(o *loadOptions) { o.maxAge = d }
}

// FetchTimeout overrides the download timeout. Zero or less means none.
func FetchTimeout(d time.Duration) LoadOption {
	return func(o *loadOptions) { o.fetchTimeout = d }
}

// LoadTimeout overrides the deadline for the whole call. Zero or less means none.
func LoadTimeout(d time.Duration) LoadOption {
	return func(o *loadOptions) { o.loadTimeout = d }
}
