// Package loader keeps an in-memory snapshot of each country's postal codes,
// refreshing the local data file from its archive when it is stale.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hazyhaar/postal-codes/pkg/archive"
	"github.com/hazyhaar/postal-codes/pkg/country"
	"github.com/hazyhaar/postal-codes/pkg/geo"
	"github.com/hazyhaar/postal-codes/pkg/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrUnknownCountry means the code is not in the registry.
	ErrUnknownCountry = errors.New("unknown country")
	// ErrUnavailable wraps every failure to produce a snapshot.
	ErrUnavailable = errors.New("unable to load data")
	// ErrNoData means the pipeline ran but produced no records.
	ErrNoData = errors.New("no postal code records")
)

// Config holds loader defaults. Per-call LoadOptions override the durations.
type Config struct {
	DataDir      string
	MaxAge       time.Duration
	FetchTimeout time.Duration
	// LoadTimeout bounds a whole Load call, download included. Zero means none.
	LoadTimeout time.Duration
}

// Loader resolves a country code to a Snapshot. It is safe for concurrent use.
type Loader struct {
	cfg     Config
	reg     *country.Registry
	fetcher Fetcher
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
	cache   *Cache

	group singleflight.Group
	locks sync.Map // country -> *sync.Mutex
}

// New creates a Loader for the countries in reg.
func New(cfg Config, reg *country.Registry, opts ...Option) *Loader {
	l := &Loader{
		cfg:   cfg,
		reg:   reg,
		clock: clockwork.NewRealClock(),
		cache: NewCache(),
	}
	for _, o := range opts {
		o(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.fetcher == nil {
		l.fetcher = archive.NewFetcher(nil, l.logger)
	}
	return l
}

// Registry returns the countries this loader serves.
func (l *Loader) Registry() *country.Registry { return l.reg }

// Cache returns the loader's snapshot cache.
func (l *Loader) Cache() *Cache { return l.cache }

// Cached returns the current snapshot without any I/O.
func (l *Loader) Cached(code string) (*Snapshot, bool) {
	return l.cache.Get(geo.NormalizeCode(code))
}

// Load returns the snapshot for code, refreshing the local file from its
// archive when it is older than the max age.
//
// Concurrent calls for the same country share one in-flight load. The flight
// keeps the values of the call that started it but not its cancellation, so a
// caller giving up never fails the others. The load timeout bounds both the
// flight and each caller's wait; ctx bounds only the wait.
func (l *Loader) Load(ctx context.Context, code string, opts ...LoadOption) (*Snapshot, error) {
	o := loadOptions{
		maxAge:       l.cfg.MaxAge,
		fetchTimeout: l.cfg.FetchTimeout,
		loadTimeout:  l.cfg.LoadTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.loadTimeout)
		defer cancel()
	}

	code = geo.NormalizeCode(code)
	params, ok := l.reg.Get(code)
	if !ok {
		l.metrics.ObserveLoad(code, "unknown")
		return nil, fmt.Errorf("%q: %w", code, ErrUnknownCountry)
	}
	log := l.logger.With("country", code)

	if o.force {
		log.Info("cache cleared")
		l.cache.Delete(code)
	} else if snap, ok := l.cache.Get(code); ok {
		log.Debug("data was cached")
		l.metrics.ObserveLoad(code, "hit")
		return snap, nil
	}

	key := code
	if o.force {
		key += "/force"
	}
	flight := context.WithoutCancel(ctx)
	ch := l.group.DoChan(key, func() (any, error) {
		fctx := flight
		if o.loadTimeout > 0 {
			var cancel context.CancelFunc
			fctx, cancel = context.WithTimeout(fctx, o.loadTimeout)
			defer cancel()
		}
		return l.load(fctx, code, params, o, log)
	})

	select {
	case <-ctx.Done():
		l.metrics.ObserveLoad(code, "error")
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, code, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			l.metrics.ObserveLoad(code, "error")
			return nil, res.Err
		}
		l.metrics.ObserveLoad(code, "loaded")
		return res.Val.(*Snapshot), nil
	}
}

func (l *Loader) lock(code string) *sync.Mutex {
	mu, _ := l.locks.LoadOrStore(code, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// load runs one pipeline pass. The per-country lock keeps a forced and an
// unforced flight from touching the same file at once.
func (l *Loader) load(ctx context.Context, code string, params country.Params, o loadOptions, log *slog.Logger) (*Snapshot, error) {
	mu := l.lock(code)
	mu.Lock()
	defer mu.Unlock()

	if !o.force {
		if snap, ok := l.cache.Get(code); ok {
			return snap, nil
		}
	}

	path := filepath.Join(l.cfg.DataDir, params.LocalFile)
	age := l.fileAge(path)
	if o.maxAge <= 0 || age > o.maxAge {
		log.Info("local data is stale, refreshing", "path", path, "age", formatAge(age), "max_age", o.maxAge)
		err := l.refresh(ctx, code, params, path, o.fetchTimeout, log)
		l.metrics.ObserveRefresh(code, err)
		if err != nil {
			log.Error("refresh failed", "url", params.SourceURL, "error", err)
			return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, code, err)
		}
	} else {
		log.Debug("reusing local data", "path", path, "age", age)
	}

	snap, err := l.parseFile(code, path, log)
	if err != nil {
		log.Error("parse failed", "path", path, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, code, err)
	}

	l.cache.Put(snap)
	l.metrics.SetRecords(code, snap.Len())
	log.Info("country data loaded", "records", snap.Len())
	return snap, nil
}

// fileAge returns how long ago path was modified, or an infinite age when it
// cannot be read.
func (l *Loader) fileAge(path string) time.Duration {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return time.Duration(math.MaxInt64)
	}
	return l.clock.Since(info.ModTime())
}

func formatAge(d time.Duration) string {
	if d == time.Duration(math.MaxInt64) {
		return "missing"
	}
	return d.String()
}

func (l *Loader) refresh(ctx context.Context, code string, params country.Params, path string, timeout time.Duration, log *slog.Logger) error {
	start := l.clock.Now()
	data, err := l.fetcher.Fetch(ctx, params.SourceURL, timeout)
	l.metrics.ObserveFetch(code, l.clock.Since(start))
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	log.Info("archive downloaded", "bytes", len(data), "elapsed", l.clock.Since(start))

	if _, err := archive.Extract(data, params.ArchiveEntry, path); err != nil {
		if errors.Is(err, archive.ErrEntryNotFound) {
			return fmt.Errorf("%w: %w", ErrNoData, err)
		}
		return err
	}

	now := l.clock.Now()
	if err := os.Chtimes(path, now, now); err != nil {
		return fmt.Errorf("touch %s: %w", path, err)
	}
	return nil
}

func (l *Loader) parseFile(code, path string, log *slog.Logger) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	seq, stats := geo.Parse(f, log)
	records := make(map[string]geo.Record)
	collisions := 0
	for key, rec := range seq {
		if _, dup := records[key]; dup {
			collisions++
		}
		records[key] = rec
	}
	l.metrics.ObserveParse(code, stats.Valid(), stats.Failed)
	if collisions > 0 {
		log.Warn("duplicate postal codes after normalization", "collisions", collisions)
	}
	if stats.Err != nil {
		return nil, fmt.Errorf("read %s: %w", path, stats.Err)
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}
	return newSnapshot(code, records, info.ModTime(), l.clock.Now()), nil
}
