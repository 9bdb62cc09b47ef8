package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/hazyhaar/postal-codes/pkg/api"
	"github.com/hazyhaar/postal-codes/pkg/geo"
	"github.com/hazyhaar/postal-codes/pkg/loader"
	"github.com/jonboulle/clockwork"
)

func cmdDistance(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("distance", flag.ContinueOnError)
	cfgPath := configFlag(fs)
	cc := fs.String("country", "US", "country code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return errors.New("usage: postalcodes distance [-country US] <code1> <code2>")
	}

	a, err := newApp(*cfgPath, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.loader.Load(ctx, *cc)
	if err != nil {
		return err
	}
	var recs [2]geo.Record
	for i, code := range fs.Args() {
		rec, ok := snap.Get(code)
		if !ok {
			return fmt.Errorf("%s %q: %w", snap.Country(), code, api.ErrUnknownCode)
		}
		recs[i] = rec
	}

	m := geo.Distance(recs[0].Point(), recs[1].Point())
	for _, rec := range recs {
		fmt.Fprintln(stdout, describe(rec))
	}
	fmt.Fprintf(stdout, "distance: %.3f km, %.3f miles\n", geo.Kilometers(m), geo.Miles(m))
	return nil
}

func cmdRandom(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("random", flag.ContinueOnError)
	cfgPath := configFlag(fs)
	cc := fs.String("country", "US", "country code")
	seed := fs.String("seed", "", "seed for a reproducible pick (random when empty)")
	asJSON := fs.Bool("json", false, "print the record as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*cfgPath, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.loader.Load(ctx, *cc)
	if err != nil {
		return err
	}
	rec, used, ok := snap.Pick(*seed)
	if !ok {
		return loader.ErrNoData
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Seed   string     `json:"seed"`
			Record geo.Record `json:"record"`
		}{used, rec})
	}
	fmt.Fprintf(stdout, "seed: %s\n%s\n", used, describe(rec))
	return nil
}

func describe(rec geo.Record) string {
	return fmt.Sprintf("%s %s, %s (%.4f, %.4f)",
		rec.PostalCode, rec.PlaceName, rec.AdminName1, rec.Latitude, rec.Longitude)
}

func cmdLoad(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("load", flag.ContinueOnError)
	cfgPath := configFlag(fs)
	cc := fs.String("country", "", "country code (default: every allowed country)")
	force := fs.Bool("force", false, "discard cached data and download again")
	retries := fs.Int("retries", 0, "extra attempts after a failed load")
	backoff := fs.Duration("backoff", time.Second, "delay before the first retry, doubled each time")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*cfgPath, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	countries := a.loader.Registry().Codes()
	if *cc != "" {
		countries = []string{*cc}
	}

	var opts []loader.LoadOption
	if *force {
		opts = append(opts, loader.ForceReload())
	}

	var errs []error
	for _, code := range countries {
		var snap *loader.Snapshot
		err := retry(ctx, clockwork.NewRealClock(), *retries, *backoff, func() error {
			var err error
			snap, err = a.loader.Load(ctx, code, opts...)
			if err != nil {
				a.logger.Warn("load attempt failed", "country", code, "error", err)
			}
			return err
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(stdout, "%s: %d postal codes (file modified %s)\n",
			snap.Country(), snap.Len(), snap.ModTime().Format(time.RFC3339))
	}
	return errors.Join(errs...)
}

// retry calls fn until it succeeds or retries extra attempts have failed,
// sleeping backoff between attempts and doubling it each time. Unknown
// countries are not retried.
func retry(ctx context.Context, clk clockwork.Clock, retries int, backoff time.Duration, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil || errors.Is(err, loader.ErrUnknownCountry) || attempt >= retries {
			return err
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-clk.After(backoff):
		}
		backoff *= 2
	}
}
