package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hazyhaar/postal-codes/pkg/store"
)

func cmdPopulate(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("populate", flag.ContinueOnError)
	cfgPath := configFlag(fs)
	cc := fs.String("country", "", "country code (default: every allowed country)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*cfgPath, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := os.MkdirAll(filepath.Dir(a.cfg.StoreDB), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	st, err := store.Open(a.cfg.StoreDB)
	if err != nil {
		return err
	}
	defer st.Close()

	countries := a.loader.Registry().Codes()
	if *cc != "" {
		countries = []string{*cc}
	}

	var errs []error
	for _, code := range countries {
		snap, err := a.loader.Load(ctx, code)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n, err := st.Populate(ctx, snap)
		if err != nil {
			errs = append(errs, fmt.Errorf("populate %s: %w", snap.Country(), err))
			continue
		}
		a.logger.Info("store populated", "country", snap.Country(), "records", n, "path", a.cfg.StoreDB)
		fmt.Fprintf(stdout, "%s: %d records written under %s\n", snap.Country(), n, store.CodesKey(snap.Country()))
	}
	return errors.Join(errs...)
}
