package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/hazyhaar/postal-codes/pkg/country"
	"github.com/hazyhaar/postal-codes/pkg/geo"
)

const sourcesUsage = `usage:
  postalcodes sources list
  postalcodes sources set-url <country> <url>
  postalcodes sources check`

func cmdSources(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sources", flag.ContinueOnError)
	cfgPath := configFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New(sourcesUsage)
	}

	a, err := newApp(*cfgPath, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	switch sub := fs.Arg(0); sub {
	case "list":
		return listSources(a.sources, stdout)
	case "set-url":
		if fs.NArg() != 3 {
			return errors.New(sourcesUsage)
		}
		code := geo.NormalizeCode(fs.Arg(1))
		if err := a.sources.SetURL(code, fs.Arg(2)); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s -> %s\n", code, fs.Arg(2))
		return nil
	case "check":
		res := country.NewChecker(a.sources, a.logger, 0).CheckAll(ctx)
		if err := listSources(a.sources, stdout); err != nil {
			return err
		}
		if res.Failed > 0 {
			return fmt.Errorf("%d of %d sources unreachable", res.Failed, res.OK+res.Failed)
		}
		return nil
	default:
		return fmt.Errorf("unknown sources command %q\n%s", sub, sourcesUsage)
	}
}

func listSources(sdb *country.SourceDB, w io.Writer) error {
	sources, err := sdb.ListSources()
	if err != nil {
		return err
	}
	for _, src := range sources {
		status := "never checked"
		if at, ok := src.LastChecked(); ok {
			status = fmt.Sprintf("checked %s", at.UTC().Format(time.RFC3339))
			if src.LastStatus != nil {
				status += fmt.Sprintf(" [%d]", *src.LastStatus)
			}
			if src.LastError != nil {
				status += " " + *src.LastError
			}
		}
		fmt.Fprintf(w, "  %-3s %-55s %s\n", src.Country, src.Params.SourceURL, status)
	}
	return nil
}
