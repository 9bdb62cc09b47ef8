package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hazyhaar/postal-codes/pkg/config"
	"github.com/hazyhaar/postal-codes/pkg/country"
	"github.com/hazyhaar/postal-codes/pkg/loader"
	"github.com/hazyhaar/postal-codes/pkg/observability"
)

var commands = map[string]func(ctx context.Context, args []string, stdout io.Writer) error{
	"serve":    cmdServe,
	"mcp":      cmdMCP,
	"distance": cmdDistance,
	"random":   cmdRandom,
	"load":     cmdLoad,
	"populate": cmdPopulate,
	"sources":  cmdSources,
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, os.Args[2:], os.Stdout); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "postalcodes %s: %v\n", os.Args[1], err)
		}
		stop()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: postalcodes <command> [flags]

Commands:
  serve      Start the HTTP server
  mcp        Serve MCP tools on stdio
  distance   Distance between two postal codes
  random     Pick a postal code, optionally from a seed
  load       Download and parse country data
  populate   Write country data to the key-value store
  sources    List, repoint or check country data sources
`)
}

// app holds what every command needs once config is read.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	sources *country.SourceDB
	loader  *loader.Loader
}

// newApp reads config, opens the source database and builds a loader for the
// allowed countries. The caller must Close it.
func newApp(cfgPath string, metrics *observability.Metrics) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	logger := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if err := os.MkdirAll(filepath.Dir(cfg.SourcesDB), 0o755); err != nil {
		return nil, fmt.Errorf("create sources dir: %w", err)
	}
	sdb, err := country.OpenSourceDB(cfg.SourcesDB)
	if err != nil {
		return nil, err
	}
	if err := sdb.Seed(country.DefaultRegistry()); err != nil {
		sdb.Close()
		return nil, err
	}
	reg, err := sdb.Registry()
	if err != nil {
		sdb.Close()
		return nil, err
	}
	reg = reg.Restrict(cfg.AllowedCountries)
	logger.Debug("countries registered", "countries", reg.String())

	l := loader.New(loader.Config{
		DataDir:      cfg.DataDir,
		MaxAge:       cfg.DownloadMaxAge,
		FetchTimeout: cfg.FetchTimeout,
		LoadTimeout:  cfg.LoadTimeout,
	}, reg,
		loader.WithLogger(logger),
		loader.WithMetrics(metrics),
	)
	return &app{cfg: cfg, logger: logger, sources: sdb, loader: l}, nil
}

func (a *app) Close() error {
	return a.sources.Close()
}

func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", "config.yaml", "path to config file")
}
