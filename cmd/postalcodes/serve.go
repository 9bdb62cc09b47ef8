package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/postal-codes/pkg/api"
	"github.com/hazyhaar/postal-codes/pkg/country"
	"github.com/hazyhaar/postal-codes/pkg/loader"
	"github.com/hazyhaar/postal-codes/pkg/observability"
	"github.com/mark3labs/mcp-go/server"
)

const version = "0.1.0"

func cmdServe(ctx context.Context, args []string, _ io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cfgPath := configFlag(fs)
	warm := fs.Bool("warm", false, "load every country before listening")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*cfgPath, observability.NewMetrics())
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	if *warm {
		for _, code := range a.loader.Registry().Codes() {
			if _, err := a.loader.Load(ctx, code); err != nil {
				logger.Warn("warm-up failed", "country", code, "error", err)
			}
		}
	}

	if a.cfg.CheckInterval > 0 {
		checker := country.NewChecker(a.sources, logger, a.cfg.CheckInterval)
		go checker.Start(ctx)
	}

	srv := &http.Server{
		Addr:    a.cfg.Addr,
		Handler: api.NewRouter(a.loader, logger),
	}

	// SIGHUP: force-reload every cached country.
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sighup:
				logger.Info("SIGHUP received, reloading cached countries")
				reloadCached(ctx, a.loader, logger)
			}
		}
	}()

	errc := make(chan error, 1)
	go func() {
		logger.Info("postal codes listening", "addr", a.cfg.Addr, "countries", a.loader.Registry().String())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// reloadCached force-reloads the countries currently cached. A country whose
// reload fails is left uncached until the next request.
func reloadCached(ctx context.Context, l *loader.Loader, logger *slog.Logger) {
	countries := l.Cache().Countries()
	failed := 0
	for _, code := range countries {
		if _, err := l.Load(ctx, code, loader.ForceReload()); err != nil {
			failed++
		}
	}
	logger.Info("reload complete", "countries", len(countries), "failed", failed)
}

func cmdMCP(ctx context.Context, args []string, _ io.Writer) error {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	cfgPath := configFlag(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*cfgPath, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.NewMCPServer("postal-codes", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(srv, a.loader, a.logger)

	a.logger.Info("serving MCP on stdio", "countries", a.loader.Registry().String())
	stdio := server.NewStdioServer(srv)
	stdio.SetErrorLogger(slog.NewLogLogger(a.logger.Handler(), slog.LevelError))
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
