package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prairiewx/climate-ingest/internal/adapter/climate"
	httpadapter "github.com/prairiewx/climate-ingest/internal/adapter/http"
	"github.com/prairiewx/climate-ingest/internal/adapter/postgres"
	"github.com/prairiewx/climate-ingest/internal/config"
	"github.com/prairiewx/climate-ingest/internal/observability"
	"github.com/prairiewx/climate-ingest/internal/scheduler"
	"github.com/prairiewx/climate-ingest/internal/scraper"
)

func main() {
	seedMonths := flag.Int("seed-months", 0, "backfill this many months before the periodic refresh starts (0 skips the seed)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	fetcher := climate.NewClient(cfg, logger)
	walker := scraper.New(fetcher, logger, metrics, cfg.ScrapePause, cfg.TransientRetries)
	refresher := scheduler.New(walker, store, logger, metrics, cfg.Location, cfg.RefreshMonths, cfg.RefreshInterval)

	ready := readiness{refresher: refresher, store: store}
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, refresher, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if *seedMonths > 0 {
		seed(ctx, logger, walker, store, cfg.Location, *seedMonths)
	}

	if err := refresher.Start(); err != nil {
		logger.Error("failed to start refresher", "error", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := store.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// readiness gates /readyz on two conditions: at least one refresh has landed
// and the database still answers.
type readiness struct {
	refresher *scheduler.Refresher
	store     *postgres.Store
}

func (r readiness) CheckReadiness(ctx context.Context) error {
	if err := r.refresher.CheckReadiness(ctx); err != nil {
		return err
	}
	return r.store.CheckReadiness(ctx)
}

// seed runs one deep backfill before the periodic refresh takes over. Partial
// results are saved even when the walk stops early.
func seed(ctx context.Context, logger *slog.Logger, walker *scraper.Scraper, store *postgres.Store, location string, months int) {
	logger.Info("seeding recent history", "months", months)

	set, err := walker.ScrapeLastMonths(ctx, months, time.Time{})
	if len(set) > 0 {
		inserted, saveErr := store.Save(ctx, location, set)
		if saveErr != nil {
			logger.Error("seed save failed", "error", saveErr)
			return
		}
		logger.Info("seed complete", "days", len(set), "inserted", inserted)
	}
	if err != nil {
		logger.Error("seed walk incomplete", "error", err)
	}
}
