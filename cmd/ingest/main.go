// Command ingest drives the archive walker from the command line: backfills,
// single-month fetches, row inspection, and purges for the configured location.
//
// Usage:
//
//	go run ./cmd/ingest -last 6
//	go run ./cmd/ingest -from 2023-01 -to 2023-12
//	go run ./cmd/ingest -month 2024-05
//	go run ./cmd/ingest -all
//	go run ./cmd/ingest -tail 10
//	go run ./cmd/ingest -purge -yes
//	go run ./cmd/ingest -probe
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/prairiewx/climate-ingest/internal/adapter/climate"
	"github.com/prairiewx/climate-ingest/internal/adapter/postgres"
	"github.com/prairiewx/climate-ingest/internal/config"
	"github.com/prairiewx/climate-ingest/internal/domain"
	"github.com/prairiewx/climate-ingest/internal/observability"
	"github.com/prairiewx/climate-ingest/internal/scraper"
)

type cliOptions struct {
	last   int
	from   string
	to     string
	month  string
	all    bool
	start  string
	dryRun bool
	tail   int
	purge  bool
	yes    bool
	probe  bool
}

func main() {
	var opts cliOptions
	flag.IntVar(&opts.last, "last", 0, "fetch the last N months and save them")
	flag.StringVar(&opts.from, "from", "", "range bound (YYYY-MM), used with -to")
	flag.StringVar(&opts.to, "to", "", "range bound (YYYY-MM), used with -from")
	flag.StringVar(&opts.month, "month", "", "fetch a single month (YYYY-MM)")
	flag.BoolVar(&opts.all, "all", false, "fetch the full history, walking backwards until the archive runs out")
	flag.StringVar(&opts.start, "start", "", "walk start date (YYYY-MM-DD), defaults to today")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "fetch and parse but skip the database save")
	flag.IntVar(&opts.tail, "tail", 0, "print the newest N stored rows and exit")
	flag.BoolVar(&opts.purge, "purge", false, "delete every stored row for the configured location")
	flag.BoolVar(&opts.yes, "yes", false, "skip the purge confirmation prompt")
	flag.BoolVar(&opts.probe, "probe", false, "fetch the archive landing page and print its title")
	flag.Parse()

	modes := 0
	if opts.last > 0 {
		modes++
	}
	if opts.from != "" || opts.to != "" {
		modes++
	}
	if opts.month != "" {
		modes++
	}
	if opts.all {
		modes++
	}
	if opts.tail > 0 {
		modes++
	}
	if opts.purge {
		modes++
	}
	if opts.probe {
		modes++
	}
	if modes != 1 {
		fmt.Fprintln(os.Stderr, "pick exactly one of -last, -from/-to, -month, -all, -tail, -purge, -probe")
		flag.Usage()
		os.Exit(2)
	}

	if code := run(opts); code != 0 {
		os.Exit(code)
	}
}

func run(opts cliOptions) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	logger := observability.NewLogger(cfg).With("run_id", uuid.NewString())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := climate.NewClient(cfg, logger)

	switch {
	case opts.probe:
		return runProbe(ctx, client)
	case opts.tail > 0:
		store, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			return 1
		}
		defer store.Close()
		return runTail(ctx, store, cfg.Location, opts.tail)
	case opts.purge:
		store, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open database: %v\n", err)
			return 1
		}
		defer store.Close()
		return runPurge(ctx, store, cfg.Location, opts.yes)
	}

	return runFetch(ctx, cfg, logger, client, opts)
}

// --- Fetch modes ---

func runFetch(ctx context.Context, cfg *config.Config, logger *slog.Logger, client *climate.Client, opts cliOptions) int {
	start, err := parseStart(opts.start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -start: %v\n", err)
		return 2
	}

	metrics := observability.NewMetrics()
	walker := scraper.New(client, logger, metrics, cfg.ScrapePause, cfg.TransientRetries)

	months := 0
	walker.OnProgress(func(msg string) {
		months++
		fmt.Println(msg)
	})

	set, walkErr := collect(ctx, walker, opts, start)
	if walkErr != nil && len(set) == 0 {
		fmt.Fprintf(os.Stderr, "fetch failed: %v\n", walkErr)
		return 1
	}
	if walkErr != nil {
		fmt.Fprintf(os.Stderr, "walk stopped early: %v\n", walkErr)
	}

	fmt.Printf("Walked %d months, fetched %d days (%d with measurements).\n", months, len(set), set.MeasuredCount())

	if opts.dryRun {
		fmt.Println("Dry run, nothing saved.")
		return exitCode(walkErr)
	}

	store, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		return 1
	}
	defer store.Close()

	inserted, err := store.Save(ctx, cfg.Location, set)
	if err != nil {
		fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
		return 1
	}

	fmt.Printf("Inserted %d rows for %s.\n", inserted, cfg.Location)
	return exitCode(walkErr)
}

// collect dispatches to the walk matching the selected mode.
func collect(ctx context.Context, walker *scraper.Scraper, opts cliOptions, start time.Time) (domain.ObservationSet, error) {
	switch {
	case opts.last > 0:
		return walker.ScrapeLastMonths(ctx, opts.last, start)

	case opts.month != "":
		m, err := domain.ParseYearMonth(opts.month)
		if err != nil {
			return nil, err
		}
		return walker.ScrapeRange(ctx, m, m)

	case opts.from != "" || opts.to != "":
		if opts.from == "" || opts.to == "" {
			return nil, fmt.Errorf("both -from and -to are required for a range fetch")
		}
		from, err := domain.ParseYearMonth(opts.from)
		if err != nil {
			return nil, err
		}
		to, err := domain.ParseYearMonth(opts.to)
		if err != nil {
			return nil, err
		}
		return walker.ScrapeRange(ctx, from, to)

	default: // -all
		return walker.ScrapeBackwards(ctx, start)
	}
}

func parseStart(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func exitCode(walkErr error) int {
	if walkErr != nil {
		return 1
	}
	return 0
}

// --- Inspection and maintenance modes ---

func runTail(ctx context.Context, store *postgres.Store, location string, n int) int {
	rows, err := store.FetchRange(ctx, location, 1900, 9999)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch rows: %v\n", err)
		return 1
	}
	if len(rows) == 0 {
		fmt.Println("No rows stored yet.")
		return 0
	}

	if n < len(rows) {
		rows = rows[len(rows)-n:]
	}
	fmt.Printf("Newest %d rows (date, min, max, avg):\n", len(rows))
	for _, r := range rows {
		fmt.Printf("  %s  %s  %s  %s\n", r.Date, fmtTemp(r.Min), fmtTemp(r.Max), fmtTemp(r.Mean))
	}
	return 0
}

func runPurge(ctx context.Context, store *postgres.Store, location string, yes bool) int {
	if !yes {
		fmt.Printf("Type 'YES' to delete all rows for %s: ", location)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil || strings.TrimSpace(line) != "YES" {
			fmt.Println("Cancelled.")
			return 0
		}
	}

	deleted, err := store.DeleteLocation(ctx, location)
	if err != nil {
		fmt.Fprintf(os.Stderr, "purge failed: %v\n", err)
		return 1
	}
	fmt.Printf("Purged %d rows for %s.\n", deleted, location)
	return 0
}

func runProbe(ctx context.Context, client *climate.Client) int {
	title, err := client.Probe(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "probe failed: %v\n", err)
		return 1
	}
	fmt.Printf("Archive reachable: %s\n", title)
	return 0
}

func fmtTemp(v *float64) string {
	if v == nil {
		return "   NA"
	}
	return fmt.Sprintf("%5.1f", *v)
}
