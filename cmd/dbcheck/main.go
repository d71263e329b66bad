// Command dbcheck runs integrity checks over the observations stored for the
// configured location: date shape, duplicate days, and temperature sanity.
// It exits non-zero when any check fails, so it can gate deploys and backfills.
//
// Usage:
//
//	go run ./cmd/dbcheck
//	go run ./cmd/dbcheck -from-year 2000 -to-year 2024
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/prairiewx/climate-ingest/internal/adapter/postgres"
	"github.com/prairiewx/climate-ingest/internal/config"
	"github.com/prairiewx/climate-ingest/internal/domain"
	"github.com/prairiewx/climate-ingest/internal/observability"
)

// Coldest and hottest daily temperatures ever recorded in Canada, with margin.
const (
	minPlausible = -65.0
	maxPlausible = 50.0
)

// phase tracks pass/fail for one check.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fromYear := flag.Int("from-year", 1900, "first year to check")
	toYear := flag.Int("to-year", 9999, "last year to check")
	flag.Parse()

	if code := run(*fromYear, *toYear); code != 0 {
		os.Exit(code)
	}
}

func run(fromYear, toYear int) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		return 1
	}
	logger := observability.NewLogger(cfg)

	ctx := context.Background()
	store, err := postgres.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open database: %v\n", err)
		return 1
	}
	defer store.Close()

	rows, err := store.FetchRange(ctx, cfg.Location, fromYear, toYear)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: fetch rows: %v\n", err)
		return 1
	}

	fmt.Printf("=== Stored Observation Integrity: %s ===\n", cfg.Location)
	fmt.Println()

	if len(rows) == 0 {
		fmt.Println("No rows stored in this range. Seed data with cmd/ingest first.")
		return 0
	}

	phases := []*phase{
		checkDates(rows),
		checkDuplicates(rows),
		checkTemperatures(rows),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-38s %s\n", p.name, status)
	}

	printSummary(rows)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nIntegrity check FAILED.")
	return 1
}

// --- Check 1: Date shape ---

func checkDates(rows []domain.StoredObservation) *phase {
	p := &phase{name: "Check 1: Date shape (YYYY-MM-DD)"}
	for _, r := range rows {
		if len(r.Date) != 10 {
			p.errorf("row %d: date %q is not 10 characters", r.ID, r.Date)
			continue
		}
		if _, err := time.Parse("2006-01-02", r.Date); err != nil {
			p.errorf("row %d: date %q does not parse", r.ID, r.Date)
		}
	}
	return p
}

// --- Check 2: Duplicate days ---

func checkDuplicates(rows []domain.StoredObservation) *phase {
	p := &phase{name: "Check 2: Duplicate days"}
	seen := map[string]int64{}
	for _, r := range rows {
		if firstID, ok := seen[r.Date]; ok {
			p.errorf("date %s stored twice (rows %d and %d)", r.Date, firstID, r.ID)
			continue
		}
		seen[r.Date] = r.ID
	}
	return p
}

// --- Check 3: Temperature sanity ---

func checkTemperatures(rows []domain.StoredObservation) *phase {
	p := &phase{name: "Check 3: Temperature sanity"}
	for _, r := range rows {
		for _, t := range []struct {
			name string
			v    *float64
		}{{"min", r.Min}, {"max", r.Max}, {"avg", r.Mean}} {
			if t.v != nil && (*t.v < minPlausible || *t.v > maxPlausible) {
				p.errorf("%s: %s temp %.1f outside plausible range", r.Date, t.name, *t.v)
			}
		}

		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			p.errorf("%s: min %.1f above max %.1f", r.Date, *r.Min, *r.Max)
		}
		// Allow a rounding margin: archive temps are published to one decimal.
		if r.Mean != nil && r.Min != nil && *r.Mean < *r.Min-0.1 {
			p.errorf("%s: avg %.1f below min %.1f", r.Date, *r.Mean, *r.Min)
		}
		if r.Mean != nil && r.Max != nil && *r.Mean > *r.Max+0.1 {
			p.errorf("%s: avg %.1f above max %.1f", r.Date, *r.Mean, *r.Max)
		}
	}
	return p
}

// --- Summary ---

func printSummary(rows []domain.StoredObservation) {
	measured := 0
	perYear := map[int]int{}
	for _, r := range rows {
		if r.Min != nil || r.Max != nil || r.Mean != nil {
			measured++
		}
		if len(r.Date) >= 4 {
			if y, err := strconv.Atoi(r.Date[:4]); err == nil {
				perYear[y]++
			}
		}
	}

	first, last := rows[0].Date, rows[len(rows)-1].Date
	fmt.Printf("\nRows: %d (%d with measurements, %d unmeasured), span %s .. %s\n",
		len(rows), measured, len(rows)-measured, first, last)

	if gap := spanGap(first, last, len(rows)); gap > 0 {
		fmt.Printf("Missing days inside the span: %d\n", gap)
	}

	years := make([]int, 0, len(perYear))
	for y := range perYear {
		years = append(years, y)
	}
	sort.Ints(years)

	fmt.Println("Per year:")
	for _, y := range years {
		fmt.Printf("  %d: %d\n", y, perYear[y])
	}
}

// spanGap counts calendar days between first and last that have no row.
func spanGap(first, last string, stored int) int {
	f, err1 := time.Parse("2006-01-02", first)
	l, err2 := time.Parse("2006-01-02", last)
	if err1 != nil || err2 != nil {
		return 0
	}
	days := int(l.Sub(f).Hours()/24) + 1
	if days <= stored {
		return 0
	}
	return days - stored
}
