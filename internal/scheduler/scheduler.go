package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/prairiewx/climate-ingest/internal/domain"
	"github.com/prairiewx/climate-ingest/internal/observability"
)

// MonthScraper collects observations going back n months from start.
type MonthScraper interface {
	ScrapeLastMonths(ctx context.Context, n int, start time.Time) (domain.ObservationSet, error)
}

// ObservationSaver persists observations and reports net-new rows.
type ObservationSaver interface {
	Save(ctx context.Context, location string, set domain.ObservationSet) (int, error)
}

// Status is a snapshot of the refresher's recent activity.
type Status struct {
	Location     string    `json:"location"`
	Ready        bool      `json:"ready"`
	Breaker      string    `json:"breaker"`
	LastAttempt  time.Time `json:"last_attempt"`
	LastSuccess  time.Time `json:"last_success"`
	LastInserted int       `json:"last_inserted"`
}

// Refresher periodically re-scrapes the most recent months and stores any
// days the archive has filled in since the last pass. A circuit breaker
// keeps a broken archive or database from being hammered every tick.
type Refresher struct {
	scheduler *gocron.Scheduler
	scraper   MonthScraper
	store     ObservationSaver
	breaker   *gobreaker.CircuitBreaker
	logger    *slog.Logger
	metrics   *observability.Metrics

	location string
	months   int
	interval time.Duration

	ready atomic.Bool

	mu   sync.Mutex
	stat Status
}

// New creates a Refresher covering the trailing months for location, running
// every interval.
func New(scraper MonthScraper, store ObservationSaver, logger *slog.Logger, metrics *observability.Metrics, location string, months int, interval time.Duration) *Refresher {
	r := &Refresher{
		scheduler: gocron.NewScheduler(time.UTC),
		scraper:   scraper,
		store:     store,
		logger:    logger,
		metrics:   metrics,
		location:  location,
		months:    months,
		interval:  interval,
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "archive-refresh",
		MaxRequests: 1,
		Timeout:     interval / 2,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			if to == gobreaker.StateOpen {
				metrics.BreakerOpen.Set(1)
			} else {
				metrics.BreakerOpen.Set(0)
			}
		},
	})

	return r
}

// Start schedules the periodic refresh job and starts the scheduler.
func (r *Refresher) Start() error {
	if _, err := r.scheduler.Every(r.interval).Do(r.refreshJob); err != nil {
		return fmt.Errorf("schedule refresh job: %w", err)
	}
	r.scheduler.StartAsync()
	r.logger.Info("refresher started",
		"location", r.location,
		"months", r.months,
		"interval", r.interval.String(),
	)
	return nil
}

// Stop stops the scheduler and cancels any future runs.
func (r *Refresher) Stop() {
	r.scheduler.Stop()
}

// RefreshNow runs a single refresh through the circuit breaker.
func (r *Refresher) RefreshNow(ctx context.Context) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.runOnce(ctx)
	})
	return err
}

// CheckReadiness returns nil once at least one refresh has completed,
// or an error describing why the service is not yet ready.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no refresh has completed yet")
	}
	return nil
}

// Status reports the current refresh state for the admin endpoints.
func (r *Refresher) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.stat
	st.Location = r.location
	st.Ready = r.ready.Load()
	st.Breaker = r.breaker.State().String()
	return st
}

// refreshJob is the gocron entry point. The per-run context expires before the
// next tick so a hung walk cannot pile runs on top of each other.
func (r *Refresher) refreshJob() {
	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	err := r.RefreshNow(ctx)
	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		r.logger.Warn("refresh skipped, circuit breaker open")
	default:
		r.logger.Error("refresh failed", "error", err)
	}
}

func (r *Refresher) runOnce(ctx context.Context) error {
	logger := r.logger.With("run_id", uuid.NewString())

	r.mu.Lock()
	r.stat.LastAttempt = time.Now().UTC()
	r.mu.Unlock()

	set, scrapeErr := r.scraper.ScrapeLastMonths(ctx, r.months, time.Time{})

	// Save whatever came back before judging the scrape. A walk that failed
	// halfway still carries days worth keeping.
	inserted := 0
	if len(set) > 0 {
		n, err := r.store.Save(ctx, r.location, set)
		if err != nil {
			return fmt.Errorf("save observations: %w", err)
		}
		inserted = n
		r.metrics.RowsInserted.Add(float64(inserted))
	}

	r.mu.Lock()
	r.stat.LastInserted = inserted
	r.mu.Unlock()

	if scrapeErr != nil {
		// Only a walk that produced nothing counts against the breaker; a
		// partial walk passes, but readiness waits for a clean one.
		if len(set) == 0 {
			return fmt.Errorf("scrape recent months: %w", scrapeErr)
		}
		logger.Warn("refresh degraded, kept partial walk",
			"days", len(set),
			"inserted", inserted,
			"error", scrapeErr,
		)
		return nil
	}

	r.mu.Lock()
	r.stat.LastSuccess = time.Now().UTC()
	r.mu.Unlock()
	r.ready.Store(true)

	logger.Info("refresh complete", "days", len(set), "inserted", inserted)
	return nil
}
