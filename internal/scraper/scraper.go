package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prairiewx/climate-ingest/internal/domain"
	"github.com/prairiewx/climate-ingest/internal/observability"
)

// MonthFetcher retrieves the raw archive page for one calendar month.
type MonthFetcher interface {
	FetchMonth(ctx context.Context, month domain.YearMonth) (domain.RawPage, error)
}

// Scraper walks the archive month by month, newest first, parsing each page
// and merging the daily observations into one set. The walk ends when the
// requested bounds are reached, the archive reports no more data, the fetch
// budget is exhausted, or the context is cancelled.
type Scraper struct {
	fetcher  MonthFetcher
	logger   *slog.Logger
	metrics  *observability.Metrics
	pause    time.Duration
	retries  int
	progress func(string)
}

// New creates a Scraper. pause is the delay between month requests and
// transientRetries is how many extra attempts a failed month gets before the
// walk gives up.
func New(fetcher MonthFetcher, logger *slog.Logger, metrics *observability.Metrics, pause time.Duration, transientRetries int) *Scraper {
	return &Scraper{
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
		pause:   pause,
		retries: transientRetries,
	}
}

// OnProgress registers a callback invoked with a short status line before each
// month fetch. A panicking callback must not abort the walk.
func (s *Scraper) OnProgress(fn func(string)) {
	s.progress = fn
}

// ScrapeBackwards walks from the month containing start back through every
// older month until the archive reports no more data. A zero start means the
// current month. The set collected so far is returned even when err is non-nil.
func (s *Scraper) ScrapeBackwards(ctx context.Context, start time.Time) (domain.ObservationSet, error) {
	return s.walk(ctx, s.startMonth(start), func(domain.YearMonth) bool { return true })
}

// ScrapeLastMonths walks backwards from start covering at most n months.
// n <= 0 returns an empty set without touching the archive.
func (s *Scraper) ScrapeLastMonths(ctx context.Context, n int, start time.Time) (domain.ObservationSet, error) {
	remaining := n
	return s.walk(ctx, s.startMonth(start), func(domain.YearMonth) bool {
		if remaining <= 0 {
			return false
		}
		remaining--
		return true
	})
}

// ScrapeRange walks the months between from and to inclusive. The bounds may
// be given in either order; the walk always runs newest to oldest.
func (s *Scraper) ScrapeRange(ctx context.Context, from, to domain.YearMonth) (domain.ObservationSet, error) {
	older, newer := from, to
	if newer.Before(older) {
		older, newer = newer, older
	}
	return s.walk(ctx, newer, func(cursor domain.YearMonth) bool {
		return !cursor.Before(older)
	})
}

func (s *Scraper) startMonth(start time.Time) domain.YearMonth {
	if start.IsZero() {
		return domain.YearMonthOf(clock.Now())
	}
	return domain.YearMonthOf(start)
}

// walk drives the backward month loop shared by the Scrape methods. keepGoing
// is consulted once per month before fetching it.
func (s *Scraper) walk(ctx context.Context, start domain.YearMonth, keepGoing func(domain.YearMonth) bool) (domain.ObservationSet, error) {
	runStart := clock.Now()
	s.metrics.WalkRunning.Set(1)
	defer s.metrics.WalkRunning.Set(0)

	merged := domain.ObservationSet{}
	months := 0
	reason := "bounds reached"
	var walkErr error

	for cursor := start; keepGoing(cursor); cursor = cursor.Prev() {
		if ctx.Err() != nil {
			reason = "cancelled"
			walkErr = ctx.Err()
			break
		}

		// Pause between requests, not before the first one. The archive is a
		// shared public endpoint and rapid-fire downloads get throttled.
		if months > 0 && !sleepWithContext(ctx, s.pause) {
			reason = "cancelled"
			walkErr = ctx.Err()
			break
		}

		s.notifyProgress("fetching " + cursor.String())

		page, err := s.fetchWithRetry(ctx, cursor)
		if err != nil {
			if errors.Is(err, domain.ErrEndOfData) {
				reason = "end of data"
				break
			}
			if ctx.Err() != nil {
				reason = "cancelled"
				walkErr = ctx.Err()
				break
			}
			reason = "fetch failure"
			walkErr = err
			s.logger.Error("month fetch failed", "month", cursor.String(), "error", err)
			break
		}

		set := domain.ParseMonth(page.Text, cursor)
		s.metrics.PageRows.Observe(float64(len(set)))
		s.metrics.RowsParsed.Add(float64(len(set)))
		merged.Merge(set)
		months++

		s.logger.Debug("month parsed", "month", cursor.String(), "days", len(set))
	}

	s.metrics.WalkDuration.Observe(clock.Now().Sub(runStart).Seconds())
	s.logger.Info("walk finished",
		"months", months,
		"days", len(merged),
		"reason", reason,
	)
	return merged, walkErr
}

// fetchWithRetry fetches one month, retrying transient failures up to the
// configured budget. End-of-data and non-transient errors are returned as is.
func (s *Scraper) fetchWithRetry(ctx context.Context, month domain.YearMonth) (domain.RawPage, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			s.logger.Warn("retrying month fetch", "month", month.String(), "attempt", attempt, "error", lastErr)
			if !sleepWithContext(ctx, s.pause) {
				return domain.RawPage{}, ctx.Err()
			}
		}

		page, err := s.fetcher.FetchMonth(ctx, month)
		if err == nil {
			s.metrics.PagesFetched.Inc()
			return page, nil
		}
		if errors.Is(err, domain.ErrEndOfData) {
			return domain.RawPage{}, err
		}

		s.metrics.FetchFailures.Inc()
		lastErr = err

		var transient *domain.TransientError
		if !errors.As(err, &transient) {
			break
		}
	}
	return domain.RawPage{}, lastErr
}

func (s *Scraper) notifyProgress(msg string) {
	if s.progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.Warn("progress callback panicked", "panic", r)
		}
	}()
	s.progress(msg)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
