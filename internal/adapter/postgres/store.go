package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/prairiewx/climate-ingest/internal/domain"
)

// missingTableCode is the Postgres error code for "relation does not exist".
const missingTableCode = "42P01"

// insertBatchSize caps rows per INSERT statement. Five parameters per row
// keeps a batch well under the Postgres placeholder limit even for walks
// covering a century of dailies.
const insertBatchSize = 500

const createTableSQL = `
	CREATE TABLE IF NOT EXISTS weather (
		id BIGSERIAL PRIMARY KEY,
		sample_date TEXT NOT NULL,
		location TEXT NOT NULL,
		min_temp DOUBLE PRECISION,
		max_temp DOUBLE PRECISION,
		avg_temp DOUBLE PRECISION,
		UNIQUE (sample_date, location)
	)`

// Store persists daily observations in Postgres, one row per day and location.
// Re-saving a day that is already present leaves the stored row untouched.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to Postgres, verifies the connection, and configures the pool.
func Open(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// EnsureSchema creates the weather table if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save inserts the observations for location, skipping days already stored.
// It returns the number of net-new rows.
func (s *Store) Save(ctx context.Context, location string, set domain.ObservationSet) (int, error) {
	if len(set) == 0 {
		return 0, nil
	}
	if err := s.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	dates := set.Dates()
	total := 0
	for i := 0; i < len(dates); i += insertBatchSize {
		j := i + insertBatchSize
		if j > len(dates) {
			j = len(dates)
		}

		query, args := buildInsert(location, dates[i:j], set)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return total, fmt.Errorf("save observations: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("count inserted rows: %w", err)
		}
		total += int(n)
	}

	s.logger.Info("observations saved",
		"location", location,
		"rows", len(dates),
		"inserted", total,
	)
	return total, nil
}

// buildInsert renders a multi-row insert for the given dates. Conflicting days
// are left as they are so the oldest stored value wins.
func buildInsert(location string, dates []string, set domain.ObservationSet) (string, []any) {
	var b strings.Builder
	b.WriteString(`INSERT INTO weather (sample_date, location, min_temp, max_temp, avg_temp) VALUES `)

	args := make([]any, 0, len(dates)*5)
	for i, date := range dates {
		if i > 0 {
			b.WriteString(", ")
		}
		n := i * 5
		fmt.Fprintf(&b, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)

		obs := set[date]
		args = append(args, date, location, obs.Min, obs.Max, obs.Mean)
	}

	b.WriteString(` ON CONFLICT (sample_date, location) DO NOTHING`)
	return b.String(), args
}

// FetchRange returns the stored observations for location whose sample dates
// fall in the inclusive year range, ordered by date ascending.
func (s *Store) FetchRange(ctx context.Context, location string, fromYear, toYear int) ([]domain.StoredObservation, error) {
	obs, err := s.fetchRange(ctx, location, fromYear, toYear)
	var pqErr *pq.Error
	if err != nil && errors.As(err, &pqErr) && pqErr.Code == missingTableCode {
		// First read against a fresh database. Create the table and reread so
		// callers see an empty archive instead of an error.
		if serr := s.EnsureSchema(ctx); serr != nil {
			return nil, serr
		}
		obs, err = s.fetchRange(ctx, location, fromYear, toYear)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch observations: %w", err)
	}
	return obs, nil
}

func (s *Store) fetchRange(ctx context.Context, location string, fromYear, toYear int) ([]domain.StoredObservation, error) {
	query := `
		SELECT id, sample_date, location, min_temp, max_temp, avg_temp
		FROM weather
		WHERE location = $1
		  AND CAST(substr(sample_date, 1, 4) AS INTEGER) BETWEEN $2 AND $3
		ORDER BY sample_date
	`

	rows, err := s.db.QueryContext(ctx, query, location, fromYear, toYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StoredObservation
	for rows.Next() {
		var o domain.StoredObservation
		if err := rows.Scan(&o.ID, &o.Date, &o.Location, &o.Min, &o.Max, &o.Mean); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// DeleteLocation removes every stored observation for location and returns
// the number of rows deleted. A missing table counts as nothing to delete.
func (s *Store) DeleteLocation(ctx context.Context, location string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM weather WHERE location = $1`, location)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == missingTableCode {
			return 0, nil
		}
		return 0, fmt.Errorf("delete observations: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted rows: %w", err)
	}

	s.logger.Warn("observations purged", "location", location, "deleted", deleted)
	return deleted, nil
}

// CheckReadiness reports whether the database connection is usable.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
