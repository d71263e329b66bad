//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/prairiewx/climate-ingest/internal/adapter/postgres"
	"github.com/prairiewx/climate-ingest/internal/domain"
)

// startPostgres launches a disposable Postgres container and returns its
// connection string.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	pgc, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("climate"),
		tcpostgres.WithUsername("climate"),
		tcpostgres.WithPassword("climate"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = pgc.Terminate(context.Background()) })

	dsn, err := pgc.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "container connection string")
	return dsn
}

// openStore starts a fresh container and connects a store to it.
func openStore(ctx context.Context, t *testing.T) *postgres.Store {
	t.Helper()

	store, err := postgres.Open(ctx, startPostgres(ctx, t), discardLogger())
	require.NoError(t, err, "open store")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(v float64) *float64 { return &v }

// TestStoreRoundTrip verifies the storage layer against real Postgres: saving
// observations, reading them back in calendar order, and first-write-wins
// dedup on re-saves.
func TestStoreRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	store := openStore(ctx, t)

	set := domain.ObservationSet{
		"2024-05-03": {Date: "2024-05-03", Min: ptr(2.1), Max: ptr(18.4), Mean: ptr(10.3)},
		"2024-05-01": {Date: "2024-05-01", Min: ptr(-1.5), Max: ptr(9.0), Mean: ptr(3.8)},
		"2024-05-02": {Date: "2024-05-02"},
	}

	inserted, err := store.Save(ctx, "Winnipeg", set)
	require.NoError(t, err)
	assert.Equal(t, 3, inserted)

	rows, err := store.FetchRange(ctx, "Winnipeg", 1900, 9999)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Rows come back in calendar order regardless of insert order.
	assert.Equal(t, "2024-05-01", rows[0].Date)
	assert.Equal(t, "2024-05-02", rows[1].Date)
	assert.Equal(t, "2024-05-03", rows[2].Date)

	assert.Equal(t, "Winnipeg", rows[0].Location)
	require.NotNil(t, rows[0].Min)
	assert.Equal(t, -1.5, *rows[0].Min)
	require.NotNil(t, rows[0].Max)
	assert.Equal(t, 9.0, *rows[0].Max)
	require.NotNil(t, rows[0].Mean)
	assert.Equal(t, 3.8, *rows[0].Mean)

	// A day reported without measurements stays a row of NULLs.
	assert.Nil(t, rows[1].Min)
	assert.Nil(t, rows[1].Max)
	assert.Nil(t, rows[1].Mean)

	// Saving the same set again inserts nothing.
	inserted, err = store.Save(ctx, "Winnipeg", set)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	// A conflicting value for a stored day is discarded; only genuinely new
	// days count as inserted.
	set["2024-05-01"] = domain.DailyObservation{Date: "2024-05-01", Min: ptr(99.0), Max: ptr(99.0), Mean: ptr(99.0)}
	set["2024-05-04"] = domain.DailyObservation{Date: "2024-05-04", Min: ptr(4.0), Max: ptr(12.0), Mean: ptr(8.0)}

	inserted, err = store.Save(ctx, "Winnipeg", set)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	rows, err = store.FetchRange(ctx, "Winnipeg", 2024, 2024)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	require.NotNil(t, rows[0].Min)
	assert.Equal(t, -1.5, *rows[0].Min, "stored value should survive a conflicting re-save")
}

// TestStoreFetchRangeFilters verifies the year window and location scoping,
// and that the first read against a fresh database creates the schema instead
// of failing.
func TestStoreFetchRangeFilters(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	store := openStore(ctx, t)

	// No table exists yet. The first read must create it and report an empty
	// archive.
	rows, err := store.FetchRange(ctx, "Winnipeg", 1900, 9999)
	require.NoError(t, err)
	assert.Empty(t, rows)

	set := domain.ObservationSet{
		"2023-12-30": {Date: "2023-12-30", Min: ptr(-22.0), Max: ptr(-11.0), Mean: ptr(-16.5)},
		"2023-12-31": {Date: "2023-12-31", Min: ptr(-19.5), Max: ptr(-8.0), Mean: ptr(-13.8)},
		"2024-01-01": {Date: "2024-01-01", Min: ptr(-25.0), Max: ptr(-14.5), Mean: ptr(-19.8)},
		"2025-06-15": {Date: "2025-06-15", Min: ptr(12.0), Max: ptr(27.5), Mean: ptr(19.8)},
	}
	_, err = store.Save(ctx, "Winnipeg", set)
	require.NoError(t, err)

	rows, err = store.FetchRange(ctx, "Winnipeg", 2023, 2024)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2023-12-30", rows[0].Date)
	assert.Equal(t, "2024-01-01", rows[2].Date)

	rows, err = store.FetchRange(ctx, "Winnipeg", 2025, 2025)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-06-15", rows[0].Date)

	// Other locations are invisible.
	rows, err = store.FetchRange(ctx, "Brandon", 1900, 9999)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// TestStoreDeleteLocation verifies that a purge removes only the named
// location's rows and tolerates a missing table.
func TestStoreDeleteLocation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	store := openStore(ctx, t)

	// Purging before any table exists is a clean no-op.
	deleted, err := store.DeleteLocation(ctx, "Winnipeg")
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	_, err = store.Save(ctx, "Winnipeg", domain.ObservationSet{
		"2024-05-01": {Date: "2024-05-01", Min: ptr(1.0), Max: ptr(10.0), Mean: ptr(5.5)},
		"2024-05-02": {Date: "2024-05-02", Min: ptr(2.0), Max: ptr(11.0), Mean: ptr(6.5)},
	})
	require.NoError(t, err)

	_, err = store.Save(ctx, "Brandon", domain.ObservationSet{
		"2024-05-01": {Date: "2024-05-01", Min: ptr(0.5), Max: ptr(9.5), Mean: ptr(5.0)},
	})
	require.NoError(t, err)

	deleted, err = store.DeleteLocation(ctx, "Winnipeg")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	rows, err := store.FetchRange(ctx, "Winnipeg", 1900, 9999)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = store.FetchRange(ctx, "Brandon", 1900, 9999)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	deleted, err = store.DeleteLocation(ctx, "Winnipeg")
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
}
