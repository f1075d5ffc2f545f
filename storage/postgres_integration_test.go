//go:build integration_pg
// +build integration_pg

package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"idx_sync/config"
	"idx_sync/models"
)

func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "idx",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/idx?sslmode=disable", host, mapped.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

func newTestStore(t *testing.T, ctx context.Context) *PostgresStore {
	t.Helper()

	dsn, stop := startPostgres(t)
	t.Cleanup(stop)

	store, err := NewPostgresStore(ctx, config.DatabaseConfig{URL: dsn, MaxConns: 4, MinConns: 1}, "listings")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(store.Close)

	schema, err := os.ReadFile(filepath.Join("testdata", "schema.sql"))
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if _, err := store.Pool().Exec(ctx, string(schema)); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return store
}

func str(s string) *string { return &s }

func testListing(id string, t models.ListingType, seen time.Time) *models.Listing {
	beds := 3
	sqft := 1850.0
	return &models.Listing{
		ListingID: id,
		Type:      t,
		AgentID:   str("CN200"),
		Beds:      &beds,
		Facts:     models.Facts{models.FactStyle: str("Colonial"), models.FactTaxes: nil},
		Hashtags:  []string{string(t), "3bed", "Nonebath", "deck"},
		VirtualTours: []models.VirtualTourEvent{
			{URL: "https://my.matterport.com/show/?m=a"},
		},
		Pictures:    []string{"https://idx.example.com/photo?mls=" + id + "&n=0"},
		Price:       599000,
		Remarks:     "Sunny deck",
		SortID:      models.BucketVirtualTour + id,
		SqFt:        &sqft,
		Status:      "NEW",
		StreetName:  "Beacon St",
		StreetNo:    "12",
		Zip:         "02116",
		LastUpdated: seen,
	}
}

func upsert(t *testing.T, ctx context.Context, s *PostgresStore, l *models.Listing) {
	t.Helper()
	if _, err := s.UpdateListing(ctx, l); err != nil {
		t.Fatalf("update %s: %v", l.ListingID, err)
	}
	if _, err := s.InsertListingIfAbsent(ctx, l); err != nil {
		t.Fatalf("insert %s: %v", l.ListingID, err)
	}
}

type storedRow struct {
	count   int
	status  string
	sortID  string
	price   float64
	tours   int
	seen    int64
	hashtag string
}

func readRow(t *testing.T, ctx context.Context, pool *pgxpool.Pool, id string) storedRow {
	t.Helper()
	var r storedRow
	var seen time.Time
	err := pool.QueryRow(ctx, `
		SELECT count(*) OVER (), status, sort_id, price::float8,
			coalesce(array_length(idx_virtual_tours, 1), 0), last_updated, hashtags[4]
		FROM listings WHERE listing_id = $1`, id).
		Scan(&r.count, &r.status, &r.sortID, &r.price, &r.tours, &seen, &r.hashtag)
	if err != nil {
		t.Fatalf("read %s: %v", id, err)
	}
	r.seen = seen.UnixMicro()
	return r
}

func TestPostgresStore_UpsertIsIdempotent_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := newTestStore(t, ctx)

	seen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := testListing("123", models.ListingTypeSingleFamily, seen)

	upsert(t, ctx, store, l)
	first := readRow(t, ctx, store.Pool(), "123")
	upsert(t, ctx, store, l)
	second := readRow(t, ctx, store.Pool(), "123")

	if second.count != 1 {
		t.Fatalf("expected 1 row, got %d", second.count)
	}
	if first != second {
		t.Fatalf("expected no drift\nfirst:  %+v\nsecond: %+v", first, second)
	}
	if second.tours != 1 || second.hashtag != "deck" || second.sortID != "50-123" {
		t.Fatalf("unexpected stored row %+v", second)
	}

	n, err := store.InsertListingIfAbsent(ctx, l)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected insert to skip existing listing, inserted %d", n)
	}
}

func TestPostgresStore_UpdateKeepsMediaBucket_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := newTestStore(t, ctx)

	seen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := testListing("777", models.ListingTypeCondo, seen)
	l.VirtualTours = nil
	l.SortID = models.BucketDefault + "777"
	upsert(t, ctx, store, l)

	if _, err := store.Pool().Exec(ctx, `UPDATE listings SET videos = ARRAY['https://youtu.be/x'] WHERE listing_id = '777'`); err != nil {
		t.Fatalf("seed videos: %v", err)
	}
	upsert(t, ctx, store, l)
	if got := readRow(t, ctx, store.Pool(), "777").sortID; got != "60-777" {
		t.Fatalf("expected media bucket 60-777, got %s", got)
	}

	l.OpenHouseSoon = true
	l.SortID = models.BucketOpenHouseSoon + "777"
	upsert(t, ctx, store, l)
	if got := readRow(t, ctx, store.Pool(), "777").sortID; got != "70-777" {
		t.Fatalf("expected open house bucket 70-777, got %s", got)
	}
}

func TestPostgresStore_RetireStaleScope_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	store := newTestStore(t, ctx)

	runStart := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	previous := runStart.Add(-24 * time.Hour)

	upsert(t, ctx, store, testListing("fresh", models.ListingTypeSingleFamily, runStart))
	upsert(t, ctx, store, testListing("stale", models.ListingTypeSingleFamily, previous))
	upsert(t, ctx, store, testListing("other-type", models.ListingTypeCondo, previous))
	upsert(t, ctx, store, testListing("never-seen", models.ListingTypeSingleFamily, previous))
	if _, err := store.Pool().Exec(ctx, `UPDATE listings SET last_updated = NULL WHERE listing_id = 'never-seen'`); err != nil {
		t.Fatalf("clear last_updated: %v", err)
	}

	retired, err := store.RetireStale(ctx, models.ListingTypeSingleFamily, runStart, "RT-ACT")
	if err != nil {
		t.Fatalf("retire: %v", err)
	}
	if retired != 2 {
		t.Fatalf("expected 2 retired listings, got %d", retired)
	}

	want := map[string]string{
		"fresh":      "NEW",
		"stale":      "RT-ACT",
		"other-type": "NEW",
	}
	for id, status := range want {
		if got := readRow(t, ctx, store.Pool(), id).status; got != status {
			t.Fatalf("%s: expected status %s, got %s", id, status, got)
		}
	}

	stale := readRow(t, ctx, store.Pool(), "stale")
	if stale.price != 599000 || stale.sortID != "50-stale" {
		t.Fatalf("expected sweep to touch only status, got %+v", stale)
	}
}
