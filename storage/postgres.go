package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"idx_sync/config"
	"idx_sync/models"
)

// PostgresStore reconciles listings into a single listings table. The pool
// is the only resource shared between workers and its size bounds the number
// of upserts in flight.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string

	updateSQL string
	insertSQL string
	retireSQL string
}

func NewPostgresStore(ctx context.Context, db config.DatabaseConfig, table string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(db.URL)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if db.MaxConns > 0 {
		cfg.MaxConns = db.MaxConns
	}
	if db.MinConns > 0 {
		cfg.MinConns = db.MinConns
	}
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return newPostgresStore(pool, table), nil
}

func newPostgresStore(pool *pgxpool.Pool, table string) *PostgresStore {
	t := pgx.Identifier{table}.Sanitize()
	return &PostgresStore{
		pool:      pool,
		table:     table,
		updateSQL: fmt.Sprintf(updateListingSQL, t),
		insertSQL: fmt.Sprintf(insertListingSQL, t, t),
		retireSQL: fmt.Sprintf(retireStaleSQL, t),
	}
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) Table() string {
	return s.table
}

// =============================================================================
// Listings
// =============================================================================

// The stored sort bucket never drops below the media bucket implied by the
// videos column, which another writer owns.
const updateListingSQL = `
	UPDATE %s SET
		type = $2,
		agent_id = $3,
		beds = $4,
		baths_full = $5,
		baths_half = $6,
		facts = $7::jsonb,
		hashtags = $8::text[],
		idx_open_houses = $9::json[],
		idx_virtual_tours = $10::json[],
		open_house_soon = $11,
		pictures = $12::text[],
		price = $13,
		remarks = $14,
		sort_id = GREATEST(
			CASE WHEN videos IS NULL OR videos = '{}' THEN NULL ELSE '60-' || listing_id END,
			$15::text
		),
		sqft = $16,
		status = $17,
		street_name = $18,
		street_no = $19,
		zip = $20,
		last_updated = $21
	WHERE listing_id = $1`

// ON CONFLICT without a target also covers a concurrent insert of the same
// listing once listing_id carries a unique index.
const insertListingSQL = `
	INSERT INTO %s (
		listing_id, type, agent_id, beds, baths_full, baths_half, facts,
		hashtags, idx_open_houses, idx_virtual_tours, open_house_soon, pictures,
		price, remarks, sort_id, sqft, status, street_name, street_no, zip,
		last_updated
	)
	SELECT
		$1::text, $2::text, $3::text, $4::int, $5::int, $6::int, $7::jsonb,
		$8::text[], $9::json[], $10::json[], $11::boolean, $12::text[],
		$13::numeric, $14::text, $15::text, $16::numeric, $17::text, $18::text, $19::text, $20::text,
		$21::timestamptz
	WHERE NOT EXISTS (SELECT 1 FROM %s WHERE listing_id = $1)
	ON CONFLICT DO NOTHING`

const retireStaleSQL = `
	UPDATE %s SET status = $1
	WHERE type = $2 AND (last_updated IS NULL OR last_updated < $3)`

// UpdateListing overwrites every column of an existing listing and returns
// the number of rows it matched.
func (s *PostgresStore) UpdateListing(ctx context.Context, l *models.Listing) (int64, error) {
	args, err := listingArgs(l)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, s.updateSQL, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertListingIfAbsent inserts l unless a row with its listing id exists
func (s *PostgresStore) InsertListingIfAbsent(ctx context.Context, l *models.Listing) (int64, error) {
	args, err := listingArgs(l)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, s.insertSQL, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RetireStale sets status on every listing of type t not refreshed since
// runStart. No other column is touched.
func (s *PostgresStore) RetireStale(ctx context.Context, t models.ListingType, runStart time.Time, status string) (int64, error) {
	tag, err := s.pool.Exec(ctx, s.retireSQL, status, string(t), runStart)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func listingArgs(l *models.Listing) ([]any, error) {
	facts, err := json.Marshal(l.Facts)
	if err != nil {
		return nil, fmt.Errorf("marshal facts: %w", err)
	}
	openHouses, err := jsonElements(l.OpenHouses)
	if err != nil {
		return nil, fmt.Errorf("marshal open houses: %w", err)
	}
	tours, err := jsonElements(l.VirtualTours)
	if err != nil {
		return nil, fmt.Errorf("marshal virtual tours: %w", err)
	}

	return []any{
		l.ListingID,
		string(l.Type),
		l.AgentID,
		l.Beds,
		l.BathsFull,
		l.BathsHalf,
		string(facts),
		l.Hashtags,
		openHouses,
		tours,
		l.OpenHouseSoon,
		l.Pictures,
		l.Price,
		l.Remarks,
		l.SortID,
		l.SqFt,
		l.Status,
		l.StreetName,
		l.StreetNo,
		l.Zip,
		l.LastUpdated,
	}, nil
}

// jsonElements encodes each element for a json[] column. A nil slice stays
// nil so the column is stored as NULL.
func jsonElements[T any](items []T) ([]string, error) {
	if items == nil {
		return nil, nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		out = append(out, string(b))
	}
	return out, nil
}
