package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"rental-radar/models"
)

// PostgresWriter mirrors the append-only snapshot history into PostgreSQL
// for ad-hoc querying. The CSV files stay the source of truth.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id            SERIAL PRIMARY KEY,
			snapshot_date DATE         NOT NULL,
			market_key    VARCHAR(100) NOT NULL,
			listing_id    VARCHAR(50)  NOT NULL,
			title         TEXT         NOT NULL DEFAULT '',
			source_url    TEXT         NOT NULL DEFAULT '',
			price_monthly INTEGER      NOT NULL,
			floor_area_sqm INTEGER,
			bedrooms      INTEGER,
			price_per_sqm INTEGER,
			address       TEXT         NOT NULL DEFAULT '',
			postal_code   VARCHAR(20)  NOT NULL DEFAULT '',
			city          TEXT         NOT NULL DEFAULT '',
			identity_key  TEXT         NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			UNIQUE (market_key, listing_id, snapshot_date)
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_market   ON snapshots(market_key);
		CREATE INDEX IF NOT EXISTS idx_snapshots_identity ON snapshots(identity_key);
		CREATE INDEX IF NOT EXISTS idx_snapshots_date     ON snapshots(snapshot_date);
	`)
	return err
}

// Write batch-inserts one run's records. Re-running the same day is a no-op
// thanks to the uniqueness constraint, keeping runs idempotent.
func (pw *PostgresWriter) Write(records []*models.SnapshotRecord) error {
	if len(records) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := pw.insertBatch(records[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) insertBatch(batch []*models.SnapshotRecord) error {
	const cols = 13
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, r := range batch {
		base := idx * cols
		placeholders := make([]string, cols)
		for j := range placeholders {
			placeholders[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			r.SnapshotDate, r.MarketKey, r.ListingID, r.Title, r.SourceURL,
			r.PriceMonthly, r.FloorAreaSqm, r.Bedrooms, r.PricePerSqm,
			r.Address, r.PostalCode, r.City, r.IdentityKey)
	}

	query := fmt.Sprintf(`
		INSERT INTO snapshots (snapshot_date, market_key, listing_id, title, source_url,
			price_monthly, floor_area_sqm, bedrooms, price_per_sqm,
			address, postal_code, city, identity_key)
		VALUES %s
		ON CONFLICT (market_key, listing_id, snapshot_date) DO NOTHING
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

// FetchMarket retrieves one market's full history in insertion order.
func (pw *PostgresWriter) FetchMarket(marketKey string) ([]*models.SnapshotRecord, error) {
	rows, err := pw.db.Query(`
		SELECT to_char(snapshot_date, 'YYYY-MM-DD'), market_key, listing_id, title, source_url,
			price_monthly, floor_area_sqm, bedrooms, price_per_sqm,
			address, postal_code, city, identity_key
		FROM snapshots
		WHERE market_key = $1
		ORDER BY id
	`, marketKey)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch market %q: %w", marketKey, err)
	}
	defer rows.Close()

	var records []*models.SnapshotRecord
	for rows.Next() {
		r := &models.SnapshotRecord{}
		var area, bedrooms, perSqm sql.NullInt64
		if err := rows.Scan(
			&r.SnapshotDate, &r.MarketKey, &r.ListingID, &r.Title, &r.SourceURL,
			&r.PriceMonthly, &area, &bedrooms, &perSqm,
			&r.Address, &r.PostalCode, &r.City, &r.IdentityKey,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		r.FloorAreaSqm = nullableInt(area)
		r.Bedrooms = nullableInt(bedrooms)
		r.PricePerSqm = nullableInt(perSqm)
		records = append(records, r)
	}
	return records, rows.Err()
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
