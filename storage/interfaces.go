package storage

import "rental-radar/models"

// HistoryStore is the append-only per-market history contract. One run's
// appends land after all writes of prior runs; there is a single writer and
// the core performs no locking of its own.
type HistoryStore interface {
	Append(marketKey string, records []*models.SnapshotRecord) error
	ReadAll(marketKey string) ([]*models.SnapshotRecord, error)
}

// SnapshotWriter persists one run's accepted records as a dated snapshot.
type SnapshotWriter interface {
	WriteSnapshot(marketKey, snapshotDate string, records []*models.SnapshotRecord) error
}

// MarketFetcher reads back one market's stored history, in insertion order.
type MarketFetcher interface {
	FetchMarket(marketKey string) ([]*models.SnapshotRecord, error)
}
