package main

import (
	"errors"
	"testing"

	"rental-radar/models"
	"rental-radar/utils"
)

type fakeHistoryStore struct {
	records []*models.SnapshotRecord
	err     error
}

func (f *fakeHistoryStore) Append(marketKey string, records []*models.SnapshotRecord) error {
	return nil
}

func (f *fakeHistoryStore) ReadAll(marketKey string) ([]*models.SnapshotRecord, error) {
	return f.records, f.err
}

type fakeMarketFetcher struct {
	records []*models.SnapshotRecord
	err     error
}

func (f *fakeMarketFetcher) FetchMarket(marketKey string) ([]*models.SnapshotRecord, error) {
	return f.records, f.err
}

func historyOf(prices ...int) []*models.SnapshotRecord {
	var records []*models.SnapshotRecord
	for _, p := range prices {
		records = append(records, &models.SnapshotRecord{
			SnapshotDate: "2025-01-01",
			MarketKey:    "oslo",
			PriceMonthly: p,
			IdentityKey:  "storgata 1|0155|oslo",
		})
	}
	return records
}

func TestTrendHistoryReadsBackFromPostgres(t *testing.T) {
	csv := &fakeHistoryStore{records: historyOf(12000)}
	pg := &fakeMarketFetcher{records: historyOf(12000, 13000)}

	history, ok := trendHistory("oslo", csv, pg, utils.NewLogger())
	if !ok {
		t.Fatal("expected a usable history")
	}
	if len(history) != 2 {
		t.Errorf("records: got %d, want 2 from the Postgres mirror", len(history))
	}
}

func TestTrendHistoryFallsBackToCSVOnPostgresError(t *testing.T) {
	csv := &fakeHistoryStore{records: historyOf(12000, 12500, 13000)}
	pg := &fakeMarketFetcher{err: errors.New("connection refused")}

	history, ok := trendHistory("oslo", csv, pg, utils.NewLogger())
	if !ok {
		t.Fatal("CSV fallback should yield a usable history")
	}
	if len(history) != 3 {
		t.Errorf("records: got %d, want 3 from the CSV history", len(history))
	}
}

func TestTrendHistoryWithoutPostgres(t *testing.T) {
	csv := &fakeHistoryStore{records: historyOf(12000)}

	history, ok := trendHistory("oslo", csv, nil, utils.NewLogger())
	if !ok {
		t.Fatal("expected a usable history")
	}
	if len(history) != 1 {
		t.Errorf("records: got %d, want 1", len(history))
	}
}

func TestTrendHistoryReadFailureGivesNoHistory(t *testing.T) {
	csv := &fakeHistoryStore{err: errors.New("disk error")}

	history, ok := trendHistory("oslo", csv, nil, utils.NewLogger())
	if ok {
		t.Fatal("a failed read must not pass as a usable history")
	}
	if history != nil {
		t.Errorf("records: got %d, want none — trend output must not be rewritten from partial data", len(history))
	}
}
