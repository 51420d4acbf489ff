package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"rental-radar/models"
	"rental-radar/utils"
)

// Column order of snapshot and history files is fixed; unset numeric fields
// serialize as the empty string.
var recordHeader = []string{
	"snapshot_date", "market_key", "listing_id", "title", "source_url",
	"price_monthly", "floor_area_sqm", "bedrooms", "price_per_sqm",
	"address", "postal_code", "city", "identity_key",
}

var trendHeader = []string{
	"identity_key", "last_seen", "observations", "last_price", "prev_price",
	"price_change_abs", "price_change_pct", "avg_price", "median_price",
	"avg_price_per_sqm", "median_price_per_sqm",
	"address", "postal_code", "city", "market_key",
}

var addressHistoryHeader = []string{
	"identity_key", "snapshot_date", "listing_id", "title", "source_url",
	"price_monthly", "floor_area_sqm", "bedrooms", "price_per_sqm",
	"address", "postal_code", "city", "market_key",
}

var summaryHeader = []string{
	"market_key", "snapshot_date", "listings", "avg_price", "median_price",
	"p25_price", "p75_price", "avg_floor_area", "avg_price_per_sqm",
}

var bedroomHeader = []string{
	"market_key", "snapshot_date", "bedrooms", "listings",
	"avg_price", "avg_floor_area", "avg_price_per_sqm",
}

// CSVStore lays snapshots, the append-only per-market history and the
// aggregation outputs under one data directory:
//
//	raw_html/    fetched pages, for reprocessing
//	snapshots/   <market>_<date>.csv, one per run
//	history/     <market>.csv, append-only
//	by_address/  trend rows and ordered per-identity history
//	summaries/   cross-market summary tables
type CSVStore struct {
	dataDir string
	logger  *utils.Logger
}

// NewCSVStore creates the data directory layout and returns a ready store.
func NewCSVStore(dataDir string, logger *utils.Logger) (*CSVStore, error) {
	for _, sub := range []string{"raw_html", "snapshots", "history", "by_address", "summaries"} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0755); err != nil {
			return nil, fmt.Errorf("csv: create data dir: %w", err)
		}
	}
	return &CSVStore{dataDir: dataDir, logger: logger}, nil
}

// SaveRawHTML archives one fetched page so extraction can be re-run offline.
func (s *CSVStore) SaveRawHTML(name, markup string) error {
	path := filepath.Join(s.dataDir, "raw_html", name)
	if err := os.WriteFile(path, []byte(markup), 0644); err != nil {
		return fmt.Errorf("csv: save raw html %q: %w", name, err)
	}
	return nil
}

// WriteSnapshot writes one run's records as a dated snapshot file,
// overwriting any earlier snapshot from the same day.
func (s *CSVStore) WriteSnapshot(marketKey, snapshotDate string, records []*models.SnapshotRecord) error {
	path := filepath.Join(s.dataDir, "snapshots", marketKey+"_"+snapshotDate+".csv")
	return writeCSV(path, recordHeader, recordRows(records))
}

// Append adds one run's records to the market's append-only history file,
// creating it with a header on first use.
func (s *CSVStore) Append(marketKey string, records []*models.SnapshotRecord) error {
	path := filepath.Join(s.dataDir, "history", marketKey+".csv")

	_, statErr := os.Stat(path)
	newFile := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("csv: open history %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if newFile {
		if err := w.Write(recordHeader); err != nil {
			return fmt.Errorf("csv: write history header: %w", err)
		}
	}
	for _, row := range recordRows(records) {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: append history row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// ReadAll loads a market's full history in arrival order. A market without
// history yields an empty slice, not an error.
func (s *CSVStore) ReadAll(marketKey string) ([]*models.SnapshotRecord, error) {
	path := filepath.Join(s.dataDir, "history", marketKey+".csv")

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: open history %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: read history %q: %w", path, err)
	}

	var records []*models.SnapshotRecord
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		rec, ok := parseRecordRow(row)
		if !ok {
			s.logger.Debug("[storage] Skipping malformed history row %d in %s", i+1, path)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// WriteTrends writes the per-identity trend rows for one market.
func (s *CSVStore) WriteTrends(marketKey string, rows []*models.TrendRow) error {
	path := filepath.Join(s.dataDir, "by_address", marketKey+"_address_trends.csv")
	out := make([][]string, 0, len(rows))
	for _, t := range rows {
		out = append(out, []string{
			t.IdentityKey, t.LastSeen, strconv.Itoa(t.Observations),
			formatInt(t.LastPrice), formatInt(t.PrevPrice),
			formatInt(t.PriceChangeAbs), formatFloat(t.PriceChangePct),
			formatFloat(t.AvgPrice), formatFloat(t.MedianPrice),
			formatFloat(t.AvgPricePerSqm), formatFloat(t.MedianPricePerSqm),
			t.Address, t.PostalCode, t.City, t.MarketKey,
		})
	}
	return writeCSV(path, trendHeader, out)
}

// WriteAddressHistory writes the ordered per-identity history used for audit
// and trend charts.
func (s *CSVStore) WriteAddressHistory(marketKey string, records []*models.SnapshotRecord) error {
	path := filepath.Join(s.dataDir, "by_address", marketKey+"_addresses_history.csv")
	out := make([][]string, 0, len(records))
	for _, r := range records {
		out = append(out, []string{
			r.IdentityKey, r.SnapshotDate, r.ListingID, r.Title, r.SourceURL,
			strconv.Itoa(r.PriceMonthly), formatInt(r.FloorAreaSqm),
			formatInt(r.Bedrooms), formatInt(r.PricePerSqm),
			r.Address, r.PostalCode, r.City, r.MarketKey,
		})
	}
	return writeCSV(path, addressHistoryHeader, out)
}

// WriteMarketSummaries writes the cross-market summary table.
func (s *CSVStore) WriteMarketSummaries(rows []*models.MarketSummaryRow) error {
	path := filepath.Join(s.dataDir, "summaries", "markets_summary.csv")
	out := make([][]string, 0, len(rows))
	for _, m := range rows {
		out = append(out, []string{
			m.MarketKey, m.SnapshotDate, strconv.Itoa(m.Listings),
			formatFloat(m.AvgPrice), formatFloat(m.MedianPrice),
			formatFloat(m.P25Price), formatFloat(m.P75Price),
			formatFloat(m.AvgFloorArea), formatFloat(m.AvgPricePerSqm),
		})
	}
	return writeCSV(path, summaryHeader, out)
}

// WriteBedroomBreakdowns writes the per-bedroom-count summary table.
func (s *CSVStore) WriteBedroomBreakdowns(rows []*models.BedroomBreakdownRow) error {
	path := filepath.Join(s.dataDir, "summaries", "markets_by_bedrooms.csv")
	out := make([][]string, 0, len(rows))
	for _, b := range rows {
		out = append(out, []string{
			b.MarketKey, b.SnapshotDate, strconv.Itoa(b.Bedrooms), strconv.Itoa(b.Listings),
			formatFloat(b.AvgPrice), formatFloat(b.AvgFloorArea), formatFloat(b.AvgPricePerSqm),
		})
	}
	return writeCSV(path, bedroomHeader, out)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func recordRows(records []*models.SnapshotRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.SnapshotDate, r.MarketKey, r.ListingID, r.Title, r.SourceURL,
			strconv.Itoa(r.PriceMonthly), formatInt(r.FloorAreaSqm),
			formatInt(r.Bedrooms), formatInt(r.PricePerSqm),
			r.Address, r.PostalCode, r.City, r.IdentityKey,
		})
	}
	return rows
}

func parseRecordRow(row []string) (*models.SnapshotRecord, bool) {
	if len(row) != len(recordHeader) {
		return nil, false
	}
	price, err := strconv.Atoi(row[5])
	if err != nil {
		return nil, false
	}
	return &models.SnapshotRecord{
		SnapshotDate: row[0],
		MarketKey:    row[1],
		ListingID:    row[2],
		Title:        row[3],
		SourceURL:    row[4],
		PriceMonthly: price,
		FloorAreaSqm: parseOptionalInt(row[6]),
		Bedrooms:     parseOptionalInt(row[7]),
		PricePerSqm:  parseOptionalInt(row[8]),
		Address:      row[9],
		PostalCode:   row[10],
		City:         row[11],
		IdentityKey:  row[12],
	}, true
}

func parseOptionalInt(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
