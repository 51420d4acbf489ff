package services

import (
	"sort"
	"time"

	"rental-radar/models"
	"rental-radar/utils"
)

const snapshotDateLayout = "2006-01-02"

// TrendService turns a market's full snapshot history into per-identity
// trend rows. It is read-only over its input and recomputes everything from
// scratch on each run.
type TrendService struct {
	logger *utils.Logger
}

// NewTrendService creates a TrendService with the given logger.
func NewTrendService(logger *utils.Logger) *TrendService {
	return &TrendService{logger: logger}
}

// Generate groups the history by identity key (records without one cannot be
// linked and are skipped), orders each group by snapshot date and computes
// one TrendRow per identity. Rows come out in the order each identity was
// first seen. The second return value is the flattened, ordered per-identity
// history for audit and trend charts.
func (s *TrendService) Generate(history []*models.SnapshotRecord) ([]*models.TrendRow, []*models.SnapshotRecord) {
	groups := make(map[string][]*models.SnapshotRecord)
	var order []string

	skipped := 0
	for _, rec := range history {
		if rec.IdentityKey == "" {
			skipped++
			continue
		}
		if _, seen := groups[rec.IdentityKey]; !seen {
			order = append(order, rec.IdentityKey)
		}
		groups[rec.IdentityKey] = append(groups[rec.IdentityKey], rec)
	}
	if skipped > 0 {
		s.logger.Debug("[trends] %d records without identity key excluded from grouping", skipped)
	}

	rows := make([]*models.TrendRow, 0, len(order))
	ordered := make([]*models.SnapshotRecord, 0, len(history))

	for _, key := range order {
		recs := groups[key]
		// Unparseable dates sort as the zero time, i.e. before everything.
		sort.SliceStable(recs, func(i, j int) bool {
			return snapshotTime(recs[i]).Before(snapshotTime(recs[j]))
		})
		ordered = append(ordered, recs...)
		rows = append(rows, buildTrendRow(key, recs))
	}

	return rows, ordered
}

func buildTrendRow(key string, recs []*models.SnapshotRecord) *models.TrendRow {
	prices := make([]float64, 0, len(recs))
	var pricePerSqm []float64
	for _, r := range recs {
		prices = append(prices, float64(r.PriceMonthly))
		if r.PricePerSqm != nil {
			pricePerSqm = append(pricePerSqm, float64(*r.PricePerSqm))
		}
	}

	last := recs[len(recs)-1]
	row := &models.TrendRow{
		IdentityKey:       key,
		LastSeen:          last.SnapshotDate,
		Observations:      len(recs),
		LastPrice:         intPtr(last.PriceMonthly),
		AvgPrice:          mean(prices),
		MedianPrice:       median(prices),
		AvgPricePerSqm:    mean(pricePerSqm),
		MedianPricePerSqm: median(pricePerSqm),
		Address:           last.Address,
		PostalCode:        last.PostalCode,
		City:              last.City,
		MarketKey:         last.MarketKey,
	}

	if len(recs) >= 2 {
		prev := recs[len(recs)-2].PriceMonthly
		row.PrevPrice = intPtr(prev)
		row.PriceChangeAbs = intPtr(last.PriceMonthly - prev)
		if prev != 0 {
			row.PriceChangePct = floatPtr(round2(100 * float64(last.PriceMonthly-prev) / float64(prev)))
		}
	}

	return row
}

func snapshotTime(r *models.SnapshotRecord) time.Time {
	t, err := time.Parse(snapshotDateLayout, r.SnapshotDate)
	if err != nil {
		return time.Time{}
	}
	return t
}
