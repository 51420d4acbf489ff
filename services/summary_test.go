package services

import (
	"testing"

	"rental-radar/models"
	"rental-radar/utils"
)

func listing(price int, area, bedrooms *int) *models.SnapshotRecord {
	r := &models.SnapshotRecord{
		SnapshotDate: "2025-03-01",
		MarketKey:    "oslo",
		PriceMonthly: price,
		FloorAreaSqm: area,
		Bedrooms:     bedrooms,
	}
	if area != nil && *area != 0 {
		pps := price / *area
		r.PricePerSqm = &pps
	}
	return r
}

func TestSummaryQuantiles(t *testing.T) {
	svc := NewSummaryService(utils.NewLogger())

	var latest []*models.SnapshotRecord
	for _, p := range []int{1000, 2000, 3000, 4000, 5000} {
		latest = append(latest, listing(p, nil, nil))
	}

	summary, _ := svc.Summarize("oslo", "2025-03-01", latest)

	if summary.Listings != 5 {
		t.Errorf("Listings: got %d, want 5", summary.Listings)
	}
	if summary.AvgPrice == nil || *summary.AvgPrice != 3000 {
		t.Errorf("AvgPrice: got %v, want 3000", summary.AvgPrice)
	}
	if summary.MedianPrice == nil || *summary.MedianPrice != 3000 {
		t.Errorf("MedianPrice: got %v, want 3000", summary.MedianPrice)
	}
	if summary.P25Price == nil || *summary.P25Price != 2000 {
		t.Errorf("P25Price: got %v, want 2000", summary.P25Price)
	}
	if summary.P75Price == nil || *summary.P75Price != 4000 {
		t.Errorf("P75Price: got %v, want 4000", summary.P75Price)
	}
}

func TestSummaryQuantileInterpolation(t *testing.T) {
	svc := NewSummaryService(utils.NewLogger())

	var latest []*models.SnapshotRecord
	for _, p := range []int{1000, 2000, 3000, 4000} {
		latest = append(latest, listing(p, nil, nil))
	}

	summary, _ := svc.Summarize("oslo", "2025-03-01", latest)

	// Position (4-1)·0.25 = 0.75 → 1000 + 0.75·(2000-1000)
	if summary.P25Price == nil || *summary.P25Price != 1750 {
		t.Errorf("P25Price: got %v, want 1750", summary.P25Price)
	}
	if summary.P75Price == nil || *summary.P75Price != 3250 {
		t.Errorf("P75Price: got %v, want 3250", summary.P75Price)
	}
}

func TestSummaryQuantilesNeedFourSamples(t *testing.T) {
	svc := NewSummaryService(utils.NewLogger())

	latest := []*models.SnapshotRecord{
		listing(1000, nil, nil),
		listing(2000, nil, nil),
		listing(3000, nil, nil),
	}
	summary, _ := svc.Summarize("oslo", "2025-03-01", latest)

	if summary.P25Price != nil || summary.P75Price != nil {
		t.Error("quantiles must stay undefined below 4 observations")
	}
	if summary.MedianPrice == nil || *summary.MedianPrice != 2000 {
		t.Errorf("MedianPrice: got %v, want 2000", summary.MedianPrice)
	}
}

func TestSummaryBedroomBreakdown(t *testing.T) {
	svc := NewSummaryService(utils.NewLogger())

	latest := []*models.SnapshotRecord{
		listing(10000, intPtr(40), intPtr(2)),
		listing(12000, intPtr(60), intPtr(2)),
		listing(8000, intPtr(30), intPtr(1)),
		listing(9000, nil, nil), // no bedroom count: market row only
	}

	summary, breakdown := svc.Summarize("oslo", "2025-03-01", latest)

	if summary.Listings != 4 {
		t.Errorf("Listings: got %d, want 4", summary.Listings)
	}
	if len(breakdown) != 2 {
		t.Fatalf("breakdown rows: got %d, want 2", len(breakdown))
	}
	if breakdown[0].Bedrooms != 1 || breakdown[1].Bedrooms != 2 {
		t.Errorf("breakdown must be sorted by bedroom count ascending, got [%d, %d]",
			breakdown[0].Bedrooms, breakdown[1].Bedrooms)
	}
	if breakdown[1].Listings != 2 {
		t.Errorf("2-bedroom listings: got %d, want 2", breakdown[1].Listings)
	}
	if breakdown[1].AvgPrice == nil || *breakdown[1].AvgPrice != 11000 {
		t.Errorf("2-bedroom AvgPrice: got %v, want 11000", breakdown[1].AvgPrice)
	}
	if breakdown[1].AvgFloorArea == nil || *breakdown[1].AvgFloorArea != 50 {
		t.Errorf("2-bedroom AvgFloorArea: got %v, want 50", breakdown[1].AvgFloorArea)
	}
}

func TestSummaryEmptySnapshot(t *testing.T) {
	svc := NewSummaryService(utils.NewLogger())

	summary, breakdown := svc.Summarize("oslo", "2025-03-01", nil)

	if summary.Listings != 0 {
		t.Errorf("Listings: got %d, want 0", summary.Listings)
	}
	if summary.AvgPrice != nil || summary.MedianPrice != nil {
		t.Error("empty snapshot must yield no-data markers, not zeros")
	}
	if len(breakdown) != 0 {
		t.Errorf("breakdown rows: got %d, want 0", len(breakdown))
	}
}

func TestSummaryAreaAveragesSkipMissing(t *testing.T) {
	svc := NewSummaryService(utils.NewLogger())

	latest := []*models.SnapshotRecord{
		listing(10000, intPtr(50), nil),
		listing(12000, nil, nil),
	}
	summary, _ := svc.Summarize("oslo", "2025-03-01", latest)

	if summary.AvgFloorArea == nil || *summary.AvgFloorArea != 50 {
		t.Errorf("AvgFloorArea: got %v, want 50 (missing areas excluded)", summary.AvgFloorArea)
	}
}
