package services

import (
	"fmt"
	"sort"
	"strings"

	"rental-radar/models"
	"rental-radar/utils"
)

// SummaryService computes cross-listing distribution statistics over the
// latest snapshot of one market. Which snapshot is "latest" is the caller's
// call; this service only ever sees a single run's records.
type SummaryService struct {
	logger *utils.Logger
}

// NewSummaryService creates a SummaryService with the given logger.
func NewSummaryService(logger *utils.Logger) *SummaryService {
	return &SummaryService{logger: logger}
}

// Summarize computes the market-wide row plus one breakdown row per distinct
// bedroom count, ascending. Records without a bedroom count are part of the
// market row but excluded from the breakdown.
func (s *SummaryService) Summarize(marketKey, snapshotDate string, latest []*models.SnapshotRecord) (*models.MarketSummaryRow, []*models.BedroomBreakdownRow) {
	prices := make([]float64, 0, len(latest))
	var areas, pricePerSqm []float64
	byBedrooms := make(map[int][]*models.SnapshotRecord)

	for _, r := range latest {
		prices = append(prices, float64(r.PriceMonthly))
		if r.FloorAreaSqm != nil {
			areas = append(areas, float64(*r.FloorAreaSqm))
		}
		if r.PricePerSqm != nil {
			pricePerSqm = append(pricePerSqm, float64(*r.PricePerSqm))
		}
		if r.Bedrooms != nil {
			byBedrooms[*r.Bedrooms] = append(byBedrooms[*r.Bedrooms], r)
		}
	}

	summary := &models.MarketSummaryRow{
		MarketKey:      marketKey,
		SnapshotDate:   snapshotDate,
		Listings:       len(latest),
		AvgPrice:       mean(prices),
		MedianPrice:    median(prices),
		P25Price:       quantile(prices, 0.25),
		P75Price:       quantile(prices, 0.75),
		AvgFloorArea:   mean(areas),
		AvgPricePerSqm: mean(pricePerSqm),
	}

	counts := make([]int, 0, len(byBedrooms))
	for b := range byBedrooms {
		counts = append(counts, b)
	}
	sort.Ints(counts)

	breakdown := make([]*models.BedroomBreakdownRow, 0, len(counts))
	for _, b := range counts {
		recs := byBedrooms[b]
		bPrices := make([]float64, 0, len(recs))
		var bAreas, bPricePerSqm []float64
		for _, r := range recs {
			bPrices = append(bPrices, float64(r.PriceMonthly))
			if r.FloorAreaSqm != nil {
				bAreas = append(bAreas, float64(*r.FloorAreaSqm))
			}
			if r.PricePerSqm != nil {
				bPricePerSqm = append(bPricePerSqm, float64(*r.PricePerSqm))
			}
		}
		breakdown = append(breakdown, &models.BedroomBreakdownRow{
			MarketKey:      marketKey,
			SnapshotDate:   snapshotDate,
			Bedrooms:       b,
			Listings:       len(recs),
			AvgPrice:       mean(bPrices),
			AvgFloorArea:   mean(bAreas),
			AvgPricePerSqm: mean(bPricePerSqm),
		})
	}

	return summary, breakdown
}

// Print renders one market's summary as a console report.
func (s *SummaryService) Print(summary *models.MarketSummaryRow, breakdown []*models.BedroomBreakdownRow) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 MARKET REPORT — %s (%s)\033[0m\n", summary.MarketKey, summary.SnapshotDate)
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Monthly Rent\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Listings      : \033[1m%d\033[0m\n", summary.Listings)
	printStat("Average", summary.AvgPrice, "kr")
	printStat("Median", summary.MedianPrice, "kr")
	printStat("25th pct", summary.P25Price, "kr")
	printStat("75th pct", summary.P75Price, "kr")
	printStat("Avg area", summary.AvgFloorArea, "m²")
	printStat("Avg kr/m²", summary.AvgPricePerSqm, "kr")
	fmt.Println()

	fmt.Printf("\033[1;33m  By Bedroom Count\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(breakdown) == 0 {
		fmt.Printf("  No bedroom data\n")
	} else {
		for _, row := range breakdown {
			bar := strings.Repeat("█", row.Listings)
			avg := "n/a"
			if row.AvgPrice != nil {
				avg = fmt.Sprintf("%.0f kr", *row.AvgPrice)
			}
			fmt.Printf("  %d sov  %-10s %s (%d)\n", row.Bedrooms, avg, bar, row.Listings)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func printStat(label string, v *float64, unit string) {
	if v == nil {
		fmt.Printf("  %-13s : no data\n", label)
		return
	}
	fmt.Printf("  %-13s : \033[1;32m%.2f %s\033[0m\n", label, *v, unit)
}
