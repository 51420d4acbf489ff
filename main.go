package main

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"rental-radar/config"
	"rental-radar/models"
	"rental-radar/scraper/finn"
	"rental-radar/services"
	"rental-radar/storage"
	"rental-radar/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Rental Radar starting ===")
	logger.Info("Config — markets: %d | price bounds: %d–%d kr | area bounds: %d–%d m² | max pages: %d",
		len(cfg.Markets), cfg.MinPrice, cfg.MaxPrice, cfg.MinSqm, cfg.MaxSqm, cfg.MaxPages)

	if len(cfg.Markets) == 0 {
		logger.Error("No markets configured. Set MARKETS=key=search_url;...")
		os.Exit(1)
	}

	store, err := storage.NewCSVStore(cfg.DataDir, logger)
	if err != nil {
		logger.Error("Failed to prepare data directory: %v", err)
		os.Exit(1)
	}

	var pgWriter *storage.PostgresWriter
	if cfg.StorePostgres {
		pgWriter, err = storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			os.Exit(1)
		}
		defer pgWriter.Close()
	}

	scraper := finn.New(cfg, logger, store)
	extractor := services.NewExtractor(logger)
	trendSvc := services.NewTrendService(logger)
	summarySvc := services.NewSummaryService(logger)

	bounds := services.Bounds{
		MinPrice: cfg.MinPrice,
		MaxPrice: cfg.MaxPrice,
		MinArea:  cfg.MinSqm,
		MaxArea:  cfg.MaxSqm,
	}

	today := time.Now().Format("2006-01-02")

	var summaries []*models.MarketSummaryRow
	var breakdowns []*models.BedroomBreakdownRow

	// One market failing must not take down the others.
	for _, market := range cfg.Markets {
		summary, beds := runMarket(market, today, bounds,
			logger, scraper, extractor, trendSvc, summarySvc, store, pgWriter)
		if summary != nil {
			summaries = append(summaries, summary)
			breakdowns = append(breakdowns, beds...)
		}
	}

	if err := store.WriteMarketSummaries(summaries); err != nil {
		logger.Error("Summary write failed: %v", err)
	}
	if err := store.WriteBedroomBreakdowns(breakdowns); err != nil {
		logger.Error("Bedroom breakdown write failed: %v", err)
	}

	fmt.Printf("  Done. Snapshots, history, trends and summaries under %s\n\n", cfg.DataDir)
}

func runMarket(
	market config.Market,
	today string,
	bounds services.Bounds,
	logger *utils.Logger,
	scraper *finn.Scraper,
	extractor *services.Extractor,
	trendSvc *services.TrendService,
	summarySvc *services.SummaryService,
	store *storage.CSVStore,
	pgWriter *storage.PostgresWriter,
) (*models.MarketSummaryRow, []*models.BedroomBreakdownRow) {
	logger.Info("[%s] Crawling %s", market.Key, market.SearchURL)

	pages, err := scraper.Crawl(market.Key, market.SearchURL)
	if err != nil {
		logger.Error("[%s] Crawl failed: %v", market.Key, err)
		return nil, nil
	}

	filter := services.NewFilter(bounds, logger)
	var records []*models.SnapshotRecord

	for i, page := range pages {
		listingID := page.ListingID
		if listingID == "" {
			listingID = strconv.Itoa(i + 1)
		}
		if err := store.SaveRawHTML(market.Key+"_ad_"+listingID+".html", page.HTML); err != nil {
			logger.Warn("[%s] Raw HTML archive failed: %v", market.Key, err)
		}

		raw := extractor.Extract(page.HTML)
		priceMonthly := services.MonthlyPrice(raw.PriceAmount, raw.PriceContext)

		if reason, ok := filter.Check(priceMonthly, raw.FloorAreaSqm); !ok {
			logger.Debug("[%s] Dropped %s (%s)", market.Key, page.URL, reason)
			continue
		}

		records = append(records, buildRecord(market.Key, today, listingID, page, raw, *priceMonthly))
	}
	filter.LogSummary(market.Key, len(records))

	if err := store.WriteSnapshot(market.Key, today, records); err != nil {
		logger.Error("[%s] Snapshot write failed: %v", market.Key, err)
	}
	if err := store.Append(market.Key, records); err != nil {
		logger.Error("[%s] History append failed: %v", market.Key, err)
	}
	if pgWriter != nil {
		if err := pgWriter.Write(records); err != nil {
			logger.Error("[%s] PostgreSQL write failed: %v", market.Key, err)
		}
	}

	var fetcher storage.MarketFetcher
	if pgWriter != nil {
		fetcher = pgWriter
	}

	if history, ok := trendHistory(market.Key, store, fetcher, logger); ok {
		trendRows, orderedHistory := trendSvc.Generate(history)
		if err := store.WriteTrends(market.Key, trendRows); err != nil {
			logger.Error("[%s] Trend write failed: %v", market.Key, err)
		}
		if err := store.WriteAddressHistory(market.Key, orderedHistory); err != nil {
			logger.Error("[%s] Address history write failed: %v", market.Key, err)
		}
		logger.Info("[%s] %d records this run, %d tracked addresses", market.Key, len(records), len(trendRows))
	} else {
		logger.Warn("[%s] Skipping trend rewrite — prior trend output left untouched", market.Key)
	}

	summary, beds := summarySvc.Summarize(market.Key, today, records)
	summarySvc.Print(summary, beds)
	return summary, beds
}

// trendHistory sources one market's full history for trend aggregation.
// With the Postgres mirror enabled the history is read back from it,
// falling back to the CSV history on error; without it the CSV history is
// the only source. A second return of false means no trustworthy history
// could be read, and the trend output must not be rewritten with partial
// single-run rows.
func trendHistory(marketKey string, csvStore storage.HistoryStore, pg storage.MarketFetcher, logger *utils.Logger) ([]*models.SnapshotRecord, bool) {
	if pg != nil {
		history, err := pg.FetchMarket(marketKey)
		if err == nil {
			return history, true
		}
		logger.Warn("[%s] Postgres history read failed, falling back to CSV: %v", marketKey, err)
	}

	history, err := csvStore.ReadAll(marketKey)
	if err != nil {
		logger.Error("[%s] History read failed: %v", marketKey, err)
		return nil, false
	}
	return history, true
}

func buildRecord(marketKey, today, listingID string, page *finn.Page, raw *models.RawExtraction, priceMonthly int) *models.SnapshotRecord {
	var pricePerSqm *int
	if raw.FloorAreaSqm != nil && *raw.FloorAreaSqm != 0 {
		v := int(math.Round(float64(priceMonthly) / float64(*raw.FloorAreaSqm)))
		pricePerSqm = &v
	}

	city := raw.City
	if city == "" {
		city = raw.Region
	}

	return &models.SnapshotRecord{
		SnapshotDate: today,
		MarketKey:    marketKey,
		ListingID:    listingID,
		Title:        raw.Title,
		SourceURL:    page.URL,
		PriceMonthly: priceMonthly,
		FloorAreaSqm: raw.FloorAreaSqm,
		Bedrooms:     raw.Bedrooms,
		PricePerSqm:  pricePerSqm,
		Address:      raw.Address,
		PostalCode:   raw.PostalCode,
		City:         city,
		IdentityKey:  services.IdentityKey(raw.Address, raw.PostalCode, city),
	}
}
