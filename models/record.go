package models

// RawExtraction holds whatever fields could be located in one ad page's
// markup. Every field is optional: absence means the page did not expose
// that attribute, which is a normal outcome rather than an error. The
// struct lives only for the duration of one extraction call.
type RawExtraction struct {
	Title        string
	PriceAmount  *int
	PriceContext string // text surrounding the price, used to infer the billing period
	FloorAreaSqm *int
	Bedrooms     *int
	Address      string
	PostalCode   string
	City         string
	Region       string
}

// SnapshotRecord is the finalized per-ad, per-run record written to the
// append-only history. PriceMonthly is always set and inside the configured
// plausibility bounds; records that fail the filter are never materialized.
type SnapshotRecord struct {
	SnapshotDate string // ISO date of the run
	MarketKey    string
	ListingID    string // site-assigned, synthesized from the URL when unobtainable
	Title        string
	SourceURL    string
	PriceMonthly int
	FloorAreaSqm *int
	Bedrooms     *int
	PricePerSqm  *int // PriceMonthly / FloorAreaSqm, rounded; set only when area is known
	Address      string
	PostalCode   string
	City         string
	IdentityKey  string // normalized address key; "" means the record cannot be linked
}

// TrendRow is the per-identity longitudinal result: one row per physical
// unit, computed over every snapshot that observed it. Pointer fields are
// nil when the underlying statistic has no data, which is distinct from
// a zero value.
type TrendRow struct {
	IdentityKey       string
	LastSeen          string
	Observations      int
	LastPrice         *int
	PrevPrice         *int
	PriceChangeAbs    *int
	PriceChangePct    *float64
	AvgPrice          *float64
	MedianPrice       *float64
	AvgPricePerSqm    *float64
	MedianPricePerSqm *float64
	Address           string
	PostalCode        string
	City              string
	MarketKey         string
}

// MarketSummaryRow aggregates the latest snapshot of one market across all
// listings. Quantiles require at least four observations and stay nil below
// that.
type MarketSummaryRow struct {
	MarketKey      string
	SnapshotDate   string
	Listings       int
	AvgPrice       *float64
	MedianPrice    *float64
	P25Price       *float64
	P75Price       *float64
	AvgFloorArea   *float64
	AvgPricePerSqm *float64
}

// BedroomBreakdownRow repeats the market summary per distinct bedroom count
// observed in the latest snapshot.
type BedroomBreakdownRow struct {
	MarketKey      string
	SnapshotDate   string
	Bedrooms       int
	Listings       int
	AvgPrice       *float64
	AvgFloorArea   *float64
	AvgPricePerSqm *float64
}
