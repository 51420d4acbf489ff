package services

import (
	"rental-radar/utils"
)

// RejectReason tags why an extraction was dropped by the filter.
type RejectReason string

const (
	RejectNoPrice         RejectReason = "no_price"
	RejectPriceOutOfRange RejectReason = "price_out_of_range"
	RejectAreaOutOfRange  RejectReason = "area_out_of_range"
)

// Bounds holds the plausibility limits applied to every extraction. They are
// market-invariant but configurable per run.
type Bounds struct {
	MinPrice int
	MaxPrice int
	MinArea  int
	MaxArea  int
}

// Filter drops extractions that are obviously wrong: missing price, price
// outliers, area outliers. Rejections are counted per reason; a rejected ad
// never produces a snapshot record.
type Filter struct {
	bounds  Bounds
	logger  *utils.Logger
	dropped map[RejectReason]int
}

// NewFilter creates a Filter with the given bounds.
func NewFilter(bounds Bounds, logger *utils.Logger) *Filter {
	return &Filter{
		bounds:  bounds,
		logger:  logger,
		dropped: make(map[RejectReason]int),
	}
}

// Check decides whether a normalized extraction is plausible. The price must
// lie strictly between the bounds; the floor area, when present, must lie
// within its bounds inclusive. A missing area is acceptable metadata, a
// missing price is not.
func (f *Filter) Check(priceMonthly *int, floorAreaSqm *int) (RejectReason, bool) {
	if priceMonthly == nil {
		f.dropped[RejectNoPrice]++
		return RejectNoPrice, false
	}
	if *priceMonthly <= f.bounds.MinPrice || *priceMonthly >= f.bounds.MaxPrice {
		f.dropped[RejectPriceOutOfRange]++
		return RejectPriceOutOfRange, false
	}
	if floorAreaSqm != nil && (*floorAreaSqm < f.bounds.MinArea || *floorAreaSqm > f.bounds.MaxArea) {
		f.dropped[RejectAreaOutOfRange]++
		return RejectAreaOutOfRange, false
	}
	return "", true
}

// Dropped returns the per-reason rejection counts accumulated so far.
func (f *Filter) Dropped() map[RejectReason]int {
	out := make(map[RejectReason]int, len(f.dropped))
	for k, v := range f.dropped {
		out[k] = v
	}
	return out
}

// LogSummary reports kept/dropped counts for one market run.
func (f *Filter) LogSummary(marketKey string, kept int) {
	f.logger.Info("[filter] %s: kept %d listings (dropped: %d without price, %d outside price bounds, %d outside area bounds)",
		marketKey, kept,
		f.dropped[RejectNoPrice],
		f.dropped[RejectPriceOutOfRange],
		f.dropped[RejectAreaOutOfRange])
}
