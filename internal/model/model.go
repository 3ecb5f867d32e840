// Package model holds the wire/storage shapes for every entity in spec.md
// §3: RawTick, MinuteAggregate, HourAggregate, LatestMarket, FundingMA,
// ArbitrageOpportunity, and TrackerStatus. Prices and rates are carried as
// decimal strings per the teacher's "string decimals" convention (see
// internal/decimalx) and only parsed into decimal.Decimal for arithmetic.
package model

import "time"

// RawTick is one observation for one (exchange, original symbol). See
// spec.md §3 "RawTick".
type RawTick struct {
	ID             int64     `db:"id"`
	Exchange       string    `db:"exchange"`
	OriginalSymbol string    `db:"original_symbol"`
	MarketID       string    `db:"market_id"`
	MarkPrice      string    `db:"mark_price"`
	IndexPrice     string    `db:"index_price"`
	LastPrice      string    `db:"last_price"`
	OpenInterest   string    `db:"open_interest"`
	OpenInterestUSD string   `db:"open_interest_usd"`
	FundingRate    string    `db:"funding_rate"`
	NextFundingAt  *int64    `db:"next_funding_at"` // ms, nullable
	Volume24h      float64   `db:"volume_24h"`
	QuoteVolume24h float64   `db:"quote_volume_24h"`
	Low24h         float64   `db:"low_24h"`
	High24h        float64   `db:"high_24h"`
	Change24h      float64   `db:"change_24h"`
	RecordedAt     int64     `db:"recorded_at"` // ms, producer clock
	CreatedAt      int64     `db:"created_at"`  // s, truncated
}

// MinuteAggregate is one (exchange, original symbol, minute bucket) roll-up.
// See spec.md §3 "MinuteAggregate".
type MinuteAggregate struct {
	Exchange          string  `db:"exchange"`
	OriginalSymbol    string  `db:"original_symbol"`
	NormalizedSymbol  string  `db:"normalized_symbol"`
	Bucket            int64   `db:"minute_bucket"` // s, bucket start
	AvgMarkPrice      float64 `db:"avg_mark_price"`
	AvgIndexPrice     float64 `db:"avg_index_price"`
	MinPrice          float64 `db:"min_price"`
	MaxPrice          float64 `db:"max_price"`
	PriceVolatility   float64 `db:"price_volatility"`
	SumBaseVolume     float64 `db:"sum_base_volume"`
	SumQuoteVolume    float64 `db:"sum_quote_volume"`
	AvgOpenInterest   float64 `db:"avg_open_interest"`
	MaxOpenInterest   float64 `db:"max_open_interest"`
	AvgOpenInterestUSD float64 `db:"avg_open_interest_usd"`
	MaxOpenInterestUSD float64 `db:"max_open_interest_usd"`
	AvgFundingRate    float64 `db:"avg_funding_rate"`
	MinFundingRate    float64 `db:"min_funding_rate"`
	MaxFundingRate    float64 `db:"max_funding_rate"`
	AvgFundingRateAnnual float64 `db:"avg_funding_rate_annual"`
	SampleCount       int     `db:"sample_count"`
	CreatedAt         int64   `db:"created_at"` // s, roll-up time
}

// HourAggregate has the identical schema to MinuteAggregate, keyed by hour
// bucket instead of minute bucket. See spec.md §3 "HourAggregate".
type HourAggregate struct {
	Exchange          string  `db:"exchange"`
	OriginalSymbol    string  `db:"original_symbol"`
	NormalizedSymbol  string  `db:"normalized_symbol"`
	Bucket            int64   `db:"hour_bucket"`
	AvgMarkPrice      float64 `db:"avg_mark_price"`
	AvgIndexPrice     float64 `db:"avg_index_price"`
	MinPrice          float64 `db:"min_price"`
	MaxPrice          float64 `db:"max_price"`
	PriceVolatility   float64 `db:"price_volatility"`
	SumBaseVolume     float64 `db:"sum_base_volume"`
	SumQuoteVolume    float64 `db:"sum_quote_volume"`
	AvgOpenInterest   float64 `db:"avg_open_interest"`
	MaxOpenInterest   float64 `db:"max_open_interest"`
	AvgOpenInterestUSD float64 `db:"avg_open_interest_usd"`
	MaxOpenInterestUSD float64 `db:"max_open_interest_usd"`
	AvgFundingRate    float64 `db:"avg_funding_rate"`
	MinFundingRate    float64 `db:"min_funding_rate"`
	MaxFundingRate    float64 `db:"max_funding_rate"`
	AvgFundingRateAnnual float64 `db:"avg_funding_rate_annual"`
	SampleCount       int     `db:"sample_count"`
	CreatedAt         int64   `db:"created_at"`
}

// LatestMarket is the read projection: one row per (exchange, canonical
// symbol). See spec.md §3 "LatestMarket".
type LatestMarket struct {
	CanonicalSymbol    string   `db:"canonical_symbol"`
	Exchange           string   `db:"exchange"`
	OriginalSymbol     string   `db:"original_symbol"`
	MarkPrice          string   `db:"mark_price"`
	IndexPrice         string   `db:"index_price"`
	OpenInterestUSD    string   `db:"open_interest_usd"`
	Volume24h          float64  `db:"volume_24h"`
	FundingRate        string   `db:"funding_rate"`
	FundingRateHourly  string   `db:"funding_rate_hourly"`
	FundingRateAnnual  string   `db:"funding_rate_annual"`
	NextFundingAt      *int64   `db:"next_funding_at"`
	Change24h          float64  `db:"change_24h"`
	Low24h             float64  `db:"low_24h"`
	High24h            float64  `db:"high_24h"`
	Volatility24h      *float64 `db:"volatility_24h"`
	Volatility7d       *float64 `db:"volatility_7d"`
	ATR14              *float64 `db:"atr_14"`
	BollingerWidth     *float64 `db:"bollinger_width"`
	UpdatedAt          int64    `db:"updated_at"` // s
}

// Window names a funding-MA / arbitrage look-back period (spec.md GLOSSARY).
type Window string

const (
	Window24h Window = "24h"
	Window3d  Window = "3d"
	Window7d  Window = "7d"
	Window14d Window = "14d"
	Window30d Window = "30d"
)

// Windows lists every window in the fixed evaluation order used for
// arbitrage stability scoring (spec.md §4.7 step 5).
var Windows = []Window{Window24h, Window3d, Window7d, Window14d, Window30d}

// Duration returns the look-back duration for a window.
func (w Window) Duration() time.Duration {
	switch w {
	case Window24h:
		return 24 * time.Hour
	case Window3d:
		return 3 * 24 * time.Hour
	case Window7d:
		return 7 * 24 * time.Hour
	case Window14d:
		return 14 * 24 * time.Hour
	case Window30d:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// FundingMA is one (canonical symbol, exchange, window) moving average row.
// See spec.md §3 "FundingMA".
type FundingMA struct {
	CanonicalSymbol  string  `db:"canonical_symbol"`
	Exchange         string  `db:"exchange"`
	Window           string  `db:"window"`
	AvgRate          float64 `db:"avg_rate"`
	AvgRateAnnual    float64 `db:"avg_rate_annual"`
	SampleCount      int     `db:"sample_count"`
	CalculatedAt     int64   `db:"calculated_at"`
}

// ArbitrageOpportunity is one (canonical symbol, long exchange, short
// exchange, window) row. See spec.md §3 "ArbitrageOpportunity".
type ArbitrageOpportunity struct {
	CanonicalSymbol string  `db:"canonical_symbol"`
	LongExchange    string  `db:"long_exchange"`
	ShortExchange   string  `db:"short_exchange"`
	Window          string  `db:"window"`
	LongRate        float64 `db:"long_rate"`
	ShortRate       float64 `db:"short_rate"`
	LongRateAnnual  float64 `db:"long_rate_annual"`
	ShortRateAnnual float64 `db:"short_rate_annual"`
	Spread          float64 `db:"spread"`
	SpreadAPR       float64 `db:"spread_apr"`
	StabilityScore  int     `db:"stability_score"`
	IsStable        bool    `db:"is_stable"`
	CalculatedAt    int64   `db:"calculated_at"`
}

// TrackerState enumerates the per-venue tracker lifecycle (spec.md §3/§4.2).
type TrackerState string

const (
	StateInitialized  TrackerState = "initialized"
	StateRunning      TrackerState = "running"
	StateDisconnected TrackerState = "disconnected"
	StateError        TrackerState = "error"
	StateStopped      TrackerState = "stopped"
	StateFailed       TrackerState = "failed"
)

// TrackerStatus is one row per exchange. See spec.md §3 "TrackerStatus".
type TrackerStatus struct {
	Exchange          string       `db:"exchange"`
	State             TrackerState `db:"state"`
	LastMessageAt     int64        `db:"last_message_at"`
	LastError         string       `db:"last_error"`
	ReconnectCount    int          `db:"reconnect_count"`
	UpdatedAt         int64        `db:"updated_at"`
	BufferDepth       int          `db:"-" json:"buffer_depth,omitempty"` // live-only, not persisted; populated by Tracker.Snapshot
}
