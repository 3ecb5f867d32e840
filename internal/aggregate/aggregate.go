// Package aggregate implements the tiered roll-up jobs (spec.md §4.5):
// raw ticks fold into per-minute aggregates, minute aggregates fold into
// per-hour aggregates, and old rows age out on a retention sweep. Grounded
// in the teacher's scheduler-driven job shape (cmd/cryptorun's periodic
// regime-refresh ticker loop), generalized into standalone Job values the
// internal/scheduler package drives.
package aggregate

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/perpwatch/perpwatch/internal/funding"
	"github.com/perpwatch/perpwatch/internal/model"
	"github.com/perpwatch/perpwatch/internal/store/writedb"
	"github.com/perpwatch/perpwatch/internal/symbol"
)

const (
	// maxBucketsPerRun bounds a single invocation's work (spec.md §4.5:
	// "at most 20 one-hour windows per invocation").
	maxBucketsPerRun = 20
	rawBatchLimit    = 5000
)

// Engine owns both tiers of roll-up against the WRITE store.
type Engine struct {
	Store *writedb.Store
}

func New(store *writedb.Store) *Engine {
	return &Engine{Store: store}
}

// RollupRawToMinute folds raw ticks older than the start of the minute that
// contains now-minuteLag into market_stats_1m buckets, then deletes the
// consumed raw rows (spec.md §4.5, runs every 5 minutes). minuteLag guards
// against folding a bucket that might still receive late ticks from an
// in-flight snapshot cycle.
func (e *Engine) RollupRawToMinute(ctx context.Context, now time.Time, minuteLag time.Duration) error {
	cutoff := minuteBucket(now.Add(-minuteLag).Unix())

	ticks, err := e.Store.RawTicksOlderThan(ctx, cutoff, rawBatchLimit)
	if err != nil {
		return fmt.Errorf("aggregate: fetch raw ticks: %w", err)
	}
	if len(ticks) == 0 {
		return nil
	}

	type bucketKey struct {
		exchange, symbol string
		minute           int64
	}
	buckets := make(map[bucketKey][]model.RawTick)
	for _, t := range ticks {
		key := bucketKey{t.Exchange, t.OriginalSymbol, minuteBucket(t.CreatedAt)}
		buckets[key] = append(buckets[key], t)
	}

	minBucket, maxBucket := int64(math.MaxInt64), int64(0)
	written := 0
	for key, rows := range buckets {
		agg := foldMinute(key.exchange, key.symbol, key.minute, rows, now)
		if err := e.Store.UpsertMinuteAggregate(ctx, agg); err != nil {
			return fmt.Errorf("aggregate: upsert minute bucket %d: %w", key.minute, err)
		}
		if key.minute < minBucket {
			minBucket = key.minute
		}
		if key.minute > maxBucket {
			maxBucket = key.minute
		}
		written++
	}

	deleted, err := e.Store.DeleteRawTicksInWindow(ctx, minBucket, maxBucket+60)
	if err != nil {
		return fmt.Errorf("aggregate: delete consumed raw ticks: %w", err)
	}

	log.Info().Int("buckets", written).Int64("deleted_raw", deleted).Msg("rolled up raw ticks to minute aggregates")
	return nil
}

// RollupMinuteToHour folds completed hour windows of minute aggregates into
// market_history, weighted by each minute bucket's sample_count (spec.md
// §4.5, runs hourly). It processes at most maxBucketsPerRun hour windows per
// invocation so a large backlog cannot block the scheduler indefinitely.
func (e *Engine) RollupMinuteToHour(ctx context.Context, now time.Time) error {
	currentHour := hourBucket(now.Unix())
	pairs, err := e.Store.DistinctExchangeSymbolsSince(ctx, currentHour-int64(maxBucketsPerRun)*3600, currentHour)
	if err != nil {
		return fmt.Errorf("aggregate: list distinct symbols: %w", err)
	}

	processed := 0
	for _, pair := range pairs {
		if processed >= maxBucketsPerRun {
			log.Warn().Int("limit", maxBucketsPerRun).Msg("minute->hour rollup hit per-run cap, remaining buckets deferred")
			break
		}
		exchange, sym := pair[0], pair[1]
		for hour := currentHour - int64(maxBucketsPerRun)*3600; hour < currentHour; hour += 3600 {
			minuteRows, err := e.Store.MinuteAggregatesInBucketRange(ctx, exchange, sym, hour, hour+3600)
			if err != nil {
				return fmt.Errorf("aggregate: fetch minute rows for %s/%s: %w", exchange, sym, err)
			}
			if len(minuteRows) == 0 {
				continue
			}
			agg := foldHour(exchange, sym, hour, minuteRows, now)
			if err := e.Store.UpsertHourAggregate(ctx, agg); err != nil {
				return fmt.Errorf("aggregate: upsert hour bucket %d for %s/%s: %w", hour, exchange, sym, err)
			}
			processed++
		}
	}

	log.Info().Int("hour_buckets", processed).Msg("rolled up minute aggregates to hour aggregates")
	return nil
}

// Retention deletes minute and hour aggregates older than their configured
// horizons (spec.md §4.5, runs daily).
func (e *Engine) Retention(ctx context.Context, now time.Time, minuteHorizon, hourHorizon time.Duration) error {
	minuteCutoff := now.Add(-minuteHorizon).Unix()
	hourCutoff := now.Add(-hourHorizon).Unix()

	deletedMinutes, err := e.Store.DeleteMinuteAggregatesOlderThan(ctx, minuteCutoff)
	if err != nil {
		return fmt.Errorf("aggregate: retention sweep minute tier: %w", err)
	}
	deletedHours, err := e.Store.DeleteHourAggregatesOlderThan(ctx, hourCutoff)
	if err != nil {
		return fmt.Errorf("aggregate: retention sweep hour tier: %w", err)
	}

	log.Info().Int64("deleted_minute_rows", deletedMinutes).Int64("deleted_hour_rows", deletedHours).Msg("retention sweep complete")
	return nil
}

func minuteBucket(unixSeconds int64) int64 { return unixSeconds - (unixSeconds % 60) }
func hourBucket(unixSeconds int64) int64   { return unixSeconds - (unixSeconds % 3600) }

func foldMinute(exchange, sym string, bucket int64, rows []model.RawTick, now time.Time) model.MinuteAggregate {
	var sumMark, sumIndex, sumBase, sumQuote, sumOI, sumOIUSD, sumFunding float64
	var minPrice, maxPrice, minFunding, maxFunding, maxOI, maxOIUSD float64
	minPrice, minFunding = math.MaxFloat64, math.MaxFloat64

	for _, r := range rows {
		mark := parseFloat(r.MarkPrice)
		idx := parseFloat(r.IndexPrice)
		oi := parseFloat(r.OpenInterest)
		oiUSD := parseFloat(r.OpenInterestUSD)
		fundingRate := parseFloat(r.FundingRate)

		sumMark += mark
		sumIndex += idx
		sumBase += r.Volume24h
		sumQuote += r.QuoteVolume24h
		sumOI += oi
		sumOIUSD += oiUSD
		sumFunding += fundingRate

		if mark < minPrice {
			minPrice = mark
		}
		if mark > maxPrice {
			maxPrice = mark
		}
		if fundingRate < minFunding {
			minFunding = fundingRate
		}
		if fundingRate > maxFunding {
			maxFunding = fundingRate
		}
		if oi > maxOI {
			maxOI = oi
		}
		if oiUSD > maxOIUSD {
			maxOIUSD = oiUSD
		}
	}

	n := float64(len(rows))
	avgMark := sumMark / n
	avgFunding := sumFunding / n

	return model.MinuteAggregate{
		Exchange:             exchange,
		OriginalSymbol:       sym,
		NormalizedSymbol:     symbol.Normalize(sym),
		Bucket:               bucket,
		AvgMarkPrice:         avgMark,
		AvgIndexPrice:        sumIndex / n,
		MinPrice:             minPrice,
		MaxPrice:             maxPrice,
		PriceVolatility:      priceVolatility(minPrice, maxPrice, avgMark),
		SumBaseVolume:        sumBase,
		SumQuoteVolume:       sumQuote,
		AvgOpenInterest:      sumOI / n,
		MaxOpenInterest:      maxOI,
		AvgOpenInterestUSD:   sumOIUSD / n,
		MaxOpenInterestUSD:   maxOIUSD,
		AvgFundingRate:       avgFunding,
		MinFundingRate:       minFunding,
		MaxFundingRate:       maxFunding,
		AvgFundingRateAnnual: annualizeAverageFundingRate(exchange, avgFunding),
		SampleCount:          len(rows),
		CreatedAt:            now.Unix(),
	}
}

func foldHour(exchange, sym string, bucket int64, rows []model.MinuteAggregate, now time.Time) model.HourAggregate {
	var totalSamples int
	var sumMark, sumIndex, sumBase, sumQuote, sumOI, sumOIUSD, sumFunding float64
	var minPrice, maxPrice, minFunding, maxFunding, maxOI, maxOIUSD float64
	minPrice, minFunding = math.MaxFloat64, math.MaxFloat64

	for _, r := range rows {
		w := float64(r.SampleCount)
		totalSamples += r.SampleCount
		sumMark += r.AvgMarkPrice * w
		sumIndex += r.AvgIndexPrice * w
		sumBase += r.SumBaseVolume
		sumQuote += r.SumQuoteVolume
		sumOI += r.AvgOpenInterest * w
		sumOIUSD += r.AvgOpenInterestUSD * w
		sumFunding += r.AvgFundingRate * w

		if r.MinPrice < minPrice {
			minPrice = r.MinPrice
		}
		if r.MaxPrice > maxPrice {
			maxPrice = r.MaxPrice
		}
		if r.MinFundingRate < minFunding {
			minFunding = r.MinFundingRate
		}
		if r.MaxFundingRate > maxFunding {
			maxFunding = r.MaxFundingRate
		}
		if r.MaxOpenInterest > maxOI {
			maxOI = r.MaxOpenInterest
		}
		if r.MaxOpenInterestUSD > maxOIUSD {
			maxOIUSD = r.MaxOpenInterestUSD
		}
	}

	n := float64(totalSamples)
	if n == 0 {
		n = 1
	}
	avgMark := sumMark / n
	avgFunding := sumFunding / n

	return model.HourAggregate{
		Exchange:             exchange,
		OriginalSymbol:       sym,
		NormalizedSymbol:     symbol.Normalize(sym),
		Bucket:               bucket,
		AvgMarkPrice:         avgMark,
		AvgIndexPrice:        sumIndex / n,
		MinPrice:             minPrice,
		MaxPrice:             maxPrice,
		PriceVolatility:      priceVolatility(minPrice, maxPrice, avgMark),
		SumBaseVolume:        sumBase,
		SumQuoteVolume:       sumQuote,
		AvgOpenInterest:      sumOI / n,
		MaxOpenInterest:      maxOI,
		AvgOpenInterestUSD:   sumOIUSD / n,
		MaxOpenInterestUSD:   maxOIUSD,
		AvgFundingRate:       avgFunding,
		MinFundingRate:       minFunding,
		MaxFundingRate:       maxFunding,
		AvgFundingRateAnnual: annualizeAverageFundingRate(exchange, avgFunding),
		SampleCount:          totalSamples,
		CreatedAt:            now.Unix(),
	}
}

// priceVolatility is spec.md §3's range-over-average measure:
// (max-min)/avg * 100. Guards avg=0 (an all-zero bucket) to avoid a NaN.
func priceVolatility(minPrice, maxPrice, avg float64) float64 {
	if avg == 0 {
		return 0
	}
	return (maxPrice - minPrice) / avg * 100
}

// annualizeAverageFundingRate takes the bucket's averaged raw funding rate
// (still per the exchange's native payment interval, e.g. every 8h) and
// routes it through internal/funding's venue interval table before
// annualizing, per spec.md §4.4/§4.5: the interval used is the one on
// record for exchange at aggregation time, not a fixed hourly assumption.
func annualizeAverageFundingRate(exchange string, avgRaw float64) float64 {
	views := funding.Normalize(exchange, decimal.NewFromFloat(avgRaw))
	annual, _ := views.AnnualPct.Float64()
	return annual
}

func parseFloat(s string) float64 {
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	if err != nil {
		return 0
	}
	return f
}
