// Package materialize implements the two jobs over the WRITE store
// (spec.md §4.6): a fast latest-tick projection into the READ store, and a
// slower paged historical backfill pass that only advances an in-memory
// checkpoint over the minute and hour aggregates; the backfill copies no
// rows into the READ store. Grounded in the teacher's checkpointed
// batch-job shape.
package materialize

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/perpwatch/perpwatch/internal/decimalx"
	"github.com/perpwatch/perpwatch/internal/funding"
	"github.com/perpwatch/perpwatch/internal/model"
	"github.com/perpwatch/perpwatch/internal/store/readdb"
	"github.com/perpwatch/perpwatch/internal/store/writedb"
	"github.com/perpwatch/perpwatch/internal/symbol"
)

const backfillPageSize = 1000

// Engine bridges the WRITE and READ stores.
type Engine struct {
	Write *writedb.Store
	Read  *readdb.Store

	// checkpoint tracks the historical-backfill job's progress per tier in
	// memory, so each run pages on from where this Engine's previous run
	// stopped; a new process starts again from zero (paged 1000 rows at a
	// time).
	minuteCheckpoint int64
	hourCheckpoint   int64
}

func New(write *writedb.Store, read *readdb.Store) *Engine {
	return &Engine{Write: write, Read: read}
}

// LatestProjection upserts one LatestMarket row per (exchange, original
// symbol) observed in the last `lookback` of raw ticks (spec.md §4.6, runs
// every 5 minutes).
func (e *Engine) LatestProjection(ctx context.Context, now time.Time, lookback time.Duration) error {
	cutoff := now.Add(-lookback).Unix()

	ticks, err := e.Write.LatestRawTicksSince(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("materialize: fetch latest raw ticks: %w", err)
	}

	for _, t := range ticks {
		raw, err := decimalx.Parse(t.FundingRate)
		if err != nil {
			log.Warn().Err(err).Str("exchange", t.Exchange).Str("symbol", t.OriginalSymbol).Msg("skipping tick with unparseable funding rate")
			continue
		}
		views := funding.Normalize(t.Exchange, raw)

		m := model.LatestMarket{
			CanonicalSymbol:   symbol.Normalize(t.OriginalSymbol),
			Exchange:          t.Exchange,
			OriginalSymbol:    t.OriginalSymbol,
			MarkPrice:         t.MarkPrice,
			IndexPrice:        t.IndexPrice,
			OpenInterestUSD:   t.OpenInterestUSD,
			Volume24h:         t.Volume24h,
			FundingRate:       decimalx.String(views.Raw),
			FundingRateHourly: decimalx.String(views.Hourly),
			FundingRateAnnual: decimalx.String(views.AnnualPct),
			NextFundingAt:     t.NextFundingAt,
			Change24h:         t.Change24h,
			Low24h:            t.Low24h,
			High24h:           t.High24h,
			UpdatedAt:         now.Unix(),
		}
		if err := e.Read.UpsertLatestMarket(ctx, m); err != nil {
			return fmt.Errorf("materialize: upsert latest market %s/%s: %w", t.Exchange, t.OriginalSymbol, err)
		}
	}

	log.Info().Int("markets", len(ticks)).Msg("latest projection updated")
	return nil
}

// BackfillHistory pages through minute and hour aggregates newer than the
// job's in-memory checkpoint, writing nothing to the READ store itself
// (history reads pass through to the WRITE-side tables directly) but
// advancing the checkpoint so a caller can drive alerting/derived work off
// of "new data since last run" without rescanning (spec.md §4.6, runs
// daily, paged 1000 rows/page).
func (e *Engine) BackfillHistory(ctx context.Context) (minuteRows, hourRows int, err error) {
	for {
		page, err := e.Write.MinuteAggregatesNewerThan(ctx, e.minuteCheckpoint, backfillPageSize)
		if err != nil {
			return minuteRows, hourRows, fmt.Errorf("materialize: page minute aggregates: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, row := range page {
			if row.Bucket > e.minuteCheckpoint {
				e.minuteCheckpoint = row.Bucket
			}
		}
		minuteRows += len(page)
		if len(page) < backfillPageSize {
			break
		}
	}

	for {
		page, err := e.Write.HourAggregatesNewerThan(ctx, e.hourCheckpoint, backfillPageSize)
		if err != nil {
			return minuteRows, hourRows, fmt.Errorf("materialize: page hour aggregates: %w", err)
		}
		if len(page) == 0 {
			break
		}
		for _, row := range page {
			if row.Bucket > e.hourCheckpoint {
				e.hourCheckpoint = row.Bucket
			}
		}
		hourRows += len(page)
		if len(page) < backfillPageSize {
			break
		}
	}

	log.Info().Int("minute_rows", minuteRows).Int("hour_rows", hourRows).
		Int64("minute_checkpoint", e.minuteCheckpoint).Int64("hour_checkpoint", e.hourCheckpoint).
		Msg("historical backfill checkpoint advanced")
	return minuteRows, hourRows, nil
}
