// Package writedb is the WRITE store (spec.md §2 component C, §6): the
// append-only raw-tick table plus per-minute and per-hour aggregates.
// Grounded in the teacher's internal/persistence/postgres package (sqlx +
// lib/pq, transactional batch inserts, prepared statements).
package writedb

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/perpwatch/perpwatch/internal/model"
)

// Store is the WRITE-side database handle. It is injected into every
// component that needs it (design note "Global environment with two DB
// handles" -> inject distinct DB client values, never reach for a global).
type Store struct {
	DB      *sqlx.DB
	Timeout time.Duration
}

// Open connects to the WRITE Postgres instance.
func Open(dsn string, timeout time.Duration) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("writedb: connect: %w", err)
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Store{DB: db, Timeout: timeout}, nil
}

// Schema is the stable relational layout (spec.md §6).
const Schema = `
CREATE TABLE IF NOT EXISTS market_stats (
	id               BIGSERIAL PRIMARY KEY,
	exchange         TEXT NOT NULL,
	original_symbol  TEXT NOT NULL,
	market_id        TEXT NOT NULL DEFAULT '',
	mark_price       TEXT NOT NULL,
	index_price      TEXT NOT NULL DEFAULT '0',
	last_price       TEXT NOT NULL DEFAULT '0',
	open_interest    TEXT NOT NULL DEFAULT '0',
	open_interest_usd TEXT NOT NULL DEFAULT '0',
	funding_rate     TEXT NOT NULL DEFAULT '0',
	next_funding_at  BIGINT,
	volume_24h       DOUBLE PRECISION NOT NULL DEFAULT 0,
	quote_volume_24h DOUBLE PRECISION NOT NULL DEFAULT 0,
	low_24h          DOUBLE PRECISION NOT NULL DEFAULT 0,
	high_24h         DOUBLE PRECISION NOT NULL DEFAULT 0,
	change_24h       DOUBLE PRECISION NOT NULL DEFAULT 0,
	recorded_at      BIGINT NOT NULL,
	created_at       BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_market_stats_exch_sym_created
	ON market_stats (exchange, original_symbol, created_at);

CREATE TABLE IF NOT EXISTS market_stats_1m (
	exchange              TEXT NOT NULL,
	original_symbol       TEXT NOT NULL,
	normalized_symbol     TEXT NOT NULL,
	minute_bucket         BIGINT NOT NULL,
	avg_mark_price        DOUBLE PRECISION NOT NULL,
	avg_index_price       DOUBLE PRECISION NOT NULL,
	min_price             DOUBLE PRECISION NOT NULL,
	max_price             DOUBLE PRECISION NOT NULL,
	price_volatility      DOUBLE PRECISION NOT NULL,
	sum_base_volume       DOUBLE PRECISION NOT NULL,
	sum_quote_volume      DOUBLE PRECISION NOT NULL,
	avg_open_interest     DOUBLE PRECISION NOT NULL,
	max_open_interest     DOUBLE PRECISION NOT NULL,
	avg_open_interest_usd DOUBLE PRECISION NOT NULL,
	max_open_interest_usd DOUBLE PRECISION NOT NULL,
	avg_funding_rate      DOUBLE PRECISION NOT NULL,
	min_funding_rate      DOUBLE PRECISION NOT NULL,
	max_funding_rate      DOUBLE PRECISION NOT NULL,
	avg_funding_rate_annual DOUBLE PRECISION NOT NULL,
	sample_count          INTEGER NOT NULL,
	created_at            BIGINT NOT NULL,
	PRIMARY KEY (exchange, original_symbol, minute_bucket)
);

CREATE TABLE IF NOT EXISTS market_history (
	exchange              TEXT NOT NULL,
	original_symbol       TEXT NOT NULL,
	normalized_symbol     TEXT NOT NULL,
	hour_bucket           BIGINT NOT NULL,
	avg_mark_price        DOUBLE PRECISION NOT NULL,
	avg_index_price       DOUBLE PRECISION NOT NULL,
	min_price             DOUBLE PRECISION NOT NULL,
	max_price             DOUBLE PRECISION NOT NULL,
	price_volatility      DOUBLE PRECISION NOT NULL,
	sum_base_volume       DOUBLE PRECISION NOT NULL,
	sum_quote_volume      DOUBLE PRECISION NOT NULL,
	avg_open_interest     DOUBLE PRECISION NOT NULL,
	max_open_interest     DOUBLE PRECISION NOT NULL,
	avg_open_interest_usd DOUBLE PRECISION NOT NULL,
	max_open_interest_usd DOUBLE PRECISION NOT NULL,
	avg_funding_rate      DOUBLE PRECISION NOT NULL,
	min_funding_rate      DOUBLE PRECISION NOT NULL,
	max_funding_rate      DOUBLE PRECISION NOT NULL,
	avg_funding_rate_annual DOUBLE PRECISION NOT NULL,
	sample_count          INTEGER NOT NULL,
	created_at            BIGINT NOT NULL,
	PRIMARY KEY (exchange, original_symbol, hour_bucket)
);
`

// InsertTicks batch-inserts a snapshot cycle's drained buffer in a single
// transaction (spec.md §4.2 step 3 "batch-insert ... in a single
// multi-statement batch"), grounded in the teacher's
// tradesRepo.InsertBatch.
func (s *Store) InsertTicks(ctx context.Context, ticks []model.RawTick) error {
	if len(ticks) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("writedb: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO market_stats
			(exchange, original_symbol, market_id, mark_price, index_price, last_price,
			 open_interest, open_interest_usd, funding_rate, next_funding_at,
			 volume_24h, quote_volume_24h, low_24h, high_24h, change_24h,
			 recorded_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`)
	if err != nil {
		return fmt.Errorf("writedb: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range ticks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("writedb: reject tick: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			t.Exchange, t.OriginalSymbol, t.MarketID, t.MarkPrice, t.IndexPrice, t.LastPrice,
			t.OpenInterest, t.OpenInterestUSD, t.FundingRate, t.NextFundingAt,
			t.Volume24h, t.QuoteVolume24h, t.Low24h, t.High24h, t.Change24h,
			t.RecordedAt, t.CreatedAt,
		); err != nil {
			return fmt.Errorf("writedb: insert tick: %w", err)
		}
	}

	return tx.Commit()
}

// RawTicksOlderThan returns raw ticks with created_at strictly before
// cutoff, ordered by created_at, limited to at most limit rows — the
// aggregation engine's raw->minute input selection (spec.md §4.5).
func (s *Store) RawTicksOlderThan(ctx context.Context, cutoff int64, limit int) ([]model.RawTick, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var ticks []model.RawTick
	err := s.DB.SelectContext(ctx, &ticks, `
		SELECT id, exchange, original_symbol, market_id, mark_price, index_price, last_price,
		       open_interest, open_interest_usd, funding_rate, next_funding_at,
		       volume_24h, quote_volume_24h, low_24h, high_24h, change_24h,
		       recorded_at, created_at
		FROM market_stats
		WHERE created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("writedb: select raw ticks: %w", err)
	}
	return ticks, nil
}

// DeleteRawTicksInWindow deletes raw ticks whose created_at falls in
// [from, to) — used after a bucket has been fully aggregated (spec.md
// §4.5 "delete the consumed raw rows").
func (s *Store) DeleteRawTicksInWindow(ctx context.Context, from, to int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	res, err := s.DB.ExecContext(ctx, `DELETE FROM market_stats WHERE created_at >= $1 AND created_at < $2`, from, to)
	if err != nil {
		return 0, fmt.Errorf("writedb: delete raw ticks: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// UpsertMinuteAggregate replaces (or inserts) one MinuteAggregate row,
// keyed by (exchange, original_symbol, minute_bucket).
func (s *Store) UpsertMinuteAggregate(ctx context.Context, a model.MinuteAggregate) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO market_stats_1m
			(exchange, original_symbol, normalized_symbol, minute_bucket,
			 avg_mark_price, avg_index_price, min_price, max_price, price_volatility,
			 sum_base_volume, sum_quote_volume, avg_open_interest, max_open_interest,
			 avg_open_interest_usd, max_open_interest_usd,
			 avg_funding_rate, min_funding_rate, max_funding_rate, avg_funding_rate_annual,
			 sample_count, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		ON CONFLICT (exchange, original_symbol, minute_bucket) DO UPDATE SET
			normalized_symbol = EXCLUDED.normalized_symbol,
			avg_mark_price = EXCLUDED.avg_mark_price,
			avg_index_price = EXCLUDED.avg_index_price,
			min_price = EXCLUDED.min_price,
			max_price = EXCLUDED.max_price,
			price_volatility = EXCLUDED.price_volatility,
			sum_base_volume = EXCLUDED.sum_base_volume,
			sum_quote_volume = EXCLUDED.sum_quote_volume,
			avg_open_interest = EXCLUDED.avg_open_interest,
			max_open_interest = EXCLUDED.max_open_interest,
			avg_open_interest_usd = EXCLUDED.avg_open_interest_usd,
			max_open_interest_usd = EXCLUDED.max_open_interest_usd,
			avg_funding_rate = EXCLUDED.avg_funding_rate,
			min_funding_rate = EXCLUDED.min_funding_rate,
			max_funding_rate = EXCLUDED.max_funding_rate,
			avg_funding_rate_annual = EXCLUDED.avg_funding_rate_annual,
			sample_count = EXCLUDED.sample_count,
			created_at = EXCLUDED.created_at`,
		a.Exchange, a.OriginalSymbol, a.NormalizedSymbol, a.Bucket,
		a.AvgMarkPrice, a.AvgIndexPrice, a.MinPrice, a.MaxPrice, a.PriceVolatility,
		a.SumBaseVolume, a.SumQuoteVolume, a.AvgOpenInterest, a.MaxOpenInterest,
		a.AvgOpenInterestUSD, a.MaxOpenInterestUSD,
		a.AvgFundingRate, a.MinFundingRate, a.MaxFundingRate, a.AvgFundingRateAnnual,
		a.SampleCount, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("writedb: upsert minute aggregate: %w", err)
	}
	return nil
}

// MinuteAggregatesInBucketRange returns one (exchange, symbol) pair's
// minute aggregates whose bucket falls in [from, to) — the minute->hour
// job's input selection (spec.md §4.5).
func (s *Store) MinuteAggregatesInBucketRange(ctx context.Context, exchange, symbol string, from, to int64) ([]model.MinuteAggregate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var rows []model.MinuteAggregate
	err := s.DB.SelectContext(ctx, &rows, `
		SELECT exchange, original_symbol, normalized_symbol, minute_bucket,
		       avg_mark_price, avg_index_price, min_price, max_price, price_volatility,
		       sum_base_volume, sum_quote_volume, avg_open_interest, max_open_interest,
		       avg_open_interest_usd, max_open_interest_usd,
		       avg_funding_rate, min_funding_rate, max_funding_rate, avg_funding_rate_annual,
		       sample_count, created_at
		FROM market_stats_1m
		WHERE exchange = $1 AND original_symbol = $2 AND minute_bucket >= $3 AND minute_bucket < $4
		ORDER BY minute_bucket ASC`, exchange, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("writedb: select minute aggregates: %w", err)
	}
	return rows, nil
}

// DistinctExchangeSymbolsSince returns every (exchange, original_symbol)
// pair with a minute bucket in [from, to) — used to drive the minute->hour
// fold without scanning raw ticks again.
func (s *Store) DistinctExchangeSymbolsSince(ctx context.Context, from, to int64) ([][2]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	rows, err := s.DB.QueryContext(ctx, `
		SELECT DISTINCT exchange, original_symbol FROM market_stats_1m
		WHERE minute_bucket >= $1 AND minute_bucket < $2`, from, to)
	if err != nil {
		return nil, fmt.Errorf("writedb: select distinct symbols: %w", err)
	}
	defer rows.Close()

	var out [][2]string
	for rows.Next() {
		var ex, sym string
		if err := rows.Scan(&ex, &sym); err != nil {
			return nil, fmt.Errorf("writedb: scan distinct symbol: %w", err)
		}
		out = append(out, [2]string{ex, sym})
	}
	return out, rows.Err()
}

// UpsertHourAggregate replaces (or inserts) one HourAggregate row.
func (s *Store) UpsertHourAggregate(ctx context.Context, a model.HourAggregate) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO market_history
			(exchange, original_symbol, normalized_symbol, hour_bucket,
			 avg_mark_price, avg_index_price, min_price, max_price, price_volatility,
			 sum_base_volume, sum_quote_volume, avg_open_interest, max_open_interest,
			 avg_open_interest_usd, max_open_interest_usd,
			 avg_funding_rate, min_funding_rate, max_funding_rate, avg_funding_rate_annual,
			 sample_count, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		ON CONFLICT (exchange, original_symbol, hour_bucket) DO UPDATE SET
			normalized_symbol = EXCLUDED.normalized_symbol,
			avg_mark_price = EXCLUDED.avg_mark_price,
			avg_index_price = EXCLUDED.avg_index_price,
			min_price = EXCLUDED.min_price,
			max_price = EXCLUDED.max_price,
			price_volatility = EXCLUDED.price_volatility,
			sum_base_volume = EXCLUDED.sum_base_volume,
			sum_quote_volume = EXCLUDED.sum_quote_volume,
			avg_open_interest = EXCLUDED.avg_open_interest,
			max_open_interest = EXCLUDED.max_open_interest,
			avg_open_interest_usd = EXCLUDED.avg_open_interest_usd,
			max_open_interest_usd = EXCLUDED.max_open_interest_usd,
			avg_funding_rate = EXCLUDED.avg_funding_rate,
			min_funding_rate = EXCLUDED.min_funding_rate,
			max_funding_rate = EXCLUDED.max_funding_rate,
			avg_funding_rate_annual = EXCLUDED.avg_funding_rate_annual,
			sample_count = EXCLUDED.sample_count,
			created_at = EXCLUDED.created_at`,
		a.Exchange, a.OriginalSymbol, a.NormalizedSymbol, a.Bucket,
		a.AvgMarkPrice, a.AvgIndexPrice, a.MinPrice, a.MaxPrice, a.PriceVolatility,
		a.SumBaseVolume, a.SumQuoteVolume, a.AvgOpenInterest, a.MaxOpenInterest,
		a.AvgOpenInterestUSD, a.MaxOpenInterestUSD,
		a.AvgFundingRate, a.MinFundingRate, a.MaxFundingRate, a.AvgFundingRateAnnual,
		a.SampleCount, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("writedb: upsert hour aggregate: %w", err)
	}
	return nil
}

// DeleteMinuteAggregatesOlderThan implements the minute-tier retention
// sweep (spec.md §4.5 "daily ... delete minute aggregates older than N
// days").
func (s *Store) DeleteMinuteAggregatesOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	res, err := s.DB.ExecContext(ctx, `DELETE FROM market_stats_1m WHERE minute_bucket < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("writedb: delete minute aggregates: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteHourAggregatesOlderThan implements the hour-tier retention sweep.
func (s *Store) DeleteHourAggregatesOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()
	res, err := s.DB.ExecContext(ctx, `DELETE FROM market_history WHERE hour_bucket < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("writedb: delete hour aggregates: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// LatestRawTicksSince returns the newest raw tick for each (exchange,
// original_symbol) pair observed since cutoff — the latest-projection
// materialization job's input (spec.md §4.6).
func (s *Store) LatestRawTicksSince(ctx context.Context, cutoff int64) ([]model.RawTick, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var ticks []model.RawTick
	err := s.DB.SelectContext(ctx, &ticks, `
		SELECT DISTINCT ON (exchange, original_symbol)
		       id, exchange, original_symbol, market_id, mark_price, index_price, last_price,
		       open_interest, open_interest_usd, funding_rate, next_funding_at,
		       volume_24h, quote_volume_24h, low_24h, high_24h, change_24h,
		       recorded_at, created_at
		FROM market_stats
		WHERE created_at >= $1
		ORDER BY exchange, original_symbol, created_at DESC`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("writedb: select latest raw ticks: %w", err)
	}
	return ticks, nil
}

// MinuteAggregatesNewerThan pages through minute aggregates newer than a
// checkpoint bucket, for the historical-backfill materialization job
// (spec.md §4.6).
func (s *Store) MinuteAggregatesNewerThan(ctx context.Context, checkpoint int64, pageSize int) ([]model.MinuteAggregate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var rows []model.MinuteAggregate
	err := s.DB.SelectContext(ctx, &rows, `
		SELECT exchange, original_symbol, normalized_symbol, minute_bucket,
		       avg_mark_price, avg_index_price, min_price, max_price, price_volatility,
		       sum_base_volume, sum_quote_volume, avg_open_interest, max_open_interest,
		       avg_open_interest_usd, max_open_interest_usd,
		       avg_funding_rate, min_funding_rate, max_funding_rate, avg_funding_rate_annual,
		       sample_count, created_at
		FROM market_stats_1m
		WHERE minute_bucket > $1
		ORDER BY minute_bucket ASC
		LIMIT $2`, checkpoint, pageSize)
	if err != nil {
		return nil, fmt.Errorf("writedb: page minute aggregates: %w", err)
	}
	return rows, nil
}

// HourHistoryForCanonical returns hour aggregates for one exchange filtered
// by normalized (canonical) symbol rather than original symbol — the
// analytics engine's funding-MA window input (spec.md §4.7), since one
// canonical symbol can map to several original symbols on the same
// exchange only in theory; in practice this collapses to at most one.
func (s *Store) HourHistoryForCanonical(ctx context.Context, exchange, canonicalSymbol string, from, to int64) ([]model.HourAggregate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var rows []model.HourAggregate
	err := s.DB.SelectContext(ctx, &rows, `
		SELECT exchange, original_symbol, normalized_symbol, hour_bucket,
		       avg_mark_price, avg_index_price, min_price, max_price, price_volatility,
		       sum_base_volume, sum_quote_volume, avg_open_interest, max_open_interest,
		       avg_open_interest_usd, max_open_interest_usd,
		       avg_funding_rate, min_funding_rate, max_funding_rate, avg_funding_rate_annual,
		       sample_count, created_at
		FROM market_history
		WHERE exchange = $1 AND normalized_symbol = $2 AND hour_bucket >= $3 AND hour_bucket < $4
		ORDER BY hour_bucket ASC`, exchange, canonicalSymbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("writedb: hour history for canonical symbol: %w", err)
	}
	return rows, nil
}

// RawTicksFiltered serves `GET /api/stats` and the 15s tier of `GET
// /api/normalized-data` (spec.md §6): exchange and originalSymbol are
// optional (empty matches any), from/to bound created_at, limit caps the
// row count.
func (s *Store) RawTicksFiltered(ctx context.Context, exchange, originalSymbol string, from, to int64, limit int) ([]model.RawTick, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var ticks []model.RawTick
	err := s.DB.SelectContext(ctx, &ticks, `
		SELECT id, exchange, original_symbol, market_id, mark_price, index_price, last_price,
		       open_interest, open_interest_usd, funding_rate, next_funding_at,
		       volume_24h, quote_volume_24h, low_24h, high_24h, change_24h,
		       recorded_at, created_at
		FROM market_stats
		WHERE ($1 = '' OR exchange = $1)
		  AND ($2 = '' OR original_symbol = $2)
		  AND created_at >= $3 AND created_at < $4
		ORDER BY created_at DESC
		LIMIT $5`, exchange, originalSymbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("writedb: select filtered raw ticks: %w", err)
	}
	return ticks, nil
}

// MinuteAggregatesFiltered serves the 1m tier of `GET /api/normalized-data`
// and `GET /api/stats` when the requested range spans more than the raw
// retention horizon. exchange/symbol are optional; symbol matches either
// the original or the canonical (normalized) symbol.
func (s *Store) MinuteAggregatesFiltered(ctx context.Context, exchange, symbol string, from, to int64, limit int) ([]model.MinuteAggregate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var rows []model.MinuteAggregate
	err := s.DB.SelectContext(ctx, &rows, `
		SELECT exchange, original_symbol, normalized_symbol, minute_bucket,
		       avg_mark_price, avg_index_price, min_price, max_price, price_volatility,
		       sum_base_volume, sum_quote_volume, avg_open_interest, max_open_interest,
		       avg_open_interest_usd, max_open_interest_usd,
		       avg_funding_rate, min_funding_rate, max_funding_rate, avg_funding_rate_annual,
		       sample_count, created_at
		FROM market_stats_1m
		WHERE ($1 = '' OR exchange = $1)
		  AND ($2 = '' OR original_symbol = $2 OR normalized_symbol = $2)
		  AND minute_bucket >= $3 AND minute_bucket < $4
		ORDER BY minute_bucket DESC
		LIMIT $5`, exchange, symbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("writedb: select filtered minute aggregates: %w", err)
	}
	return rows, nil
}

// HourAggregatesFiltered is the hour-tier analogue of
// MinuteAggregatesFiltered, serving the 1h tier of `GET
// /api/normalized-data`.
func (s *Store) HourAggregatesFiltered(ctx context.Context, exchange, symbol string, from, to int64, limit int) ([]model.HourAggregate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var rows []model.HourAggregate
	err := s.DB.SelectContext(ctx, &rows, `
		SELECT exchange, original_symbol, normalized_symbol, hour_bucket,
		       avg_mark_price, avg_index_price, min_price, max_price, price_volatility,
		       sum_base_volume, sum_quote_volume, avg_open_interest, max_open_interest,
		       avg_open_interest_usd, max_open_interest_usd,
		       avg_funding_rate, min_funding_rate, max_funding_rate, avg_funding_rate_annual,
		       sample_count, created_at
		FROM market_history
		WHERE ($1 = '' OR exchange = $1)
		  AND ($2 = '' OR original_symbol = $2 OR normalized_symbol = $2)
		  AND hour_bucket >= $3 AND hour_bucket < $4
		ORDER BY hour_bucket DESC
		LIMIT $5`, exchange, symbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("writedb: select filtered hour aggregates: %w", err)
	}
	return rows, nil
}

// HourAggregatesNewerThan is the hour-tier analogue of
// MinuteAggregatesNewerThan.
func (s *Store) HourAggregatesNewerThan(ctx context.Context, checkpoint int64, pageSize int) ([]model.HourAggregate, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var rows []model.HourAggregate
	err := s.DB.SelectContext(ctx, &rows, `
		SELECT exchange, original_symbol, normalized_symbol, hour_bucket,
		       avg_mark_price, avg_index_price, min_price, max_price, price_volatility,
		       sum_base_volume, sum_quote_volume, avg_open_interest, max_open_interest,
		       avg_open_interest_usd, max_open_interest_usd,
		       avg_funding_rate, min_funding_rate, max_funding_rate, avg_funding_rate_annual,
		       sample_count, created_at
		FROM market_history
		WHERE hour_bucket > $1
		ORDER BY hour_bucket ASC
		LIMIT $2`, checkpoint, pageSize)
	if err != nil {
		return nil, fmt.Errorf("writedb: page hour aggregates: %w", err)
	}
	return rows, nil
}
