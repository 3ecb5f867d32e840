// Package readdb is the READ store (spec.md §2 component D, §6): the
// query-optimized projections served by the HTTP API — LatestMarket,
// FundingMA, and ArbitrageOpportunity — plus passthrough history reads
// against the WRITE-side aggregate tables. Split from writedb per the
// design note "WRITE/READ split avoids OLTP-vs-OLAP contention on one
// connection pool."
package readdb

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/perpwatch/perpwatch/internal/model"
)

// Store is the READ-side database handle, typically pointed at a replica
// DSN distinct from writedb.Store's primary DSN.
type Store struct {
	DB      *sqlx.DB
	Timeout time.Duration
}

// Open connects to the READ Postgres instance (a replica in production, the
// same instance as the writer in development).
func Open(dsn string, timeout time.Duration) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("readdb: connect: %w", err)
	}
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Store{DB: db, Timeout: timeout}, nil
}

// Schema holds the READ-side projection tables; market_stats_1m and
// market_history are shared with writedb.Schema and not repeated here.
const Schema = `
CREATE TABLE IF NOT EXISTS normalized_tokens (
	canonical_symbol    TEXT NOT NULL,
	exchange            TEXT NOT NULL,
	original_symbol     TEXT NOT NULL,
	mark_price          TEXT NOT NULL,
	index_price         TEXT NOT NULL,
	open_interest_usd   TEXT NOT NULL,
	volume_24h          DOUBLE PRECISION NOT NULL,
	funding_rate        TEXT NOT NULL,
	funding_rate_hourly TEXT NOT NULL,
	funding_rate_annual TEXT NOT NULL,
	next_funding_at     BIGINT,
	change_24h          DOUBLE PRECISION NOT NULL,
	low_24h             DOUBLE PRECISION NOT NULL,
	high_24h            DOUBLE PRECISION NOT NULL,
	volatility_24h      DOUBLE PRECISION,
	volatility_7d       DOUBLE PRECISION,
	atr_14              DOUBLE PRECISION,
	bollinger_width     DOUBLE PRECISION,
	updated_at          BIGINT NOT NULL,
	PRIMARY KEY (canonical_symbol, exchange)
);
CREATE INDEX IF NOT EXISTS idx_normalized_tokens_symbol ON normalized_tokens (canonical_symbol);

CREATE TABLE IF NOT EXISTS funding_ma_cache (
	canonical_symbol TEXT NOT NULL,
	exchange         TEXT NOT NULL,
	window           TEXT NOT NULL,
	avg_rate         DOUBLE PRECISION NOT NULL,
	avg_rate_annual  DOUBLE PRECISION NOT NULL,
	sample_count     INTEGER NOT NULL,
	calculated_at    BIGINT NOT NULL,
	PRIMARY KEY (canonical_symbol, exchange, window)
);

CREATE TABLE IF NOT EXISTS arbitrage_cache (
	canonical_symbol TEXT NOT NULL,
	long_exchange    TEXT NOT NULL,
	short_exchange   TEXT NOT NULL,
	window           TEXT NOT NULL,
	long_rate        DOUBLE PRECISION NOT NULL,
	short_rate       DOUBLE PRECISION NOT NULL,
	long_rate_annual DOUBLE PRECISION NOT NULL,
	short_rate_annual DOUBLE PRECISION NOT NULL,
	spread           DOUBLE PRECISION NOT NULL,
	spread_apr       DOUBLE PRECISION NOT NULL,
	stability_score  INTEGER NOT NULL,
	is_stable        BOOLEAN NOT NULL,
	calculated_at    BIGINT NOT NULL,
	PRIMARY KEY (canonical_symbol, long_exchange, short_exchange, window)
);

CREATE TABLE IF NOT EXISTS tracker_status (
	exchange         TEXT PRIMARY KEY,
	state            TEXT NOT NULL,
	last_message_at  BIGINT NOT NULL,
	last_error       TEXT NOT NULL DEFAULT '',
	reconnect_count  INTEGER NOT NULL DEFAULT 0,
	updated_at       BIGINT NOT NULL
);
`

// UpsertLatestMarket replaces one (canonical_symbol, exchange) projection
// row — the latest-projection materialization job (spec.md §4.6).
func (s *Store) UpsertLatestMarket(ctx context.Context, m model.LatestMarket) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO normalized_tokens
			(canonical_symbol, exchange, original_symbol, mark_price, index_price,
			 open_interest_usd, volume_24h, funding_rate, funding_rate_hourly,
			 funding_rate_annual, next_funding_at, change_24h, low_24h, high_24h,
			 volatility_24h, volatility_7d, atr_14, bollinger_width, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
		ON CONFLICT (canonical_symbol, exchange) DO UPDATE SET
			original_symbol = EXCLUDED.original_symbol,
			mark_price = EXCLUDED.mark_price,
			index_price = EXCLUDED.index_price,
			open_interest_usd = EXCLUDED.open_interest_usd,
			volume_24h = EXCLUDED.volume_24h,
			funding_rate = EXCLUDED.funding_rate,
			funding_rate_hourly = EXCLUDED.funding_rate_hourly,
			funding_rate_annual = EXCLUDED.funding_rate_annual,
			next_funding_at = EXCLUDED.next_funding_at,
			change_24h = EXCLUDED.change_24h,
			low_24h = EXCLUDED.low_24h,
			high_24h = EXCLUDED.high_24h,
			volatility_24h = EXCLUDED.volatility_24h,
			volatility_7d = EXCLUDED.volatility_7d,
			atr_14 = EXCLUDED.atr_14,
			bollinger_width = EXCLUDED.bollinger_width,
			updated_at = EXCLUDED.updated_at`,
		m.CanonicalSymbol, m.Exchange, m.OriginalSymbol, m.MarkPrice, m.IndexPrice,
		m.OpenInterestUSD, m.Volume24h, m.FundingRate, m.FundingRateHourly,
		m.FundingRateAnnual, m.NextFundingAt, m.Change24h, m.Low24h, m.High24h,
		m.Volatility24h, m.Volatility7d, m.ATR14, m.BollingerWidth, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("readdb: upsert latest market: %w", err)
	}
	return nil
}

// ListLatestMarkets returns every tracked market, optionally filtered to one
// canonical symbol (read by the /api/latest, /api/markets and /api/compare
// handlers).
func (s *Store) ListLatestMarkets(ctx context.Context, canonicalSymbol string) ([]model.LatestMarket, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var rows []model.LatestMarket
	var err error
	if canonicalSymbol == "" {
		err = s.DB.SelectContext(ctx, &rows, `
			SELECT canonical_symbol, exchange, original_symbol, mark_price, index_price,
			       open_interest_usd, volume_24h, funding_rate, funding_rate_hourly,
			       funding_rate_annual, next_funding_at, change_24h, low_24h, high_24h,
			       volatility_24h, volatility_7d, atr_14, bollinger_width, updated_at
			FROM normalized_tokens ORDER BY canonical_symbol, exchange`)
	} else {
		err = s.DB.SelectContext(ctx, &rows, `
			SELECT canonical_symbol, exchange, original_symbol, mark_price, index_price,
			       open_interest_usd, volume_24h, funding_rate, funding_rate_hourly,
			       funding_rate_annual, next_funding_at, change_24h, low_24h, high_24h,
			       volatility_24h, volatility_7d, atr_14, bollinger_width, updated_at
			FROM normalized_tokens WHERE canonical_symbol = $1 ORDER BY exchange`, canonicalSymbol)
	}
	if err != nil {
		return nil, fmt.Errorf("readdb: list latest markets: %w", err)
	}
	return rows, nil
}

// HourHistory returns hour aggregates for one (exchange, original symbol) in
// [from, to), read from market_history.
func (s *Store) HourHistory(ctx context.Context, exchange, originalSymbol string, from, to int64) ([]model.HourAggregate, error) {
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
		WHERE exchange = $1 AND original_symbol = $2 AND hour_bucket >= $3 AND hour_bucket < $4
		ORDER BY hour_bucket ASC`, exchange, originalSymbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("readdb: hour history: %w", err)
	}
	return rows, nil
}

// TokenMapping is one (canonical symbol, exchange, original symbol) row —
// the raw material for `GET /api/tokens` (spec.md §6: "list of canonical
// symbols with per-exchange original mapping").
type TokenMapping struct {
	CanonicalSymbol string `db:"canonical_symbol"`
	Exchange        string `db:"exchange"`
	OriginalSymbol  string `db:"original_symbol"`
}

// TokenMappings returns every tracked (canonical, exchange, original)
// triple; callers group by CanonicalSymbol to build the per-exchange map.
func (s *Store) TokenMappings(ctx context.Context) ([]TokenMapping, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var rows []TokenMapping
	err := s.DB.SelectContext(ctx, &rows, `
		SELECT canonical_symbol, exchange, original_symbol
		FROM normalized_tokens ORDER BY canonical_symbol, exchange`)
	if err != nil {
		return nil, fmt.Errorf("readdb: token mappings: %w", err)
	}
	return rows, nil
}

// UpsertFundingMA replaces one (canonical_symbol, exchange, window) funding
// moving-average row (spec.md §4.7).
func (s *Store) UpsertFundingMA(ctx context.Context, f model.FundingMA) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO funding_ma_cache
			(canonical_symbol, exchange, window, avg_rate, avg_rate_annual, sample_count, calculated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (canonical_symbol, exchange, window) DO UPDATE SET
			avg_rate = EXCLUDED.avg_rate,
			avg_rate_annual = EXCLUDED.avg_rate_annual,
			sample_count = EXCLUDED.sample_count,
			calculated_at = EXCLUDED.calculated_at`,
		f.CanonicalSymbol, f.Exchange, f.Window, f.AvgRate, f.AvgRateAnnual, f.SampleCount, f.CalculatedAt,
	)
	if err != nil {
		return fmt.Errorf("readdb: upsert funding ma: %w", err)
	}
	return nil
}

// FundingMAsFor returns every window's funding MA for one (symbol,
// exchange) pair (read by GET /api/funding/ma and by the arbitrage job in
// internal/analytics).
func (s *Store) FundingMAsFor(ctx context.Context, canonicalSymbol, exchange string) ([]model.FundingMA, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var rows []model.FundingMA
	err := s.DB.SelectContext(ctx, &rows, `
		SELECT canonical_symbol, exchange, window, avg_rate, avg_rate_annual, sample_count, calculated_at
		FROM funding_ma_cache WHERE canonical_symbol = $1 AND exchange = $2`, canonicalSymbol, exchange)
	if err != nil {
		return nil, fmt.Errorf("readdb: funding mas: %w", err)
	}
	return rows, nil
}

// DistinctTrackedSymbols returns canonical symbols currently present in the
// normalized_tokens table — the analytics engine's iteration list (spec.md
// §4.7).
func (s *Store) DistinctTrackedSymbols(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var out []string
	err := s.DB.SelectContext(ctx, &out, `SELECT DISTINCT canonical_symbol FROM normalized_tokens ORDER BY canonical_symbol`)
	if err != nil {
		return nil, fmt.Errorf("readdb: distinct symbols: %w", err)
	}
	return out, nil
}

// ExchangesForSymbol returns the exchanges currently quoting one canonical
// symbol — used to enumerate long/short pairs for arbitrage detection.
func (s *Store) ExchangesForSymbol(ctx context.Context, canonicalSymbol string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var out []string
	err := s.DB.SelectContext(ctx, &out, `SELECT exchange FROM normalized_tokens WHERE canonical_symbol = $1 ORDER BY exchange`, canonicalSymbol)
	if err != nil {
		return nil, fmt.Errorf("readdb: exchanges for symbol: %w", err)
	}
	return out, nil
}

// ReplaceArbitrageOpportunities swaps the full arbitrage_cache contents for
// one canonical symbol in a single transaction — the analytics engine
// overwrites rather than upserts per-row since stale pairs (an exchange that
// stopped quoting) must disappear (spec.md §4.7).
func (s *Store) ReplaceArbitrageOpportunities(ctx context.Context, canonicalSymbol string, opps []model.ArbitrageOpportunity) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("readdb: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM arbitrage_cache WHERE canonical_symbol = $1`, canonicalSymbol); err != nil {
		return fmt.Errorf("readdb: clear arbitrage cache: %w", err)
	}

	for _, o := range opps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO arbitrage_cache
				(canonical_symbol, long_exchange, short_exchange, window, long_rate, short_rate,
				 long_rate_annual, short_rate_annual, spread, spread_apr, stability_score, is_stable, calculated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			o.CanonicalSymbol, o.LongExchange, o.ShortExchange, o.Window, o.LongRate, o.ShortRate,
			o.LongRateAnnual, o.ShortRateAnnual, o.Spread, o.SpreadAPR, o.StabilityScore, o.IsStable, o.CalculatedAt,
		); err != nil {
			return fmt.Errorf("readdb: insert arbitrage opportunity: %w", err)
		}
	}

	return tx.Commit()
}

// ListArbitrageOpportunities returns cached opportunities, optionally
// filtered to a minimum stability score (spec.md §6 GET /api/arbitrage).
func (s *Store) ListArbitrageOpportunities(ctx context.Context, minStability int, stableOnly bool) ([]model.ArbitrageOpportunity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	query := `
		SELECT canonical_symbol, long_exchange, short_exchange, window, long_rate, short_rate,
		       long_rate_annual, short_rate_annual, spread, spread_apr, stability_score, is_stable, calculated_at
		FROM arbitrage_cache WHERE stability_score >= $1`
	args := []interface{}{minStability}
	if stableOnly {
		query += ` AND is_stable = true`
	}
	query += ` ORDER BY spread_apr DESC`

	var rows []model.ArbitrageOpportunity
	if err := s.DB.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("readdb: list arbitrage opportunities: %w", err)
	}
	return rows, nil
}

// UpsertTrackerStatus records the latest per-venue tracker state (spec.md
// §6 GET /api/status, GET /tracker/{exchange}/status). UpdateStatus wraps it
// to implement tracker.StatusSink.
func (s *Store) UpsertTrackerStatus(ctx context.Context, st model.TrackerStatus) error {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO tracker_status (exchange, state, last_message_at, last_error, reconnect_count, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (exchange) DO UPDATE SET
			state = EXCLUDED.state,
			last_message_at = EXCLUDED.last_message_at,
			last_error = EXCLUDED.last_error,
			reconnect_count = EXCLUDED.reconnect_count,
			updated_at = EXCLUDED.updated_at`,
		st.Exchange, string(st.State), st.LastMessageAt, st.LastError, st.ReconnectCount, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("readdb: upsert tracker status: %w", err)
	}
	return nil
}

// UpdateStatus implements tracker.StatusSink: the tracker runtime cannot
// act on a failed status write mid-lifecycle, so errors are logged rather
// than propagated.
func (s *Store) UpdateStatus(ctx context.Context, status model.TrackerStatus) {
	if err := s.UpsertTrackerStatus(ctx, status); err != nil {
		log.Error().Err(err).Str("venue", status.Exchange).Msg("failed to persist tracker status")
	}
}

// ListTrackerStatuses returns every venue's latest status.
func (s *Store) ListTrackerStatuses(ctx context.Context) ([]model.TrackerStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var rows []model.TrackerStatus
	if err := s.DB.SelectContext(ctx, &rows, `
		SELECT exchange, state, last_message_at, last_error, reconnect_count, updated_at
		FROM tracker_status ORDER BY exchange`); err != nil {
		return nil, fmt.Errorf("readdb: list tracker statuses: %w", err)
	}
	return rows, nil
}

// TrackerStatusFor returns one venue's latest status.
func (s *Store) TrackerStatusFor(ctx context.Context, exchange string) (model.TrackerStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	var st model.TrackerStatus
	err := s.DB.GetContext(ctx, &st, `
		SELECT exchange, state, last_message_at, last_error, reconnect_count, updated_at
		FROM tracker_status WHERE exchange = $1`, exchange)
	if err != nil {
		return model.TrackerStatus{}, fmt.Errorf("readdb: tracker status for %s: %w", exchange, err)
	}
	return st, nil
}
