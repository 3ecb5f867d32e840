// Package analytics computes the two derived views spec.md §4.7 describes:
// rolling funding-rate moving averages per (symbol, exchange, window), and
// cross-exchange arbitrage opportunities with a stability score. Grounded
// in the teacher's scoring-panel pattern (score several candidates, rank,
// keep the top N) adapted here to funding spreads instead of factor scores.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/perpwatch/perpwatch/internal/model"
	"github.com/perpwatch/perpwatch/internal/store/readdb"
	"github.com/perpwatch/perpwatch/internal/store/writedb"
)

// stabilityThreshold is the minimum per-window stability score (out of
// len(model.Windows)) required for IsStable (spec.md §3/§4.7/§8). spec.md
// §9 flags this as a configurable constant rather than requiring every
// window to agree.
const stabilityThreshold = 4

// Engine computes funding MAs and arbitrage opportunities from the
// WRITE-side hour aggregates, writing results into the READ store's caches.
type Engine struct {
	Write *writedb.Store
	Read  *readdb.Store
}

func New(write *writedb.Store, read *readdb.Store) *Engine {
	return &Engine{Write: write, Read: read}
}

// FundingMovingAverages recomputes every (symbol, exchange, window) moving
// average from hour aggregates (spec.md §4.7, runs hourly).
func (e *Engine) FundingMovingAverages(ctx context.Context, now time.Time) error {
	symbols, err := e.Read.DistinctTrackedSymbols(ctx)
	if err != nil {
		return fmt.Errorf("analytics: list tracked symbols: %w", err)
	}

	written := 0
	for _, sym := range symbols {
		exchanges, err := e.Read.ExchangesForSymbol(ctx, sym)
		if err != nil {
			return fmt.Errorf("analytics: list exchanges for %s: %w", sym, err)
		}
		for _, exchange := range exchanges {
			for _, win := range model.Windows {
				ma, ok, err := e.computeWindow(ctx, sym, exchange, win, now)
				if err != nil {
					return fmt.Errorf("analytics: compute %s/%s/%s: %w", sym, exchange, win, err)
				}
				if !ok {
					continue
				}
				if err := e.Read.UpsertFundingMA(ctx, ma); err != nil {
					return fmt.Errorf("analytics: upsert funding ma %s/%s/%s: %w", sym, exchange, win, err)
				}
				written++
			}
		}
	}

	log.Info().Int("rows", written).Msg("funding moving averages recomputed")
	return nil
}

func (e *Engine) computeWindow(ctx context.Context, canonicalSymbol, exchange string, win model.Window, now time.Time) (model.FundingMA, bool, error) {
	from := now.Add(-win.Duration()).Unix()
	to := now.Unix()

	// market_history is keyed by original symbol, not canonical symbol; the
	// distinct-symbol/exchange pair from normalized_tokens carries the
	// canonical form, so history is queried by matching original symbols
	// through the same normalization the WRITE side applies at roll-up time.
	rows, err := e.Write.HourHistoryForCanonical(ctx, exchange, canonicalSymbol, from, to)
	if err != nil {
		return model.FundingMA{}, false, err
	}
	if len(rows) == 0 {
		return model.FundingMA{}, false, nil
	}

	var sumRate, sumAnnual float64
	for _, r := range rows {
		sumRate += r.AvgFundingRate
		sumAnnual += r.AvgFundingRateAnnual
	}
	n := float64(len(rows))

	return model.FundingMA{
		CanonicalSymbol: canonicalSymbol,
		Exchange:        exchange,
		Window:          string(win),
		AvgRate:         sumRate / n,
		AvgRateAnnual:   sumAnnual / n,
		SampleCount:     len(rows),
		CalculatedAt:    now.Unix(),
	}, true, nil
}

// ArbitrageOpportunities rebuilds the cross-venue arbitrage cache for every
// tracked symbol (spec.md §4.7, runs hourly): for each unordered pair of
// exchanges quoting the same canonical symbol, compute one row per window
// (spec.md §3's primary key is (symbol, long exchange, short exchange,
// window)), each with its own long/short assignment and stability score.
// Every pair that clears both venues' data is persisted; minSpread/
// minSpreadAPR are query-time filters applied by GET /api/arbitrage
// (spec.md §4.8/§6), not a write-time gate here.
func (e *Engine) ArbitrageOpportunities(ctx context.Context, now time.Time) error {
	symbols, err := e.Read.DistinctTrackedSymbols(ctx)
	if err != nil {
		return fmt.Errorf("analytics: list tracked symbols: %w", err)
	}

	totalOpps := 0
	for _, sym := range symbols {
		exchanges, err := e.Read.ExchangesForSymbol(ctx, sym)
		if err != nil {
			return fmt.Errorf("analytics: list exchanges for %s: %w", sym, err)
		}
		if len(exchanges) < 2 {
			continue
		}

		var opps []model.ArbitrageOpportunity
		for i := 0; i < len(exchanges); i++ {
			for j := i + 1; j < len(exchanges); j++ {
				a, b := exchanges[i], exchanges[j]
				aMAs, err := e.Read.FundingMAsFor(ctx, sym, a)
				if err != nil {
					return fmt.Errorf("analytics: funding mas for %s/%s: %w", sym, a, err)
				}
				bMAs, err := e.Read.FundingMAsFor(ctx, sym, b)
				if err != nil {
					return fmt.Errorf("analytics: funding mas for %s/%s: %w", sym, b, err)
				}
				opps = append(opps, buildOpportunities(sym, a, b, aMAs, bMAs, now)...)
			}
		}

		if err := e.Read.ReplaceArbitrageOpportunities(ctx, sym, opps); err != nil {
			return fmt.Errorf("analytics: replace arbitrage cache for %s: %w", sym, err)
		}
		totalOpps += len(opps)
	}

	log.Info().Int("opportunities", totalOpps).Msg("arbitrage opportunities recomputed")
	return nil
}

// buildOpportunities scores an unordered exchange pair independently for
// every window (spec.md §4.7 step 5): within each window, whichever
// exchange's mean rate is lower is that window's long side, and the
// opportunity's stability score counts how many of the five windows agree
// with that direction. A window is skipped only if either exchange is
// missing a moving average for it; the pair itself is never dropped here
// on spread size.
func buildOpportunities(canonicalSymbol, a, b string, aMAs, bMAs []model.FundingMA, now time.Time) []model.ArbitrageOpportunity {
	aByWindow := indexByWindow(aMAs)
	bByWindow := indexByWindow(bMAs)

	rateFor := func(exchange string, win model.Window) (model.FundingMA, bool) {
		if exchange == a {
			m, ok := aByWindow[string(win)]
			return m, ok
		}
		m, ok := bByWindow[string(win)]
		return m, ok
	}

	var opps []model.ArbitrageOpportunity
	for _, win := range model.Windows {
		am, aok := aByWindow[string(win)]
		bm, bok := bByWindow[string(win)]
		if !aok || !bok {
			continue
		}

		longExchange, shortExchange := a, b
		long, short := am, bm
		if bm.AvgRate < am.AvgRate {
			longExchange, shortExchange = b, a
			long, short = bm, am
		}

		stable := 0
		for _, w2 := range model.Windows {
			l, lok := rateFor(longExchange, w2)
			s, sok := rateFor(shortExchange, w2)
			if lok && sok && l.AvgRate < s.AvgRate {
				stable++
			}
		}

		opps = append(opps, model.ArbitrageOpportunity{
			CanonicalSymbol: canonicalSymbol,
			LongExchange:    longExchange,
			ShortExchange:   shortExchange,
			Window:          string(win),
			LongRate:        long.AvgRate,
			ShortRate:       short.AvgRate,
			LongRateAnnual:  long.AvgRateAnnual,
			ShortRateAnnual: short.AvgRateAnnual,
			Spread:          short.AvgRate - long.AvgRate,
			SpreadAPR:       short.AvgRateAnnual - long.AvgRateAnnual,
			StabilityScore:  stable,
			IsStable:        stable >= stabilityThreshold,
			CalculatedAt:    now.Unix(),
		})
	}

	return opps
}

func indexByWindow(mas []model.FundingMA) map[string]model.FundingMA {
	out := make(map[string]model.FundingMA, len(mas))
	for _, m := range mas {
		out[m.Window] = m
	}
	return out
}
