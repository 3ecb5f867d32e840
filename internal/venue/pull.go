package venue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// FetchInstrumentsFunc lists a venue's current markets, used to refresh the
// cached active-instruments list (spec.md §4.1, at most every 60 min).
type FetchInstrumentsFunc func(ctx context.Context) ([]Instrument, error)

// FetchTickerFunc fetches the latest market stats for one instrument.
type FetchTickerFunc func(ctx context.Context, inst Instrument) (RawUpdate, error)

// PullEngine runs the generic poll-venue lifecycle: refresh the instrument
// list on a slow cadence, poll all active instruments on a fast cadence,
// and only buffer instruments whose venue-reported status is active
// (spec.md §4.1). Concrete venues configure it with their own fetch
// functions; see internal/venue/venues, grounded in the teacher's
// internal/providers/kraken.Client REST methods.
type PullEngine struct {
	VenueID           string
	PollInterval      time.Duration // 15s or 60s
	InstrumentRefresh time.Duration // default 60m
	CallTimeout       time.Duration // default 10s
	RPS               float64       // REST rate limit, requests/sec

	FetchInstruments FetchInstrumentsFunc
	FetchTicker      FetchTickerFunc

	mu          sync.Mutex
	cancel      context.CancelFunc
	instruments []Instrument
	lastRefresh time.Time
	limiter     *rate.Limiter
}

func (e *PullEngine) Venue() string { return e.VenueID }
func (e *PullEngine) Kind() Kind    { return KindPull }

func (e *PullEngine) Start(ctx context.Context, emit EmitFunc) error {
	e.mu.Lock()
	if e.cancel != nil {
		e.mu.Unlock()
		return nil // idempotent
	}
	if e.InstrumentRefresh == 0 {
		e.InstrumentRefresh = 60 * time.Minute
	}
	if e.CallTimeout == 0 {
		e.CallTimeout = 10 * time.Second
	}
	if e.RPS <= 0 {
		e.RPS = 2.0
	}
	e.limiter = rate.NewLimiter(rate.Limit(e.RPS), 1)
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.mu.Unlock()

	if err := e.refreshInstruments(runCtx); err != nil {
		cancel()
		e.mu.Lock()
		e.cancel = nil
		e.mu.Unlock()
		return fmt.Errorf("%s: initial instrument refresh: %w", e.VenueID, err)
	}

	go e.pollLoop(runCtx, emit)
	log.Info().Str("venue", e.VenueID).Dur("interval", e.PollInterval).Msg("pull adapter started")
	return nil
}

func (e *PullEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel == nil {
		return nil
	}
	e.cancel()
	e.cancel = nil
	return nil
}

func (e *PullEngine) refreshInstruments(ctx context.Context) error {
	insts, err := e.FetchInstruments(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.instruments = insts
	e.lastRefresh = time.Now()
	e.mu.Unlock()
	return nil
}

func (e *PullEngine) activeInstruments() []Instrument {
	e.mu.Lock()
	defer e.mu.Unlock()
	active := make([]Instrument, 0, len(e.instruments))
	for _, in := range e.instruments {
		if in.Active() {
			active = append(active, in)
		}
	}
	return active
}

func (e *PullEngine) pollLoop(ctx context.Context, emit EmitFunc) {
	pollTicker := time.NewTicker(e.PollInterval)
	refreshTicker := time.NewTicker(e.InstrumentRefresh)
	defer pollTicker.Stop()
	defer refreshTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-refreshTicker.C:
			if err := e.refreshInstruments(ctx); err != nil {
				log.Warn().Str("venue", e.VenueID).Err(err).Msg("instrument refresh failed, serving cached list")
			}
		case <-pollTicker.C:
			e.pollOnce(ctx, emit)
		}
	}
}

func (e *PullEngine) pollOnce(ctx context.Context, emit EmitFunc) {
	for _, inst := range e.activeInstruments() {
		if err := e.limiter.Wait(ctx); err != nil {
			return
		}

		callCtx, cancel := context.WithTimeout(ctx, e.CallTimeout)
		upd, err := e.FetchTicker(callCtx, inst)
		cancel()

		if err != nil {
			if callCtx.Err() != nil {
				// per-call timeout: treat as a skipped poll, not a failure
				log.Debug().Str("venue", e.VenueID).Str("symbol", inst.OriginalSymbol).Msg("poll timed out, skipping")
				continue
			}
			log.Debug().Str("venue", e.VenueID).Str("symbol", inst.OriginalSymbol).Err(err).Msg("poll failed, skipping")
			continue
		}

		if upd.OriginalSymbol == "" || upd.MarkPrice == "" {
			continue
		}
		emit(upd.toRawTick(e.VenueID))
	}
}
