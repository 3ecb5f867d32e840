package venue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/perpwatch/perpwatch/internal/model"
)

func TestInstrumentActiveRequiresPerp(t *testing.T) {
	i := Instrument{IsPerp: false, Status: "active"}
	if i.Active() {
		t.Fatal("a non-perp instrument should never be active")
	}
}

func TestInstrumentActiveAcceptsKnownStatuses(t *testing.T) {
	for _, status := range []string{"active", "tradable", "trading", "open"} {
		i := Instrument{IsPerp: true, Status: status}
		if !i.Active() {
			t.Fatalf("status %q should be active", status)
		}
	}
}

func TestInstrumentActiveRejectsUnknownStatus(t *testing.T) {
	i := Instrument{IsPerp: true, Status: "delisted"}
	if i.Active() {
		t.Fatal("a delisted instrument should not be active")
	}
}

func TestToRawTickSatisfiesCreatedAtInvariant(t *testing.T) {
	u := RawUpdate{OriginalSymbol: "BTC", MarkPrice: "100"}
	tick := u.toRawTick("hyperliquid")

	if tick.CreatedAt != tick.RecordedAt/1000 {
		t.Fatalf("CreatedAt %d != RecordedAt/1000 %d", tick.CreatedAt, tick.RecordedAt/1000)
	}
	if tick.Exchange != "hyperliquid" {
		t.Fatalf("Exchange = %q, want hyperliquid", tick.Exchange)
	}
}

func TestToRawTickFillsZeroDefaults(t *testing.T) {
	u := RawUpdate{OriginalSymbol: "BTC", MarkPrice: "100"}
	tick := u.toRawTick("hyperliquid")

	if tick.IndexPrice != "0" || tick.FundingRate != "0" || tick.OpenInterest != "0" {
		t.Fatalf("expected unset decimal fields defaulted to %q, got %+v", "0", tick)
	}
}

func TestPullEngineActiveInstrumentsFiltersInactive(t *testing.T) {
	e := &PullEngine{
		instruments: []Instrument{
			{OriginalSymbol: "BTC", IsPerp: true, Status: "active"},
			{OriginalSymbol: "OPT", IsPerp: false, Status: "active"},
			{OriginalSymbol: "ETH", IsPerp: true, Status: "delisted"},
		},
	}
	active := e.activeInstruments()
	if len(active) != 1 || active[0].OriginalSymbol != "BTC" {
		t.Fatalf("expected only BTC to survive filtering, got %v", active)
	}
}

func TestPullEngineStartIsIdempotent(t *testing.T) {
	var calls int
	var mu sync.Mutex
	e := &PullEngine{
		VenueID:      "test",
		PollInterval: time.Hour,
		FetchInstruments: func(ctx context.Context) ([]Instrument, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			return nil, nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := e.Start(ctx, func(model.RawTick) {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.Start(ctx, func(model.RawTick) {}); err != nil {
		t.Fatalf("second Start should be a no-op, got: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("FetchInstruments called %d times, want 1 (idempotent restart)", calls)
	}
}

func TestPullEngineStartPropagatesInstrumentRefreshError(t *testing.T) {
	wantErr := errors.New("boom")
	e := &PullEngine{
		VenueID:      "test",
		PollInterval: time.Hour,
		FetchInstruments: func(ctx context.Context) ([]Instrument, error) {
			return nil, wantErr
		},
	}
	if err := e.Start(context.Background(), func(model.RawTick) {}); !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want wrapped %v", err, wantErr)
	}
}

func TestPullEngineStopBeforeStartIsNoOp(t *testing.T) {
	e := &PullEngine{VenueID: "test"}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop before Start should be a no-op, got: %v", err)
	}
}

func TestPullEnginePollOnceSkipsUpdatesMissingMarkPrice(t *testing.T) {
	var emitted []model.RawTick
	e := &PullEngine{
		VenueID: "test",
		RPS:     1000,
		limiter: rate.NewLimiter(rate.Inf, 1),
		instruments: []Instrument{
			{OriginalSymbol: "BTC", IsPerp: true, Status: "active"},
		},
		FetchTicker: func(ctx context.Context, inst Instrument) (RawUpdate, error) {
			return RawUpdate{OriginalSymbol: inst.OriginalSymbol, MarkPrice: ""}, nil
		},
		CallTimeout: time.Second,
	}
	e.pollOnce(context.Background(), func(t model.RawTick) { emitted = append(emitted, t) })
	if len(emitted) != 0 {
		t.Fatalf("expected no emitted ticks for a missing mark price, got %v", emitted)
	}
}

func TestPullEnginePollOnceEmitsValidUpdate(t *testing.T) {
	var emitted []model.RawTick
	e := &PullEngine{
		VenueID: "test",
		RPS:     1000,
		limiter: rate.NewLimiter(rate.Inf, 1),
		instruments: []Instrument{
			{OriginalSymbol: "BTC", IsPerp: true, Status: "active"},
		},
		FetchTicker: func(ctx context.Context, inst Instrument) (RawUpdate, error) {
			return RawUpdate{OriginalSymbol: inst.OriginalSymbol, MarkPrice: "100"}, nil
		},
		CallTimeout: time.Second,
	}
	e.pollOnce(context.Background(), func(t model.RawTick) { emitted = append(emitted, t) })
	if len(emitted) != 1 || emitted[0].OriginalSymbol != "BTC" {
		t.Fatalf("expected one emitted BTC tick, got %v", emitted)
	}
}

func TestSubscriptionEngineStopBeforeStartIsNoOp(t *testing.T) {
	e := &SubscriptionEngine{VenueID: "test"}
	if err := e.Stop(); err != nil {
		t.Fatalf("Stop before Start should be a no-op, got: %v", err)
	}
}
