package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/perpwatch/perpwatch/internal/model"
	"github.com/perpwatch/perpwatch/internal/venue"
)

type fakeAdapter struct {
	name      string
	startErr  error
	emit      venue.EmitFunc
	stopCalls int
	mu        sync.Mutex
}

func (f *fakeAdapter) Venue() string { return f.name }
func (f *fakeAdapter) Kind() venue.Kind { return venue.KindSubscription }
func (f *fakeAdapter) Start(ctx context.Context, emit venue.EmitFunc) error {
	f.mu.Lock()
	f.emit = emit
	f.mu.Unlock()
	return f.startErr
}
func (f *fakeAdapter) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	return nil
}
func (f *fakeAdapter) deliver(tick model.RawTick) {
	f.mu.Lock()
	emit := f.emit
	f.mu.Unlock()
	if emit != nil {
		emit(tick)
	}
}

type fakeStore struct {
	mu    sync.Mutex
	ticks [][]model.RawTick
	err   error
}

func (s *fakeStore) InsertTicks(ctx context.Context, ticks []model.RawTick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := append([]model.RawTick(nil), ticks...)
	s.ticks = append(s.ticks, cp)
	return nil
}

type fakeSink struct {
	mu       sync.Mutex
	statuses []model.TrackerStatus
}

func (s *fakeSink) UpdateStatus(ctx context.Context, status model.TrackerStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
}

func (s *fakeSink) last() (model.TrackerStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return model.TrackerStatus{}, false
	}
	return s.statuses[len(s.statuses)-1], true
}

func TestEmitAndDrainUpsertsBySymbol(t *testing.T) {
	adapter := &fakeAdapter{name: "testvenue"}
	tr := New(adapter, time.Hour, &fakeStore{}, nil, nil)

	tr.emit(model.RawTick{OriginalSymbol: "BTC", MarkPrice: "100"})
	tr.emit(model.RawTick{OriginalSymbol: "BTC", MarkPrice: "101"}) // last-write-wins
	tr.emit(model.RawTick{OriginalSymbol: "ETH", MarkPrice: "10"})

	ticks := tr.drain()
	if len(ticks) != 2 {
		t.Fatalf("expected 2 distinct symbols after upsert, got %d", len(ticks))
	}
	for _, tick := range ticks {
		if tick.OriginalSymbol == "BTC" && tick.MarkPrice != "101" {
			t.Fatalf("expected last write to win for BTC, got %s", tick.MarkPrice)
		}
	}

	// Draining again with an empty buffer is a no-op.
	if more := tr.drain(); more != nil {
		t.Fatalf("expected nil from draining an empty buffer, got %v", more)
	}
}

func TestSnapshotSkipsEmptyBuffer(t *testing.T) {
	store := &fakeStore{}
	adapter := &fakeAdapter{name: "testvenue"}
	tr := New(adapter, time.Hour, store, nil, nil)

	tr.snapshot(context.Background())

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.ticks) != 0 {
		t.Fatalf("expected no insert for an empty buffer, got %d batches", len(store.ticks))
	}
}

func TestSnapshotInsertsDrainedTicks(t *testing.T) {
	store := &fakeStore{}
	adapter := &fakeAdapter{name: "testvenue"}
	tr := New(adapter, time.Hour, store, nil, nil)

	tr.emit(model.RawTick{OriginalSymbol: "BTC", MarkPrice: "100"})
	tr.snapshot(context.Background())

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.ticks) != 1 || len(store.ticks[0]) != 1 {
		t.Fatalf("expected exactly one batch of one tick, got %v", store.ticks)
	}
}

func TestVenueReturnsAdapterVenue(t *testing.T) {
	adapter := &fakeAdapter{name: "hyperliquid"}
	tr := New(adapter, time.Hour, &fakeStore{}, nil, nil)
	if tr.Venue() != "hyperliquid" {
		t.Fatalf("Venue() = %q, want %q", tr.Venue(), "hyperliquid")
	}
}

func TestSnapshotMethodReportsBufferDepth(t *testing.T) {
	adapter := &fakeAdapter{name: "testvenue"}
	tr := New(adapter, time.Hour, &fakeStore{}, nil, nil)
	tr.emit(model.RawTick{OriginalSymbol: "BTC", MarkPrice: "100"})
	tr.emit(model.RawTick{OriginalSymbol: "ETH", MarkPrice: "10"})

	snap := tr.Snapshot()
	if snap.BufferDepth != 2 {
		t.Fatalf("BufferDepth = %d, want 2", snap.BufferDepth)
	}
	if snap.Exchange != "testvenue" {
		t.Fatalf("Exchange = %q, want %q", snap.Exchange, "testvenue")
	}
}

func TestSetStateNotifiesStatusSink(t *testing.T) {
	sink := &fakeSink{}
	adapter := &fakeAdapter{name: "testvenue"}
	tr := New(adapter, time.Hour, &fakeStore{}, sink, nil)

	tr.setState(context.Background(), model.StateRunning, "")

	last, ok := sink.last()
	if !ok {
		t.Fatal("expected a status update")
	}
	if last.State != model.StateRunning {
		t.Fatalf("State = %q, want %q", last.State, model.StateRunning)
	}
	if last.Exchange != "testvenue" {
		t.Fatalf("Exchange = %q, want %q", last.Exchange, "testvenue")
	}
}

func TestStopClosesStopChannel(t *testing.T) {
	adapter := &fakeAdapter{name: "testvenue"}
	tr := New(adapter, time.Hour, &fakeStore{}, nil, nil)

	done := make(chan struct{})
	go func() {
		<-tr.stopCh
		close(done)
	}()

	tr.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected stopCh to close after Stop()")
	}
}
