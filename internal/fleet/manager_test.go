package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/perpwatch/perpwatch/internal/model"
	"github.com/perpwatch/perpwatch/internal/venue"
)

type fakeAdapter struct{ name string }

func (f *fakeAdapter) Venue() string                               { return f.name }
func (f *fakeAdapter) Kind() venue.Kind                             { return venue.KindSubscription }
func (f *fakeAdapter) Start(ctx context.Context, emit venue.EmitFunc) error { <-ctx.Done(); return nil }
func (f *fakeAdapter) Stop() error                                  { return nil }

type fakeStore struct{}

func (fakeStore) InsertTicks(ctx context.Context, ticks []model.RawTick) error { return nil }

type fakeSink struct{}

func (fakeSink) UpdateStatus(ctx context.Context, status model.TrackerStatus) {}

func testEntries() []Entry {
	return []Entry{
		{VenueID: "alpha", Adapter: &fakeAdapter{name: "alpha"}, SnapshotInterval: venue.Snapshot15s},
		{VenueID: "beta", Adapter: &fakeAdapter{name: "beta"}, SnapshotInterval: venue.Snapshot60s},
	}
}

func TestManagerStartAllRunsEveryEntry(t *testing.T) {
	mgr := NewManager(testEntries(), fakeStore{}, fakeSink{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr.StartAll(ctx)
	time.Sleep(10 * time.Millisecond)

	if !mgr.IsRunning("alpha") || !mgr.IsRunning("beta") {
		t.Fatal("expected both venues running after StartAll")
	}
}

func TestManagerStartUnknownVenue(t *testing.T) {
	mgr := NewManager(testEntries(), fakeStore{}, fakeSink{}, nil)
	if err := mgr.Start(context.Background(), "nonexistent"); err == nil {
		t.Fatal("expected error starting an unregistered venue")
	}
}

func TestManagerStartIsIdempotent(t *testing.T) {
	mgr := NewManager(testEntries(), fakeStore{}, fakeSink{}, nil)
	ctx := context.Background()

	if err := mgr.Start(ctx, "alpha"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mgr.Start(ctx, "alpha"); err != nil {
		t.Fatalf("starting an already-running venue should be a no-op, got: %v", err)
	}
}

func TestManagerStopUnknownVenue(t *testing.T) {
	mgr := NewManager(testEntries(), fakeStore{}, fakeSink{}, nil)
	if err := mgr.Stop("alpha"); err == nil {
		t.Fatal("expected error stopping a venue that was never started")
	}
}

func TestManagerStopThenRestart(t *testing.T) {
	mgr := NewManager(testEntries(), fakeStore{}, fakeSink{}, nil)
	ctx := context.Background()

	if err := mgr.Start(ctx, "alpha"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mgr.Stop("alpha"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mgr.IsRunning("alpha") {
		t.Fatal("expected venue to be stopped")
	}
	// Restarting after a stop must rebuild a fresh Tracker rather than
	// erroring on a closed stopCh channel.
	if err := mgr.Start(ctx, "alpha"); err != nil {
		t.Fatalf("expected restart to succeed, got: %v", err)
	}
	if !mgr.IsRunning("alpha") {
		t.Fatal("expected venue running again after restart")
	}
}

func TestManagerSnapshotUnknownVenue(t *testing.T) {
	mgr := NewManager(testEntries(), fakeStore{}, fakeSink{}, nil)
	if _, ok := mgr.Snapshot("nonexistent"); ok {
		t.Fatal("expected ok=false for a venue that was never started")
	}
}

func TestManagerNamesListsAllRegisteredVenues(t *testing.T) {
	mgr := NewManager(testEntries(), fakeStore{}, fakeSink{}, nil)
	names := mgr.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 registered venues, got %d: %v", len(names), names)
	}
}
