// Package venue defines the adapter contract (spec.md §4.1) shared by every
// venue integration: a fixed set of operations (Start/Stop/emit) that both
// subscription-shaped and pull-shaped adapters expose identically to the
// tracker runtime, grounded in the teacher's
// internal/data/exchanges/kraken.Adapter and internal/providers/kraken.Client.
package venue

import (
	"context"
	"time"

	"github.com/perpwatch/perpwatch/internal/model"
)

// Kind distinguishes the two adapter shapes spec.md §4.1 describes.
type Kind string

const (
	KindSubscription Kind = "subscription"
	KindPull         Kind = "pull"
)

// EmitFunc is how an adapter delivers one normalized tick to its owning
// tracker. The tracker's buffer upserts by original symbol (last write wins
// within one snapshot cycle); the adapter never touches the buffer itself.
type EmitFunc func(model.RawTick)

// Adapter is the contract every venue integration satisfies, regardless of
// shape. Start is idempotent if already started; Stop closes cleanly and may
// still deliver one final in-flight tick.
type Adapter interface {
	Venue() string
	Kind() Kind
	Start(ctx context.Context, emit EmitFunc) error
	Stop() error
}

// Instrument is one tradable market as reported by a venue's instrument
// listing (pull adapters refresh this at most every 60 min, spec.md §4.1).
type Instrument struct {
	OriginalSymbol string
	MarketID       string
	Status         string // e.g. "active", "tradable", "delisted"
	IsPerp         bool   // false for options/spot markets, which are dropped
}

// Active reports whether the instrument should be polled/subscribed: it
// must be a perpetual-futures-like market in an active/tradable state
// (spec.md §4.1 "Filtering policy").
func (i Instrument) Active() bool {
	if !i.IsPerp {
		return false
	}
	switch i.Status {
	case "active", "tradable", "trading", "open":
		return true
	default:
		return false
	}
}

// SnapshotInterval is how often a tracker drains its buffer for this venue
// (spec.md §4.2): 15s for subscription/fast-poll venues, 60s for venues
// whose funding updates hourly and are polled on a slower cadence.
type SnapshotInterval time.Duration

const (
	Snapshot15s SnapshotInterval = SnapshotInterval(15 * time.Second)
	Snapshot60s SnapshotInterval = SnapshotInterval(60 * time.Second)
)
