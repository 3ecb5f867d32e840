// Package tracker implements the per-venue runtime (spec.md §4.2): the
// lifecycle state machine, in-memory buffer, snapshot timer, status
// maintenance, and reconnect policy shared by every venue adapter. Grounded
// in the design note "Durable per-venue object with internal timers": one
// long-lived task per venue, owning its buffer, driven by select over
// tickers and a cancellation signal rather than timer callbacks.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/perpwatch/perpwatch/internal/metrics"
	"github.com/perpwatch/perpwatch/internal/model"
	"github.com/perpwatch/perpwatch/internal/venue"
)

const (
	reconnectDelay  = 5 * time.Second
	maxReconnects   = 10
	disconnectAfter = 60 * time.Second // staleness threshold checked by disconnected()
)

// Store is the subset of the WRITE store the tracker needs: a single
// multi-row batch insert per snapshot (spec.md §4.2 step 3).
type Store interface {
	InsertTicks(ctx context.Context, ticks []model.RawTick) error
}

// StatusSink receives TrackerStatus updates as they change; the query
// surface's /api/status and /tracker/{exchange}/status read the latest
// value written here.
type StatusSink interface {
	UpdateStatus(ctx context.Context, status model.TrackerStatus)
}

// Tracker runs one venue's adapter lifecycle. All mutations to its buffer
// and timers happen from the single goroutine running Run, per spec.md §4.2
// "logically single-threaded"; the DB call may block but does not re-enter
// the buffer.
type Tracker struct {
	venue            venue.Adapter
	snapshotInterval time.Duration
	store            Store
	status           StatusSink
	metrics          *metrics.Registry
	log              zerolog.Logger

	mu     sync.Mutex // guards buffer and lastMessageAt; buffer is drained on the tracker goroutine
	buffer map[string]model.RawTick

	smu            sync.Mutex // guards state/reconnectCount/lastError for concurrent reads from the HTTP API
	state          model.TrackerState
	reconnectCount int
	lastMessageAt  time.Time // guarded by mu, set alongside buffer writes in emit
	lastError      string

	stopCh chan struct{}
}

// New builds a Tracker for one venue. m may be nil, in which case the
// tracker simply does not record Prometheus metrics.
func New(adapter venue.Adapter, snapshotInterval time.Duration, store Store, status StatusSink, m *metrics.Registry) *Tracker {
	return &Tracker{
		venue:            adapter,
		snapshotInterval: snapshotInterval,
		store:            store,
		status:           status,
		metrics:          m,
		log:              log.With().Str("venue", adapter.Venue()).Logger(),
		buffer:           make(map[string]model.RawTick),
		state:            model.StateInitialized,
		stopCh:           make(chan struct{}),
	}
}

// emit upserts one tick into the buffer, last-write-wins per original
// symbol (spec.md §4.1 Emit semantics).
func (t *Tracker) emit(tick model.RawTick) {
	t.mu.Lock()
	t.buffer[tick.OriginalSymbol] = tick
	t.lastMessageAt = time.Now()
	depth := len(t.buffer)
	t.mu.Unlock()

	if t.metrics != nil {
		t.metrics.TrackerBufferSize.WithLabelValues(t.venue.Venue()).Set(float64(depth))
	}
}

// drain moves the buffer out and replaces it with a fresh empty map,
// atomically with respect to emit (spec.md §4.2 "Reads occur only at
// snapshot time, which drains the map to a list and clears it atomically").
func (t *Tracker) drain() []model.RawTick {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.metrics != nil {
		t.metrics.TrackerBufferSize.WithLabelValues(t.venue.Venue()).Set(0)
	}
	if len(t.buffer) == 0 {
		return nil
	}
	out := make([]model.RawTick, 0, len(t.buffer))
	for _, tick := range t.buffer {
		out = append(out, tick)
	}
	t.buffer = make(map[string]model.RawTick)
	return out
}

// Run drives the tracker until ctx is cancelled or Stop is called. It owns
// the connection lifecycle, the snapshot ticker, and the reconnect policy;
// these timers survive reconnects (spec.md §4.2 "Timers for snapshotting
// and keepalives survive reconnects").
func (t *Tracker) Run(ctx context.Context) {
	t.setState(ctx, model.StateInitialized, "")

	if err := t.connect(ctx); err != nil {
		t.log.Error().Err(err).Msg("initial connect failed")
		t.setState(ctx, model.StateError, err.Error())
		t.setState(ctx, model.StateFailed, err.Error())
		return
	}
	t.setState(ctx, model.StateRunning, "")

	snapTicker := time.NewTicker(t.snapshotInterval)
	defer snapTicker.Stop()

	// Subscription adapters are watched for staleness on a fixed cadence
	// independent of the snapshot timer, so a disconnect is noticed even if
	// the snapshot interval is long (spec.md §5: ">=60s without a message is
	// a disconnect").
	watchdog := time.NewTicker(10 * time.Second)
	defer watchdog.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = t.venue.Stop()
			t.setState(ctx, model.StateStopped, "")
			return
		case <-t.stopCh:
			_ = t.venue.Stop()
			t.setState(ctx, model.StateStopped, "")
			return
		case <-snapTicker.C:
			t.snapshot(ctx)
		case <-watchdog.C:
			// Both shapes reach Disconnected the same way: a subscription's
			// read loop going silent or a pull adapter's calls failing for
			// long enough both show up as buffer staleness here (spec.md
			// §4.2: "subscription drop or poll-call failure").
			if t.disconnected() {
				if !t.reconnectLoop(ctx) {
					return
				}
			}
		}
	}
}

// Stop requests the tracker's goroutine to exit; in-flight DB batches are
// allowed to complete (spec.md §5 "Cancellation & timeouts").
func (t *Tracker) Stop() {
	close(t.stopCh)
}

func (t *Tracker) connect(ctx context.Context) error {
	return t.venue.Start(ctx, t.emit)
}

// disconnected is a placeholder hook point: concrete subscription engines
// surface a broken read loop by simply stopping delivery of messages, which
// this tracker detects via lastMessageAt staleness rather than an explicit
// callback, keeping the venue.Adapter contract uniform across shapes.
func (t *Tracker) disconnected() bool {
	t.mu.Lock()
	last := t.lastMessageAt
	t.mu.Unlock()
	if last.IsZero() {
		return false
	}
	return time.Since(last) > disconnectAfter
}

// reconnectLoop implements the fixed-backoff reconnect policy (spec.md
// §4.2): 5s delay, up to 10 attempts, then Failed requiring external
// restart. Returns false if the tracker should stop running entirely.
func (t *Tracker) reconnectLoop(ctx context.Context) bool {
	t.setState(ctx, model.StateDisconnected, "connection lost")
	_ = t.venue.Stop()

	for attempt := 1; attempt <= maxReconnects; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-t.stopCh:
			return false
		case <-time.After(reconnectDelay):
		}

		t.smu.Lock()
		t.reconnectCount++
		t.smu.Unlock()
		if t.metrics != nil {
			t.metrics.TrackerReconnects.WithLabelValues(t.venue.Venue()).Inc()
		}
		if err := t.connect(ctx); err != nil {
			t.log.Warn().Int("attempt", attempt).Err(err).Msg("reconnect failed")
			continue
		}

		t.log.Info().Int("attempt", attempt).Msg("reconnected")
		t.mu.Lock()
		t.lastMessageAt = time.Now()
		t.mu.Unlock()
		t.setState(ctx, model.StateRunning, "")
		return true
	}

	t.log.Error().Int("attempts", maxReconnects).Msg("exhausted reconnect attempts, entering failed state")
	t.setState(ctx, model.StateFailed, fmt.Sprintf("exhausted %d reconnect attempts", maxReconnects))
	return false
}

// snapshot drains the buffer and batch-inserts it into the WRITE store
// (spec.md §4.2 steps 1-5); ticks arrive already zero-filled by the
// adapters' toRawTick. An empty buffer is a normal no-op.
func (t *Tracker) snapshot(ctx context.Context) {
	ticks := t.drain()
	if len(ticks) == 0 {
		return
	}

	if err := t.store.InsertTicks(ctx, ticks); err != nil {
		t.log.Error().Err(err).Int("count", len(ticks)).Msg("snapshot batch insert failed")
		t.setState(ctx, model.StateError, err.Error())
		return // ticks are not put back into the buffer
	}

	t.setState(ctx, t.state, "")
}

func (t *Tracker) setState(ctx context.Context, state model.TrackerState, errText string) {
	t.smu.Lock()
	t.state = state
	t.lastError = errText
	reconnects := t.reconnectCount
	t.smu.Unlock()

	if t.status == nil {
		return
	}
	t.mu.Lock()
	lastMsg := t.lastMessageAt
	t.mu.Unlock()

	t.status.UpdateStatus(ctx, model.TrackerStatus{
		Exchange:       t.venue.Venue(),
		State:          state,
		LastMessageAt:  lastMsg.Unix(),
		LastError:      errText,
		ReconnectCount: reconnects,
		UpdatedAt:      time.Now().Unix(),
	})
}

// Venue returns the adapter's venue identifier.
func (t *Tracker) Venue() string { return t.venue.Venue() }

// Snapshot returns a point-in-time view of the tracker's in-memory state
// for the debug endpoint (`GET /tracker/{exchange}/debug`, spec.md §6) —
// deliberately distinct from the persisted TrackerStatus row, since it also
// reports the live buffer depth.
func (t *Tracker) Snapshot() model.TrackerStatus {
	t.smu.Lock()
	state, reconnects, lastErr := t.state, t.reconnectCount, t.lastError
	t.smu.Unlock()

	t.mu.Lock()
	lastMsg := t.lastMessageAt
	bufDepth := len(t.buffer)
	t.mu.Unlock()

	return model.TrackerStatus{
		Exchange:       t.venue.Venue(),
		State:          state,
		LastMessageAt:  lastMsg.Unix(),
		LastError:      lastErr,
		ReconnectCount: reconnects,
		UpdatedAt:      time.Now().Unix(),
		BufferDepth:    bufDepth,
	}
}
