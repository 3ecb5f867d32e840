package fleet

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/perpwatch/perpwatch/internal/metrics"
	"github.com/perpwatch/perpwatch/internal/model"
	"github.com/perpwatch/perpwatch/internal/tracker"
)

// Manager owns the running set of per-venue Trackers and backs the
// lifecycle-control endpoints (`POST /tracker/{exchange}/start`, `…/stop`,
// spec.md §6). Adapters are long-lived (built once by All()); a Tracker is
// cheap to rebuild, so Start constructs a fresh one each time rather than
// trying to resume a stopped tracker's internal state machine.
type Manager struct {
	store   tracker.Store
	status  tracker.StatusSink
	metrics *metrics.Registry

	mu      sync.Mutex
	entries map[string]Entry
	running map[string]*tracker.Tracker
	cancels map[string]context.CancelFunc
}

// NewManager builds a Manager over the given entries, sharing one WRITE
// store handle, one StatusSink, and one metrics Registry across every
// tracker (spec.md §5: "the WRITE database is the only resource shared
// between trackers"). m may be nil.
func NewManager(entries []Entry, store tracker.Store, status tracker.StatusSink, m *metrics.Registry) *Manager {
	byName := make(map[string]Entry, len(entries))
	for _, e := range entries {
		byName[e.VenueID] = e
	}
	return &Manager{
		store:   store,
		status:  status,
		metrics: m,
		entries: byName,
		running: make(map[string]*tracker.Tracker),
		cancels: make(map[string]context.CancelFunc),
	}
}

// StartAll launches every registered venue's tracker under ctx. Intended
// for process startup; individual venues can be stopped/restarted
// afterward via Stop/Start.
func (m *Manager) StartAll(ctx context.Context) {
	m.mu.Lock()
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	m.mu.Unlock()

	for _, name := range names {
		if err := m.Start(ctx, name); err != nil {
			log.Error().Str("venue", name).Err(err).Msg("failed to start tracker")
		}
	}
}

// Start (re)launches one venue's tracker. Starting an already-running
// tracker is a no-op.
func (m *Manager) Start(ctx context.Context, exchange string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[exchange]
	if !ok {
		return fmt.Errorf("fleet: unknown venue %q", exchange)
	}
	if _, running := m.running[exchange]; running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	t := tracker.New(entry.Adapter, time.Duration(entry.SnapshotInterval), m.store, m.status, m.metrics)
	m.running[exchange] = t
	m.cancels[exchange] = cancel

	go t.Run(runCtx)
	return nil
}

// Stop halts one venue's tracker; in-flight snapshot batches complete
// before it exits (spec.md §5 Cancellation & timeouts).
func (m *Manager) Stop(exchange string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.running[exchange]
	if !ok {
		return fmt.Errorf("fleet: venue %q is not running", exchange)
	}
	t.Stop()
	if cancel, ok := m.cancels[exchange]; ok {
		cancel()
	}
	delete(m.running, exchange)
	delete(m.cancels, exchange)
	return nil
}

// Snapshot returns the in-memory debug view for one venue (`GET
// /tracker/{exchange}/debug`). The second return is false when the venue
// is unknown or not currently running.
func (m *Manager) Snapshot(exchange string) (model.TrackerStatus, bool) {
	m.mu.Lock()
	t, ok := m.running[exchange]
	m.mu.Unlock()
	if !ok {
		return model.TrackerStatus{}, false
	}
	return t.Snapshot(), true
}

// Names returns every registered venue id, in no particular order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	return names
}

// IsRunning reports whether exchange currently has a live tracker.
func (m *Manager) IsRunning(exchange string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.running[exchange]
	return ok
}
