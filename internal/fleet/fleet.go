// Package fleet is the single place that knows about all ~13 venues: it
// builds each venue.Adapter and pairs it with the snapshot interval its
// tracker should use (spec.md §4.2).
package fleet

import (
	"github.com/perpwatch/perpwatch/internal/venue"
	"github.com/perpwatch/perpwatch/internal/venue/venues"
)

// Entry pairs one venue's adapter with its tracker snapshot cadence.
type Entry struct {
	VenueID          string
	Adapter          venue.Adapter
	SnapshotInterval venue.SnapshotInterval
}

// defaultHyperliquidUniverse seeds the hyperliquid subscription adapter,
// which has no all-markets channel (spec.md §4.1).
var defaultHyperliquidUniverse = []venue.Instrument{
	{OriginalSymbol: "BTC", IsPerp: true, Status: "active"},
	{OriginalSymbol: "ETH", IsPerp: true, Status: "active"},
	{OriginalSymbol: "SOL", IsPerp: true, Status: "active"},
	{OriginalSymbol: "ARB", IsPerp: true, Status: "active"},
	{OriginalSymbol: "AVAX", IsPerp: true, Status: "active"},
}

// All returns every venue this deployment tracks. Subscription venues and
// fast-poll venues snapshot every 15s; venues whose funding updates hourly
// (hyna, vntl) snapshot on the slower 60s cadence (spec.md §4.2).
func All() []Entry {
	return []Entry{
		{"hyperliquid", venues.NewHyperliquidAdapter(defaultHyperliquidUniverse), venue.Snapshot15s},
		{"dydx", venues.NewDydxAdapter(), venue.Snapshot15s},
		{"vertex", venues.NewVertexAdapter(), venue.Snapshot15s},
		{"apex", venues.NewApexAdapter(), venue.Snapshot15s},
		{"paradex", venues.NewParadexAdapter(), venue.Snapshot15s},
		{"drift", venues.NewDriftAdapter(), venue.Snapshot15s},
		{"gmx", venues.NewGmxAdapter(), venue.Snapshot15s},
		{"kwenta", venues.NewKwentaAdapter(), venue.Snapshot15s},
		{"aevo", venues.NewAevoAdapter(), venue.Snapshot15s},
		{"rabbitx", venues.NewRabbitxAdapter(), venue.Snapshot15s},
		{"bluefin", venues.NewBluefinAdapter(), venue.Snapshot15s},
		{"hyna", venues.NewHynaAdapter(), venue.Snapshot60s},
		{"vntl", venues.NewVntlAdapter(), venue.Snapshot60s},
	}
}
