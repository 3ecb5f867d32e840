package venues

import (
	"time"

	"github.com/perpwatch/perpwatch/internal/venue"
)

// NewParadexAdapter builds the paradex pull adapter. paradex exposes a CEX-style
// REST ticker API, so this reuses genericRESTVenue (see common.go) rather
// than bespoke parsing.
func NewParadexAdapter() venue.Adapter {
	return genericRESTVenue("paradex", "https://api.prod.paradex.trade/v1", 15*time.Second)
}
