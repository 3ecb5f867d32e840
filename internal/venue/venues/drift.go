package venues

import (
	"time"

	"github.com/perpwatch/perpwatch/internal/venue"
)

// NewDriftAdapter builds the drift pull adapter. drift exposes a CEX-style
// REST ticker API, so this reuses genericRESTVenue (see common.go) rather
// than bespoke parsing.
func NewDriftAdapter() venue.Adapter {
	return genericRESTVenue("drift", "https://dlob.drift.trade/v2", 15*time.Second)
}
