package venues

import (
	"time"

	"github.com/perpwatch/perpwatch/internal/venue"
)

// NewAevoAdapter builds the aevo pull adapter. aevo exposes a CEX-style
// REST ticker API, so this reuses genericRESTVenue (see common.go) rather
// than bespoke parsing.
func NewAevoAdapter() venue.Adapter {
	return genericRESTVenue("aevo", "https://api.aevo.xyz", 15*time.Second)
}
