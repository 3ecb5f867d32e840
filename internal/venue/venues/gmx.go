package venues

import (
	"time"

	"github.com/perpwatch/perpwatch/internal/venue"
)

// NewGmxAdapter builds the gmx pull adapter. gmx exposes a CEX-style
// REST ticker API, so this reuses genericRESTVenue (see common.go) rather
// than bespoke parsing.
func NewGmxAdapter() venue.Adapter {
	return genericRESTVenue("gmx", "https://api.gmx.io/v2", 15*time.Second)
}
