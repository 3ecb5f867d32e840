package venues

import (
	"time"

	"github.com/perpwatch/perpwatch/internal/venue"
)

// NewHynaAdapter builds the hyna pull adapter. hyna exposes a CEX-style
// REST ticker API, so this reuses genericRESTVenue (see common.go) rather
// than bespoke parsing.
func NewHynaAdapter() venue.Adapter {
	return genericRESTVenue("hyna", "https://api.hyna.exchange/v1", 60*time.Second)
}
