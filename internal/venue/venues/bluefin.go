package venues

import (
	"time"

	"github.com/perpwatch/perpwatch/internal/venue"
)

// NewBluefinAdapter builds the bluefin pull adapter. bluefin exposes a CEX-style
// REST ticker API, so this reuses genericRESTVenue (see common.go) rather
// than bespoke parsing.
func NewBluefinAdapter() venue.Adapter {
	return genericRESTVenue("bluefin", "https://api.bluefin.io/v1", 15*time.Second)
}
