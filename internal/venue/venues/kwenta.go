package venues

import (
	"time"

	"github.com/perpwatch/perpwatch/internal/venue"
)

// NewKwentaAdapter builds the kwenta pull adapter. kwenta exposes a CEX-style
// REST ticker API, so this reuses genericRESTVenue (see common.go) rather
// than bespoke parsing.
func NewKwentaAdapter() venue.Adapter {
	return genericRESTVenue("kwenta", "https://api.kwenta.io/v1", 15*time.Second)
}
