package venues

import (
	"time"

	"github.com/perpwatch/perpwatch/internal/venue"
)

// NewVntlAdapter builds the vntl pull adapter. vntl exposes a CEX-style
// REST ticker API, so this reuses genericRESTVenue (see common.go) rather
// than bespoke parsing.
func NewVntlAdapter() venue.Adapter {
	return genericRESTVenue("vntl", "https://api.vntl.exchange/v1", 60*time.Second)
}
