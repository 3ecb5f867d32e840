package venues

import (
	"time"

	"github.com/perpwatch/perpwatch/internal/venue"
)

// NewRabbitxAdapter builds the rabbitx pull adapter. rabbitx exposes a CEX-style
// REST ticker API, so this reuses genericRESTVenue (see common.go) rather
// than bespoke parsing.
func NewRabbitxAdapter() venue.Adapter {
	return genericRESTVenue("rabbitx", "https://api.rabbitx.io/v1", 15*time.Second)
}
