package venue

import (
	"time"

	"github.com/perpwatch/perpwatch/internal/model"
)

// toRawTick stamps a parsed update with the producer clock and converts it
// into the storage schema. recorded_at is the wall-clock time the adapter
// observed the update; created_at is its truncation to seconds, satisfying
// the RawTick invariant created_at = floor(recorded_at/1000).
func (u RawUpdate) toRawTick(venueID string) model.RawTick {
	now := time.Now()
	recordedAt := now.UnixMilli()

	t := model.RawTick{
		Exchange:        venueID,
		OriginalSymbol:  u.OriginalSymbol,
		MarketID:        u.MarketID,
		MarkPrice:       u.MarkPrice,
		IndexPrice:      u.IndexPrice,
		LastPrice:       u.LastPrice,
		OpenInterest:    u.OpenInterest,
		OpenInterestUSD: u.OpenInterestUSD,
		FundingRate:     u.FundingRate,
		NextFundingAt:   u.NextFundingAtMS,
		Volume24h:       u.Volume24h,
		QuoteVolume24h:  u.QuoteVolume24h,
		Low24h:          u.Low24h,
		High24h:         u.High24h,
		Change24h:       u.Change24h,
		RecordedAt:      recordedAt,
		CreatedAt:       recordedAt / 1000,
	}
	return t.WithDefaults()
}
