package venues

import (
	"encoding/json"

	"github.com/perpwatch/perpwatch/internal/venue"
)

// dydx's v4 indexer exposes a single "v4_markets" channel covering every
// active market, so the subscribe message is sent once regardless of the
// instrument list (spec.md §4.1 "requests all active markets").
type dydxMarketsMsg struct {
	Type     string                        `json:"type"`
	Channel  string                        `json:"channel"`
	Contents dydxMarketsContents           `json:"contents"`
}

type dydxMarketsContents struct {
	Markets map[string]dydxMarketUpdate `json:"markets"`
}

type dydxMarketUpdate struct {
	OraclePrice     string `json:"oraclePrice"`
	NextFundingRate string `json:"nextFundingRate"`
	OpenInterest    string `json:"openInterest"`
	Volume24H       string `json:"volume24H"`
	PriceChange24H  string `json:"priceChange24H"`
	Status          string `json:"status"`
}

func dydxSubscribeMsg(_ []venue.Instrument) []interface{} {
	return []interface{}{
		map[string]interface{}{
			"type":    "subscribe",
			"channel": "v4_markets",
		},
	}
}

func dydxParseMessage(raw []byte) ([]venue.RawUpdate, error) {
	var msg dydxMarketsMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if msg.Channel != "v4_markets" || len(msg.Contents.Markets) == 0 {
		return nil, nil
	}

	updates := make([]venue.RawUpdate, 0, len(msg.Contents.Markets))
	for symbol, m := range msg.Contents.Markets {
		if m.Status != "" && m.Status != "ACTIVE" {
			continue
		}
		updates = append(updates, venue.RawUpdate{
			OriginalSymbol: symbol,
			MarketID:       symbol,
			MarkPrice:      m.OraclePrice,
			IndexPrice:     m.OraclePrice,
			OpenInterest:   m.OpenInterest,
			FundingRate:    m.NextFundingRate,
		})
	}
	return updates, nil
}

// NewDydxAdapter builds the dydx subscription adapter.
func NewDydxAdapter() venue.Adapter {
	return &venue.SubscriptionEngine{
		VenueID:   "dydx",
		WSURL:     "wss://indexer.dydx.trade/v4/ws",
		Subscribe: dydxSubscribeMsg,
		Parse:     dydxParseMessage,
		AppPing:   false, // dydx's indexer replies to protocol-level pings itself
	}
}
