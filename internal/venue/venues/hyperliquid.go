package venues

import (
	"encoding/json"

	"github.com/perpwatch/perpwatch/internal/venue"
)

// hyperliquid has no single all-markets context channel, so the subscribe
// message iterates a supplied instrument list (spec.md §4.1), one
// subscription per coin, mirroring Hyperliquid's public "activeAssetCtx" WS
// channel shape.
type hyperliquidCtxMsg struct {
	Channel string                 `json:"channel"`
	Data    hyperliquidCtxMsgData  `json:"data"`
}

type hyperliquidCtxMsgData struct {
	Coin string            `json:"coin"`
	Ctx  hyperliquidAssetCtx `json:"ctx"`
}

type hyperliquidAssetCtx struct {
	MarkPx     string `json:"markPx"`
	OraclePx   string `json:"oraclePx"`
	MidPx      string `json:"midPx"`
	Funding    string `json:"funding"`
	OpenInterest string `json:"openInterest"`
	DayNtlVlm  string `json:"dayNtlVlm"`
	PrevDayPx  string `json:"prevDayPx"`
}

func hyperliquidSubscribeMsg(instruments []venue.Instrument) []interface{} {
	msgs := make([]interface{}, 0, len(instruments))
	for _, inst := range instruments {
		msgs = append(msgs, map[string]interface{}{
			"method": "subscribe",
			"subscription": map[string]interface{}{
				"type": "activeAssetCtx",
				"coin": inst.OriginalSymbol,
			},
		})
	}
	return msgs
}

func hyperliquidParseMessage(raw []byte) ([]venue.RawUpdate, error) {
	var msg hyperliquidCtxMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, err
	}
	if msg.Channel != "activeAssetCtx" || msg.Data.Coin == "" {
		return nil, nil // subscription ack / heartbeat, not a data update
	}

	ctx := msg.Data.Ctx
	return []venue.RawUpdate{{
		OriginalSymbol: msg.Data.Coin,
		MarketID:       msg.Data.Coin,
		MarkPrice:      ctx.MarkPx,
		IndexPrice:     ctx.OraclePx,
		LastPrice:      ctx.MidPx,
		OpenInterest:   ctx.OpenInterest,
		FundingRate:    ctx.Funding,
	}}, nil
}

// NewHyperliquidAdapter builds the hyperliquid subscription adapter. The
// instrument list is seeded with the venue's known perpetual universe; a
// production deployment would refresh it from the venue's "meta" REST
// endpoint before connecting.
func NewHyperliquidAdapter(instruments []venue.Instrument) venue.Adapter {
	return &venue.SubscriptionEngine{
		VenueID:     "hyperliquid",
		WSURL:       "wss://api.hyperliquid.xyz/ws",
		Subscribe:   hyperliquidSubscribeMsg,
		Parse:       hyperliquidParseMessage,
		AppPing:     true,
		Instruments: instruments,
	}
}
