package venues

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/perpwatch/perpwatch/internal/venue"
)

// vertex's REST API lists every product from a single "products" endpoint
// and serves per-product prices, funding and OI from a per-symbol "ticker"
// endpoint; this adapter fetches the full product list once per refresh and
// hits the ticker endpoint once per instrument per poll, mirroring the teacher's
// internal/providers/kraken.Client.GetTicker single-pair request shape.
type vertexProduct struct {
	Symbol string `json:"symbol"`
	Status string `json:"status"`
	Type   string `json:"type"` // "perp" or "spot"
}

type vertexProductsResponse struct {
	Products []vertexProduct `json:"products"`
}

type vertexTickerResponse struct {
	MarkPrice       string  `json:"mark_price"`
	IndexPrice      string  `json:"index_price"`
	OpenInterest    string  `json:"open_interest"`
	FundingRate8h   string  `json:"funding_rate_8h"`
	Volume24h       float64 `json:"volume_24h"`
	Change24h       float64 `json:"change_24h"`
}

const vertexBaseURL = "https://prod.vertexprotocol.com/v1"

func NewVertexAdapter() venue.Adapter {
	client := &http.Client{Timeout: 10 * time.Second}

	return &venue.PullEngine{
		VenueID:      "vertex",
		PollInterval: 15 * time.Second,
		RPS:          4,
		FetchInstruments: func(ctx context.Context) ([]venue.Instrument, error) {
			var resp vertexProductsResponse
			if err := httpGetJSON(ctx, client, vertexBaseURL+"/products", &resp); err != nil {
				return nil, err
			}
			out := make([]venue.Instrument, 0, len(resp.Products))
			for _, p := range resp.Products {
				out = append(out, venue.Instrument{
					OriginalSymbol: p.Symbol,
					MarketID:       p.Symbol,
					Status:         p.Status,
					IsPerp:         p.Type == "perp",
				})
			}
			return out, nil
		},
		FetchTicker: func(ctx context.Context, inst venue.Instrument) (venue.RawUpdate, error) {
			var t vertexTickerResponse
			reqURL := fmt.Sprintf("%s/ticker/%s", vertexBaseURL, inst.OriginalSymbol)
			if err := httpGetJSON(ctx, client, reqURL, &t); err != nil {
				return venue.RawUpdate{}, err
			}
			return venue.RawUpdate{
				OriginalSymbol: inst.OriginalSymbol,
				MarketID:       inst.MarketID,
				MarkPrice:      t.MarkPrice,
				IndexPrice:     t.IndexPrice,
				OpenInterest:   t.OpenInterest,
				FundingRate:    t.FundingRate8h,
				Volume24h:      t.Volume24h,
				Change24h:      t.Change24h,
			}, nil
		},
	}
}
