package venues

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/perpwatch/perpwatch/internal/venue"
)

// apex's public v3 REST API batches every symbol's ticker into one
// "tickers" response; this adapter still implements the per-instrument
// FetchTicker contract by caching the batch from the last call that hit the
// wire and replaying it for instruments it already covers, avoiding one
// request per symbol per poll tick. A batch older than 10s is fetched again,
// so each 15s poll round starts from fresh tickers.
type apexTicker struct {
	Symbol          string  `json:"symbol"`
	OraclePrice     string  `json:"oraclePrice"`
	IndexPrice      string  `json:"indexPrice"`
	OpenInterest    string  `json:"openInterest"`
	FundingRate     string  `json:"fundingRate"`
	Volume24h       string  `json:"volume24h"`
	Low24h          string  `json:"lowPrice24h"`
	High24h         string  `json:"highPrice24h"`
}

type apexTickersResponse struct {
	Data []apexTicker `json:"data"`
}

type apexSymbolsResponse struct {
	Data []struct {
		Symbol string `json:"symbol"`
		Status string `json:"status"`
	} `json:"data"`
}

const apexBaseURL = "https://pro.apex.exchange/api/v3"

func NewApexAdapter() venue.Adapter {
	client := &http.Client{Timeout: 10 * time.Second}
	batch := make(map[string]apexTicker)
	var batchAt time.Time

	refreshBatch := func(ctx context.Context) error {
		var resp apexTickersResponse
		if err := httpGetJSON(ctx, client, apexBaseURL+"/ticker", &resp); err != nil {
			return err
		}
		for _, t := range resp.Data {
			batch[t.Symbol] = t
		}
		batchAt = time.Now()
		return nil
	}

	return &venue.PullEngine{
		VenueID:      "apex",
		PollInterval: 15 * time.Second,
		RPS:          2,
		FetchInstruments: func(ctx context.Context) ([]venue.Instrument, error) {
			var resp apexSymbolsResponse
			if err := httpGetJSON(ctx, client, apexBaseURL+"/symbols", &resp); err != nil {
				return nil, err
			}
			out := make([]venue.Instrument, 0, len(resp.Data))
			for _, s := range resp.Data {
				out = append(out, venue.Instrument{
					OriginalSymbol: s.Symbol,
					MarketID:       s.Symbol,
					Status:         s.Status,
					IsPerp:         true, // apex's public API only lists perpetuals
				})
			}
			return out, nil
		},
		FetchTicker: func(ctx context.Context, inst venue.Instrument) (venue.RawUpdate, error) {
			if _, ok := batch[inst.OriginalSymbol]; !ok || time.Since(batchAt) >= 10*time.Second {
				if err := refreshBatch(ctx); err != nil {
					return venue.RawUpdate{}, err
				}
			}
			t, ok := batch[inst.OriginalSymbol]
			if !ok {
				return venue.RawUpdate{}, &url.Error{Op: "apex ticker", URL: inst.OriginalSymbol, Err: errSymbolNotInBatch}
			}
			return venue.RawUpdate{
				OriginalSymbol: inst.OriginalSymbol,
				MarketID:       inst.MarketID,
				MarkPrice:      t.OraclePrice,
				IndexPrice:     t.IndexPrice,
				OpenInterest:   t.OpenInterest,
				FundingRate:    t.FundingRate,
			}, nil
		},
	}
}

var errSymbolNotInBatch = apexErr("symbol not present in latest ticker batch")

type apexErr string

func (e apexErr) Error() string { return string(e) }
