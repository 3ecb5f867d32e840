// Package venues holds the 13 concrete venue integrations (spec.md §1's
// "~13 decentralized derivatives venues"). Each file wires a
// venue.SubscriptionEngine or venue.PullEngine — the two generic engines in
// internal/venue — with that venue's own wire format. Four venues
// (hyperliquid, dydx: subscription; vertex, apex: pull) get bespoke parsing;
// the remaining nine share genericRESTVenue, a templated pull adapter for
// venues that expose a CEX-style REST ticker endpoint, grounded in the
// teacher's internal/providers/kraken.Client request/decode shape.
package venues

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/perpwatch/perpwatch/internal/circuit"
	"github.com/perpwatch/perpwatch/internal/venue"
)

// httpGetJSON performs a GET request and decodes the JSON body into v,
// mirroring the teacher's Client.makeRequest + json.Unmarshal pairing.
func httpGetJSON(ctx context.Context, client *http.Client, rawURL string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// genericInstrument is the common market-listing shape used by the
// templated REST venues.
type genericInstrument struct {
	Symbol string `json:"symbol"`
	Status string `json:"status"`
	Kind   string `json:"kind"` // "perpetual", "spot", "option"
}

// genericTicker is the common per-symbol stats shape used by the templated
// REST venues.
type genericTicker struct {
	Symbol          string  `json:"symbol"`
	MarkPrice       string  `json:"markPrice"`
	IndexPrice      string  `json:"indexPrice"`
	LastPrice       string  `json:"lastPrice"`
	OpenInterest    string  `json:"openInterest"`
	OpenInterestUSD string  `json:"openInterestUsd"`
	FundingRate     string  `json:"fundingRate"`
	NextFundingMS   *int64  `json:"nextFundingTimeMs,omitempty"`
	Volume24h       float64 `json:"volume24h"`
	QuoteVolume24h  float64 `json:"quoteVolume24h"`
	Low24h          float64 `json:"low24h"`
	High24h         float64 `json:"high24h"`
	Change24h       float64 `json:"change24h"`
}

// genericRESTVenue builds a venue.PullEngine against a venue whose REST API
// follows the common shape above: GET {base}/instruments lists markets, GET
// {base}/ticker?symbol=X returns one ticker.
func genericRESTVenue(id, base string, poll time.Duration) *venue.PullEngine {
	client := &http.Client{Timeout: 10 * time.Second}
	breaker := circuit.New(id)

	return &venue.PullEngine{
		VenueID:      id,
		PollInterval: poll,
		RPS:          3,
		FetchInstruments: func(ctx context.Context) ([]venue.Instrument, error) {
			var insts []genericInstrument
			if err := httpGetJSON(ctx, client, base+"/instruments", &insts); err != nil {
				return nil, err
			}
			out := make([]venue.Instrument, 0, len(insts))
			for _, in := range insts {
				out = append(out, venue.Instrument{
					OriginalSymbol: in.Symbol,
					MarketID:       in.Symbol,
					Status:         in.Status,
					IsPerp:         in.Kind == "perpetual" || in.Kind == "",
				})
			}
			return out, nil
		},
		FetchTicker: func(ctx context.Context, inst venue.Instrument) (venue.RawUpdate, error) {
			var t genericTicker
			q := url.Values{}
			q.Set("symbol", inst.OriginalSymbol)
			_, err := breaker.Execute(func() (any, error) {
				return nil, httpGetJSON(ctx, client, base+"/ticker?"+q.Encode(), &t)
			})
			if err != nil {
				return venue.RawUpdate{}, err
			}
			return venue.RawUpdate{
				OriginalSymbol:  inst.OriginalSymbol,
				MarketID:        inst.MarketID,
				MarkPrice:       t.MarkPrice,
				IndexPrice:      t.IndexPrice,
				LastPrice:       t.LastPrice,
				OpenInterest:    t.OpenInterest,
				OpenInterestUSD: t.OpenInterestUSD,
				FundingRate:     t.FundingRate,
				NextFundingAtMS: t.NextFundingMS,
				Volume24h:       t.Volume24h,
				QuoteVolume24h:  t.QuoteVolume24h,
				Low24h:          t.Low24h,
				High24h:         t.High24h,
				Change24h:       t.Change24h,
			}, nil
		},
	}
}
