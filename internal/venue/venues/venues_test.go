package venues

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/perpwatch/perpwatch/internal/venue"
)

func TestHTTPGetJSONDecodesSuccessResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"symbol": "BTC"})
	}))
	defer srv.Close()

	var out map[string]string
	err := httpGetJSON(context.Background(), srv.Client(), srv.URL, &out)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["symbol"] != "BTC" {
		t.Fatalf("decoded %+v, want symbol=BTC", out)
	}
}

func TestHTTPGetJSONReturnsErrorOnNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	var out map[string]string
	err := httpGetJSON(context.Background(), srv.Client(), srv.URL, &out)
	if err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestHTTPGetJSONReturnsErrorOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	var out map[string]string
	err := httpGetJSON(context.Background(), srv.Client(), srv.URL, &out)
	if err == nil {
		t.Fatal("expected an error for a malformed JSON body")
	}
}

func TestGenericRESTVenueFetchInstrumentsFiltersNonPerp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/instruments":
			json.NewEncoder(w).Encode([]genericInstrument{
				{Symbol: "BTC", Status: "active", Kind: "perpetual"},
				{Symbol: "BTC-SPOT", Status: "active", Kind: "spot"},
				{Symbol: "ETH", Status: "active", Kind: ""},
			})
		}
	}))
	defer srv.Close()

	v := genericRESTVenue("testvenue", srv.URL, time.Second)
	insts, err := v.FetchInstruments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(insts) != 3 {
		t.Fatalf("expected all 3 listed instruments to pass through (filtering happens at Instrument.Active), got %d", len(insts))
	}
	for _, in := range insts {
		if in.OriginalSymbol == "BTC-SPOT" && in.IsPerp {
			t.Fatal("spot market should not be marked IsPerp")
		}
		if in.OriginalSymbol == "ETH" && !in.IsPerp {
			t.Fatal("an empty kind should default to perpetual")
		}
	}
}

func TestGenericRESTVenueFetchTickerDecodesTicker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("symbol") != "BTC" {
			t.Errorf("expected symbol=BTC query param, got %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(genericTicker{Symbol: "BTC", MarkPrice: "100", FundingRate: "0.0001"})
	}))
	defer srv.Close()

	v := genericRESTVenue("testvenue", srv.URL, time.Second)
	upd, err := v.FetchTicker(context.Background(), venue.Instrument{
		OriginalSymbol: "BTC", MarketID: "BTC", Status: "active", IsPerp: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upd.OriginalSymbol != "BTC" || upd.MarkPrice != "100" || upd.FundingRate != "0.0001" {
		t.Fatalf("unexpected update: %+v", upd)
	}
}

func TestHyperliquidParseMessageIgnoresNonDataFrames(t *testing.T) {
	updates, err := hyperliquidParseMessage([]byte(`{"channel":"subscriptionResponse"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != 0 {
		t.Fatalf("expected no updates for a non-data frame, got %v", updates)
	}
}

func TestHyperliquidParseMessageExtractsCtxUpdate(t *testing.T) {
	raw := []byte(`{
		"channel": "activeAssetCtx",
		"data": {
			"coin": "BTC",
			"ctx": {"markPx": "100.5", "oraclePx": "100.4", "midPx": "100.45", "funding": "0.0001", "openInterest": "1000"}
		}
	}`)
	updates, err := hyperliquidParseMessage(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("expected exactly one update, got %d", len(updates))
	}
	if updates[0].OriginalSymbol != "BTC" || updates[0].MarkPrice != "100.5" {
		t.Fatalf("unexpected update: %+v", updates[0])
	}
}

func TestHyperliquidParseMessageRejectsMalformedJSON(t *testing.T) {
	_, err := hyperliquidParseMessage([]byte(`not json`))
	if err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestDydxParseMessageSkipsInactiveMarkets(t *testing.T) {
	raw := []byte(`{
		"channel": "v4_markets",
		"contents": {"markets": {
			"BTC-USD": {"oraclePrice": "100", "nextFundingRate": "0.0001", "status": "ACTIVE"},
			"DEAD-USD": {"oraclePrice": "1", "status": "CANCELED"}
		}}
	}`)
	updates, err := dydxParseMessage(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != 1 || updates[0].OriginalSymbol != "BTC-USD" {
		t.Fatalf("expected only BTC-USD to survive the ACTIVE filter, got %v", updates)
	}
}

func TestDydxParseMessageIgnoresNonMarketsChannel(t *testing.T) {
	updates, err := dydxParseMessage([]byte(`{"channel":"v4_trades"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != 0 {
		t.Fatalf("expected no updates for an unrelated channel, got %v", updates)
	}
}

func TestDydxSubscribeMsgIsSentOnce(t *testing.T) {
	msgs := dydxSubscribeMsg(nil)
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one subscribe message regardless of instrument count, got %d", len(msgs))
	}
}
