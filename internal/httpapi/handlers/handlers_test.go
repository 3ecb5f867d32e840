package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/perpwatch/perpwatch/internal/cache"
)

func TestQueryIntFallsBackOnMissingOrInvalid(t *testing.T) {
	r := httptest.NewRequest("GET", "/?limit=bad", nil)
	if got := queryInt(r, "limit", 50); got != 50 {
		t.Fatalf("queryInt(invalid) = %d, want fallback 50", got)
	}

	r = httptest.NewRequest("GET", "/?limit=25", nil)
	if got := queryInt(r, "limit", 50); got != 25 {
		t.Fatalf("queryInt(25) = %d, want 25", got)
	}
}

func TestQueryInt64FallsBackOnMissingOrInvalid(t *testing.T) {
	r := httptest.NewRequest("GET", "/?from=nope", nil)
	if got := queryInt64(r, "from", 7); got != 7 {
		t.Fatalf("queryInt64(invalid) = %d, want fallback 7", got)
	}

	r = httptest.NewRequest("GET", "/?from=123456789", nil)
	if got := queryInt64(r, "from", 7); got != 123456789 {
		t.Fatalf("queryInt64 = %d, want 123456789", got)
	}
}

func TestQueryBoolAcceptsTruthyVariants(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "Yes"} {
		r := httptest.NewRequest("GET", "/?flag="+v, nil)
		if !queryBool(r, "flag") {
			t.Fatalf("queryBool(%q) = false, want true", v)
		}
	}
	r := httptest.NewRequest("GET", "/?flag=nope", nil)
	if queryBool(r, "flag") {
		t.Fatal("queryBool(nope) = true, want false")
	}
	r = httptest.NewRequest("GET", "/", nil)
	if queryBool(r, "flag") {
		t.Fatal("queryBool(missing) = true, want false")
	}
}

func TestQueryCSVSplitsAndTrims(t *testing.T) {
	r := httptest.NewRequest("GET", "/?symbols= BTC ,ETH,,SOL", nil)
	got := queryCSV(r, "symbols")
	want := []string{"BTC", "ETH", "SOL"}
	if len(got) != len(want) {
		t.Fatalf("queryCSV = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("queryCSV[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestQueryCSVEmptyReturnsNil(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if got := queryCSV(r, "symbols"); got != nil {
		t.Fatalf("queryCSV(missing) = %v, want nil", got)
	}
}

func TestContainsEmptyFilterMatchesEverything(t *testing.T) {
	if !contains(nil, "anything") {
		t.Fatal("empty filter should match everything")
	}
}

func TestContainsIsCaseInsensitive(t *testing.T) {
	if !contains([]string{"Binance", "OKX"}, "binance") {
		t.Fatal("contains should match case-insensitively")
	}
	if contains([]string{"Binance"}, "okx") {
		t.Fatal("contains should reject a non-matching value")
	}
}

func TestCacheGetMissWhenCacheNil(t *testing.T) {
	h := &Handlers{}
	var dst map[string]string
	if h.cacheGet(context.Background(), "k", &dst) {
		t.Fatal("expected a miss when Cache is nil")
	}
}

func TestCacheSetThenGetRoundTrips(t *testing.T) {
	h := &Handlers{Cache: cache.New()}
	h.cacheSet(context.Background(), "markets:BTC", map[string]string{"exchange": "hyperliquid"})

	var dst map[string]string
	if !h.cacheGet(context.Background(), "markets:BTC", &dst) {
		t.Fatal("expected a cache hit after cacheSet")
	}
	if dst["exchange"] != "hyperliquid" {
		t.Fatalf("round-tripped value = %v, want exchange=hyperliquid", dst)
	}
}

func TestCacheGetMissOnUnknownKey(t *testing.T) {
	h := &Handlers{Cache: cache.New()}
	var dst map[string]string
	if h.cacheGet(context.Background(), "nonexistent", &dst) {
		t.Fatal("expected a miss for an unset key")
	}
}

func TestNotFoundWritesEnvelopeWith404(t *testing.T) {
	h := &Handlers{}
	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest("GET", "/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("response body did not decode as an Envelope: %v", err)
	}
	if env.Success || env.Error == "" {
		t.Fatalf("expected success=false with a non-empty error, got %+v", env)
	}
}

func TestWriteServerErrorRespondsWith500(t *testing.T) {
	h := &Handlers{}
	w := httptest.NewRecorder()
	h.writeServerError(w, "boom")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("response body did not decode as an Envelope: %v", err)
	}
	if env.Success || env.Error != "boom" {
		t.Fatalf("expected success=false error=boom, got %+v", env)
	}
}

func TestWriteExpectedFailureRespondsWith200(t *testing.T) {
	h := &Handlers{}
	w := httptest.NewRecorder()
	h.writeExpectedFailure(w, "missing symbol")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (expected failures stay 200 per spec)", w.Code, http.StatusOK)
	}
	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("response body did not decode as an Envelope: %v", err)
	}
	if env.Success || env.Error != "missing symbol" {
		t.Fatalf("expected success=false error=\"missing symbol\", got %+v", env)
	}
}

func TestClampLimitBounds(t *testing.T) {
	if got := clampLimit(0); got != defaultPageSize {
		t.Fatalf("clampLimit(0) = %d, want default %d", got, defaultPageSize)
	}
	if got := clampLimit(-5); got != defaultPageSize {
		t.Fatalf("clampLimit(-5) = %d, want default %d", got, defaultPageSize)
	}
	if got := clampLimit(5000); got != maxPageSize {
		t.Fatalf("clampLimit(5000) = %d, want max %d", got, maxPageSize)
	}
	if got := clampLimit(50); got != 50 {
		t.Fatalf("clampLimit(50) = %d, want 50", got)
	}
}
