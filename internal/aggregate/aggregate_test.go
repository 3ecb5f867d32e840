package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/perpwatch/perpwatch/internal/model"
)

func approxEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMinuteBucketFloorsToSixty(t *testing.T) {
	if got := minuteBucket(125); got != 120 {
		t.Fatalf("minuteBucket(125) = %d, want 120", got)
	}
	if got := minuteBucket(120); got != 120 {
		t.Fatalf("minuteBucket(120) = %d, want 120 (exact multiple)", got)
	}
}

func TestHourBucketFloorsToThirtySixHundred(t *testing.T) {
	if got := hourBucket(3601); got != 3600 {
		t.Fatalf("hourBucket(3601) = %d, want 3600", got)
	}
}

func TestParseFloatValid(t *testing.T) {
	if got := parseFloat("1.5"); !approxEqual(got, 1.5) {
		t.Fatalf("parseFloat(1.5) = %v", got)
	}
}

func TestParseFloatInvalidReturnsZero(t *testing.T) {
	if got := parseFloat("not-a-number"); got != 0 {
		t.Fatalf("parseFloat(invalid) = %v, want 0", got)
	}
}

func TestPriceVolatilityIsRangeOverAverage(t *testing.T) {
	// spec.md §8 scenario 3: prices {100,101,99,102}, avg 100.5.
	got := priceVolatility(99, 102, 100.5)
	want := (102 - 99) / 100.5 * 100
	if !approxEqual(got, want) {
		t.Fatalf("priceVolatility = %v, want %v", got, want)
	}
}

func TestPriceVolatilityGuardsZeroAverage(t *testing.T) {
	if got := priceVolatility(0, 0, 0); got != 0 {
		t.Fatalf("priceVolatility with avg=0 = %v, want 0", got)
	}
}

func TestAnnualizeAverageFundingRateAppliesHourlyVenueDirectly(t *testing.T) {
	// hyperliquid pays hourly, so the raw average is already an hourly rate.
	got := annualizeAverageFundingRate("hyperliquid", 0.0001)
	want := 0.0001 * 24 * 365 * 100
	if !approxEqual(got, want) {
		t.Fatalf("annualizeAverageFundingRate(hyperliquid) = %v, want %v", got, want)
	}
}

func TestAnnualizeAverageFundingRateDividesByVenueInterval(t *testing.T) {
	// spec.md §8 scenario 4: vertex pays every 8h, raw 0.0008 -> hourly
	// 0.0001 -> annual 87.6%.
	got := annualizeAverageFundingRate("vertex", 0.0008)
	want := 87.6
	if !approxEqual(got, want) {
		t.Fatalf("annualizeAverageFundingRate(vertex) = %v, want %v", got, want)
	}
}

func TestFoldMinuteAveragesAndBounds(t *testing.T) {
	now := time.Unix(1700000000, 0)
	rows := []model.RawTick{
		{Exchange: "hyperliquid", OriginalSymbol: "BTC", MarkPrice: "100", IndexPrice: "99", OpenInterest: "10", OpenInterestUSD: "1000", FundingRate: "0.0001", Volume24h: 1, QuoteVolume24h: 100},
		{Exchange: "hyperliquid", OriginalSymbol: "BTC", MarkPrice: "110", IndexPrice: "101", OpenInterest: "20", OpenInterestUSD: "2200", FundingRate: "0.0003", Volume24h: 2, QuoteVolume24h: 200},
	}

	agg := foldMinute("hyperliquid", "BTC", 1700000000, rows, now)

	if agg.SampleCount != 2 {
		t.Fatalf("SampleCount = %d, want 2", agg.SampleCount)
	}
	if !approxEqual(agg.AvgMarkPrice, 105) {
		t.Fatalf("AvgMarkPrice = %v, want 105", agg.AvgMarkPrice)
	}
	if agg.MinPrice != 100 || agg.MaxPrice != 110 {
		t.Fatalf("MinPrice/MaxPrice = %v/%v, want 100/110", agg.MinPrice, agg.MaxPrice)
	}
	if !approxEqual(agg.SumBaseVolume, 3) {
		t.Fatalf("SumBaseVolume = %v, want 3", agg.SumBaseVolume)
	}
	if agg.NormalizedSymbol == "" {
		t.Fatal("expected a non-empty normalized symbol")
	}
	if agg.CreatedAt != now.Unix() {
		t.Fatalf("CreatedAt = %d, want %d", agg.CreatedAt, now.Unix())
	}
}

func TestFoldHourWeightsBySampleCount(t *testing.T) {
	now := time.Unix(1700003600, 0)
	rows := []model.MinuteAggregate{
		{Exchange: "hyperliquid", OriginalSymbol: "BTC", AvgMarkPrice: 100, MinPrice: 90, MaxPrice: 110, SampleCount: 1, SumBaseVolume: 1},
		{Exchange: "hyperliquid", OriginalSymbol: "BTC", AvgMarkPrice: 200, MinPrice: 95, MaxPrice: 210, SampleCount: 3, SumBaseVolume: 3},
	}

	agg := foldHour("hyperliquid", "BTC", 1700000000, rows, now)

	// weighted avg = (100*1 + 200*3) / 4 = 175
	if !approxEqual(agg.AvgMarkPrice, 175) {
		t.Fatalf("AvgMarkPrice = %v, want 175 (sample-count-weighted)", agg.AvgMarkPrice)
	}
	if agg.MinPrice != 90 || agg.MaxPrice != 210 {
		t.Fatalf("MinPrice/MaxPrice = %v/%v, want 90/210", agg.MinPrice, agg.MaxPrice)
	}
	if agg.SampleCount != 4 {
		t.Fatalf("SampleCount = %d, want 4", agg.SampleCount)
	}
}

func TestFoldHourZeroSamplesAvoidsDivideByZero(t *testing.T) {
	now := time.Unix(1700003600, 0)
	agg := foldHour("hyperliquid", "BTC", 1700000000, nil, now)
	if math.IsNaN(agg.AvgMarkPrice) || math.IsInf(agg.AvgMarkPrice, 0) {
		t.Fatalf("AvgMarkPrice = %v, want a finite value even with zero rows", agg.AvgMarkPrice)
	}
}
