package handlers

import (
	"testing"

	"github.com/perpwatch/perpwatch/internal/model"
)

func TestSortArbitrageDefaultDescendingBySpreadAPR(t *testing.T) {
	rows := []model.ArbitrageOpportunity{
		{CanonicalSymbol: "low", SpreadAPR: 1},
		{CanonicalSymbol: "high", SpreadAPR: 9},
		{CanonicalSymbol: "mid", SpreadAPR: 5},
	}
	sortArbitrage(rows, "", "")

	want := []string{"high", "mid", "low"}
	for i, w := range want {
		if rows[i].CanonicalSymbol != w {
			t.Fatalf("position %d = %q, want %q (order: %v)", i, rows[i].CanonicalSymbol, w, rows)
		}
	}
}

func TestSortArbitrageAscendingBySpread(t *testing.T) {
	rows := []model.ArbitrageOpportunity{
		{CanonicalSymbol: "b", Spread: 2},
		{CanonicalSymbol: "a", Spread: 1},
		{CanonicalSymbol: "c", Spread: 3},
	}
	sortArbitrage(rows, "spread", "asc")

	want := []string{"a", "b", "c"}
	for i, w := range want {
		if rows[i].CanonicalSymbol != w {
			t.Fatalf("position %d = %q, want %q (order: %v)", i, rows[i].CanonicalSymbol, w, rows)
		}
	}
}

func TestSortArbitrageByStability(t *testing.T) {
	rows := []model.ArbitrageOpportunity{
		{CanonicalSymbol: "weak", StabilityScore: 2},
		{CanonicalSymbol: "strong", StabilityScore: 5},
	}
	sortArbitrage(rows, "stability", "desc")
	if rows[0].CanonicalSymbol != "strong" {
		t.Fatalf("expected strong first, got %v", rows)
	}
}

func TestSortArbitrageStableOnTies(t *testing.T) {
	rows := []model.ArbitrageOpportunity{
		{CanonicalSymbol: "first", SpreadAPR: 5},
		{CanonicalSymbol: "second", SpreadAPR: 5},
	}
	sortArbitrage(rows, "", "desc")
	if rows[0].CanonicalSymbol != "first" || rows[1].CanonicalSymbol != "second" {
		t.Fatalf("expected stable order preserved on tie, got %v", rows)
	}
}

func TestContainsEmptyListMatchesAll(t *testing.T) {
	if !contains(nil, "anything") {
		t.Fatal("empty filter list should match everything")
	}
}

func TestContainsCaseInsensitive(t *testing.T) {
	if !contains([]string{"Binance"}, "binance") {
		t.Fatal("contains should be case-insensitive")
	}
}
